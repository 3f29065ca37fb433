package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stokpos/internal/domain"
	"stokpos/internal/pricing"
	"stokpos/internal/store"
	"stokpos/internal/xid"
)

var paymentTolerance = decimal.New(1, -2)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" || category.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, created_at)
		VALUES ($1,$2,$3,now())
	`, category.ID, category.Name, category.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category slug %s already exists: %w", category.Slug, store.ErrInvalidInput)
		}
		return nil, err
	}

	created := category
	return &created, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug
		FROM categories
		WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	if _, err := s.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, name, slug
		FROM subcategories
		WHERE category_id = $1
		ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subcategories := make([]domain.Subcategory, 0, 16)
	for rows.Next() {
		var sub domain.Subcategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Slug); err != nil {
			return nil, err
		}
		subcategories = append(subcategories, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subcategories, nil
}

func (s *Store) CreateSubcategory(ctx context.Context, subcategory domain.Subcategory) (*domain.Subcategory, error) {
	if subcategory.Name == "" || subcategory.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	if _, err := s.GetCategoryByID(ctx, subcategory.CategoryID); err != nil {
		return nil, err
	}
	if subcategory.ID == "" {
		subcategory.ID = xid.New("sub")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name, slug, created_at)
		VALUES ($1,$2,$3,$4,now())
	`, subcategory.ID, subcategory.CategoryID, subcategory.Name, subcategory.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("subcategory slug %s already exists: %w", subcategory.Slug, store.ErrInvalidInput)
		}
		return nil, err
	}

	created := subcategory
	return &created, nil
}

func (s *Store) ListAttributeDefinitions(ctx context.Context, categoryID string) ([]domain.AttributeDefinition, error) {
	if _, err := s.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, key, label, type
		FROM attribute_definitions
		WHERE category_id = $1
		ORDER BY key
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.AttributeDefinition, 0, 16)
	for rows.Next() {
		var def domain.AttributeDefinition
		if err := rows.Scan(&def.ID, &def.CategoryID, &def.Key, &def.Label, &def.Type); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (s *Store) CreateAttributeDefinition(ctx context.Context, def domain.AttributeDefinition) (*domain.AttributeDefinition, error) {
	if def.Key == "" || def.Type == "" {
		return nil, store.ErrInvalidInput
	}
	if _, err := s.GetCategoryByID(ctx, def.CategoryID); err != nil {
		return nil, err
	}
	if def.ID == "" {
		def.ID = xid.New("attr")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attribute_definitions (id, category_id, key, label, type, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, def.ID, def.CategoryID, def.Key, def.Label, def.Type)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("attribute %s already defined: %w", def.Key, store.ErrInvalidInput)
		}
		return nil, err
	}

	created := def
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, code, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Code, &sup.CreatedAt); err != nil {
			return nil, err
		}
		sup.CreatedAt = sup.CreatedAt.UTC()
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, code, created_at)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, supplier.Name, supplier.Code, supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("supplier code %s already exists: %w", supplier.Code, store.ErrInvalidInput)
		}
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) ListVariants(ctx context.Context, categoryID string) ([]domain.ProductVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, subcategory_id, name, attributes, mrp, default_selling_price, max_discount_percent, created_at
		FROM product_variants
		WHERE ($1 = '' OR category_id = $1)
		ORDER BY name
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := make([]domain.ProductVariant, 0, 64)
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, *variant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *Store) GetVariantByID(ctx context.Context, id string) (*domain.ProductVariant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category_id, subcategory_id, name, attributes, mrp, default_selling_price, max_discount_percent, created_at
		FROM product_variants
		WHERE id = $1
	`, id)

	variant, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return variant, nil
}

func (s *Store) CreateVariant(ctx context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error) {
	if variant.Name == "" || variant.MRP.IsNegative() || variant.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if variant.MaxDiscountPercent < 0 || variant.MaxDiscountPercent > 100 {
		return nil, store.ErrInvalidInput
	}
	if _, err := s.GetCategoryByID(ctx, variant.CategoryID); err != nil {
		return nil, err
	}
	if variant.ID == "" {
		variant.ID = xid.New("var")
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now().UTC()
	}

	attrs, err := json.Marshal(variant.Attributes)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO product_variants (id, category_id, subcategory_id, name, attributes, mrp, default_selling_price, max_discount_percent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, variant.ID, variant.CategoryID, nullIfEmpty(variant.SubcategoryID), variant.Name, attrs, variant.MRP, variant.DefaultSellingPrice, variant.MaxDiscountPercent, variant.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("subcategory %s does not belong to category: %w", variant.SubcategoryID, store.ErrInvalidInput)
		}
		return nil, err
	}

	created := variant
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, product_variant_id, supplier_id, quantity_in_stock, created_at
		FROM products
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.ProductVariantID, &p.SupplierID, &p.QuantityInStock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.QuantityInStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, product_variant_id, supplier_id, quantity_in_stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.SKU, product.ProductVariantID, product.SupplierID, product.QuantityInStock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("sku %s already exists: %w", product.SKU, store.ErrInvalidInput)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("unknown variant or supplier: %w", store.ErrInvalidInput)
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, product_variant_id, supplier_id, quantity_in_stock, created_at
		FROM products
		WHERE sku = $1
	`, sku).Scan(&product.ID, &product.SKU, &product.ProductVariantID, &product.SupplierID, &product.QuantityInStock, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

// CreateSale runs the whole bill in one serializable transaction: product
// rows are locked FOR UPDATE, stock and pricing are re-validated against
// the locked rows, and the bill number is allocated from the same snapshot
// so the per-day sequence never produces duplicates.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	type lockedProduct struct {
		id            string
		stock         int
		mrp           decimal.Decimal
		maxDiscount   float64
		demandedUnits int
	}
	locked := make(map[string]*lockedProduct, len(sale.Items))

	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity < 1 || item.UnitPrice.IsNegative() {
			return nil, store.ErrInvalidInput
		}

		lp, seen := locked[item.SKU]
		if !seen {
			lp = &lockedProduct{}
			err := tx.QueryRowContext(ctx, `
				SELECT p.id, p.quantity_in_stock, v.mrp, v.max_discount_percent
				FROM products p
				JOIN product_variants v ON v.id = p.product_variant_id
				WHERE p.sku = $1
				FOR UPDATE OF p
			`, item.SKU).Scan(&lp.id, &lp.stock, &lp.mrp, &lp.maxDiscount)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, fmt.Errorf("unknown sku %s: %w", item.SKU, store.ErrNotFound)
				}
				return nil, err
			}
			locked[item.SKU] = lp
		}

		item.ProductID = lp.id
		lp.demandedUnits += item.Quantity

		if err := pricing.Validate(item.UnitPrice, lp.mrp, lp.maxDiscount); err != nil {
			return nil, fmt.Errorf("sku %s: %w", item.SKU, err)
		}
	}

	for sku, lp := range locked {
		if lp.stock < lp.demandedUnits {
			return nil, fmt.Errorf("sku %s: %w", sku, store.ErrInsufficientStock)
		}
	}

	paid := decimal.Zero
	for _, payment := range sale.Payments {
		paid = paid.Add(payment.Amount)
	}
	if paid.Sub(sale.TotalAmount).Abs().GreaterThan(paymentTolerance) {
		return nil, store.ErrPaymentMismatch
	}

	billNumber, err := nextBillNumber(ctx, tx, sale.SoldAt)
	if err != nil {
		return nil, err
	}
	sale.BillNumber = billNumber

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, bill_number, total_amount, sold_at)
		VALUES ($1,$2,$3,$4)
	`, sale.ID, sale.BillNumber, sale.TotalAmount, sale.SoldAt)
	if err != nil {
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.ID = xid.New("sli")
		item.SaleID = sale.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, sku, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.SaleID, item.ProductID, item.SKU, item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return nil, err
		}
	}

	for i := range sale.Payments {
		payment := &sale.Payments[i]
		payment.ID = xid.New("pay")
		payment.SaleID = sale.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, sale_id, mode, provider, amount)
			VALUES ($1,$2,$3,$4,$5)
		`, payment.ID, payment.SaleID, payment.Mode, payment.Provider, payment.Amount)
		if err != nil {
			return nil, err
		}
	}

	for _, lp := range locked {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET quantity_in_stock = quantity_in_stock - $2
			WHERE id = $1
		`, lp.id, lp.demandedUnits)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func nextBillNumber(ctx context.Context, tx *sql.Tx, soldAt time.Time) (string, error) {
	prefix := "BILL-" + soldAt.UTC().Format("20060102") + "-"

	var lastBill sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT bill_number
		FROM sales
		WHERE bill_number LIKE $1
		ORDER BY bill_number DESC
		LIMIT 1
	`, prefix+"%").Scan(&lastBill)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	seq := 0
	if lastBill.Valid {
		if _, err := fmt.Sscanf(strings.TrimPrefix(lastBill.String, prefix), "%d", &seq); err != nil {
			seq = 0
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// CreatePurchase inserts the shipment and restocks the matching
// (variant, supplier) product rows inside one serializable transaction.
func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now().UTC()
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var supplierExists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, purchase.SupplierID).Scan(&supplierExists); err != nil {
		return nil, err
	}
	if !supplierExists {
		return nil, fmt.Errorf("unknown supplier %s: %w", purchase.SupplierID, store.ErrNotFound)
	}

	restock := make(map[string]int, len(purchase.Items))
	for _, item := range purchase.Items {
		if item.Quantity < 1 || item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		var variantExists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM product_variants WHERE id = $1)`, item.ProductVariantID).Scan(&variantExists); err != nil {
			return nil, err
		}
		if !variantExists {
			return nil, fmt.Errorf("unknown variant %s: %w", item.ProductVariantID, store.ErrNotFound)
		}
		var productID string
		err := tx.QueryRowContext(ctx, `
			SELECT id
			FROM products
			WHERE product_variant_id = $1 AND supplier_id = $2
			FOR UPDATE
		`, item.ProductVariantID, purchase.SupplierID).Scan(&productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("variant %s from supplier %s: %w", item.ProductVariantID, purchase.SupplierID, store.ErrNoMatchingProduct)
			}
			return nil, err
		}
		restock[productID] += item.Quantity
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, purchased_at, invoice_no, notes, extra_charges)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, purchase.ID, purchase.SupplierID, purchase.PurchasedAt, purchase.InvoiceNo, purchase.Notes, purchase.ExtraCharges)
	if err != nil {
		return nil, err
	}

	for i := range purchase.Items {
		item := &purchase.Items[i]
		item.ID = xid.New("pli")
		item.PurchaseID = purchase.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_items (id, purchase_id, product_variant_id, quantity, unit_cost, effective_unit_cost)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.ID, item.PurchaseID, item.ProductVariantID, item.Quantity, item.UnitCost, item.EffectiveUnitCost)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("unknown variant %s: %w", item.ProductVariantID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	for productID, qty := range restock {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET quantity_in_stock = quantity_in_stock + $2
			WHERE id = $1
		`, productID, qty)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_number, total_amount, sold_at
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
		ORDER BY sold_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	saleIDs := make([]string, 0, 128)
	index := make(map[string]int, 128)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.BillNumber, &sale.TotalAmount, &sale.SoldAt); err != nil {
			return nil, err
		}
		sale.SoldAt = sale.SoldAt.UTC()
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, sku, quantity, unit_price, line_total
		FROM sale_items
		WHERE sale_id = ANY($1)
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.SKU, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		if i, ok := index[item.SaleID]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, mode, provider, amount
		FROM payments
		WHERE sale_id = ANY($1)
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		var payment domain.Payment
		if err := paymentRows.Scan(&payment.ID, &payment.SaleID, &payment.Mode, &payment.Provider, &payment.Amount); err != nil {
			return nil, err
		}
		if i, ok := index[payment.SaleID]; ok {
			sales[i].Payments = append(sales[i].Payments, payment)
		}
	}
	if err := paymentRows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) ListCostLayers(ctx context.Context) ([]domain.CostLayer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pi.product_variant_id, p.purchased_at, pi.quantity, pi.effective_unit_cost
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		ORDER BY p.purchased_at ASC, pi.id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	layers := make([]domain.CostLayer, 0, 256)
	for rows.Next() {
		var layer domain.CostLayer
		if err := rows.Scan(&layer.ProductVariantID, &layer.PurchasedAt, &layer.Quantity, &layer.EffectiveUnitCost); err != nil {
			return nil, err
		}
		layer.PurchasedAt = layer.PurchasedAt.UTC()
		layers = append(layers, layer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return layers, nil
}

func (s *Store) SoldQuantities(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.product_variant_id, COALESCE(SUM(si.quantity), 0)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		GROUP BY p.product_variant_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sold := make(map[string]int, 128)
	for rows.Next() {
		var variantID string
		var qty int
		if err := rows.Scan(&variantID, &qty); err != nil {
			return nil, err
		}
		sold[variantID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sold, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %s already exists: %w", username, store.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner) (*domain.ProductVariant, error) {
	var variant domain.ProductVariant
	var subcategoryID sql.NullString
	var attrs []byte
	err := row.Scan(&variant.ID, &variant.CategoryID, &subcategoryID, &variant.Name, &attrs, &variant.MRP, &variant.DefaultSellingPrice, &variant.MaxDiscountPercent, &variant.CreatedAt)
	if err != nil {
		return nil, err
	}
	if subcategoryID.Valid {
		variant.SubcategoryID = subcategoryID.String
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &variant.Attributes); err != nil {
			return nil, err
		}
	}
	variant.CreatedAt = variant.CreatedAt.UTC()
	return &variant, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
