package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stokpos/internal/domain"
	"stokpos/internal/pricing"
	"stokpos/internal/store"
	"stokpos/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
	attributeDefs map[string]domain.AttributeDefinition
	suppliers     map[string]domain.Supplier
	variants      map[string]domain.ProductVariant
	products      map[string]domain.Product
	productBySKU  map[string]string
	sales         []domain.Sale
	purchases     []domain.Purchase
	auditLogs     []domain.AuditLog
	users         map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewSeeded returns a memory store pre-loaded with a small apparel catalog,
// two suppliers and an opening shipment so sales, valuation and aging
// reports all work out of the box in dev mode.
func NewSeeded() *Store {
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: "cat-shirts", Name: "Shirts", Slug: "shirts"},
		{ID: "cat-jeans", Name: "Jeans", Slug: "jeans"},
	}
	subcategories := []domain.Subcategory{
		{ID: "sub-formal", CategoryID: "cat-shirts", Name: "Formal", Slug: "formal"},
		{ID: "sub-casual", CategoryID: "cat-shirts", Name: "Casual", Slug: "casual"},
	}
	attributeDefs := []domain.AttributeDefinition{
		{ID: "attr-shirt-size", CategoryID: "cat-shirts", Key: "size", Label: "Size", Type: domain.AttributeTypeString},
		{ID: "attr-shirt-color", CategoryID: "cat-shirts", Key: "color", Label: "Color", Type: domain.AttributeTypeString},
	}
	suppliers := []domain.Supplier{
		{ID: "sup-sharma", Name: "Sharma Distributors", Code: "SHARMA", CreatedAt: now},
		{ID: "sup-mehta", Name: "Mehta Textiles", Code: "MEHTA", CreatedAt: now},
	}
	variants := []domain.ProductVariant{
		{
			ID: "var-oxford-m-white", CategoryID: "cat-shirts", SubcategoryID: "sub-formal",
			Name:       "Oxford Shirt M White",
			Attributes: map[string]any{"size": "M", "color": "white"},
			MRP:        dec("1499"), DefaultSellingPrice: dec("1299"), MaxDiscountPercent: 25,
			CreatedAt: now,
		},
		{
			ID: "var-oxford-l-blue", CategoryID: "cat-shirts", SubcategoryID: "sub-formal",
			Name:       "Oxford Shirt L Blue",
			Attributes: map[string]any{"size": "L", "color": "blue"},
			MRP:        dec("1499"), DefaultSellingPrice: dec("1299"), MaxDiscountPercent: 25,
			CreatedAt: now,
		},
		{
			ID: "var-slim-jeans-32", CategoryID: "cat-jeans",
			Name:       "Slim Fit Jeans 32",
			Attributes: map[string]any{"waist": 32},
			MRP:        dec("2299"), DefaultSellingPrice: dec("1999"), MaxDiscountPercent: 30,
			CreatedAt: now,
		},
	}
	products := []domain.Product{
		{ID: "prod-oxm", SKU: "SHIRT-OXF-M-WHT", ProductVariantID: "var-oxford-m-white", SupplierID: "sup-sharma", CreatedAt: now},
		{ID: "prod-oxl", SKU: "SHIRT-OXF-L-BLU", ProductVariantID: "var-oxford-l-blue", SupplierID: "sup-sharma", CreatedAt: now},
		{ID: "prod-jeans", SKU: "JEANS-SLIM-32", ProductVariantID: "var-slim-jeans-32", SupplierID: "sup-mehta", CreatedAt: now},
	}

	s := &Store{
		categories:    make(map[string]domain.Category, len(categories)),
		subcategories: make(map[string]domain.Subcategory, len(subcategories)),
		attributeDefs: make(map[string]domain.AttributeDefinition, len(attributeDefs)),
		suppliers:     make(map[string]domain.Supplier, len(suppliers)),
		variants:      make(map[string]domain.ProductVariant, len(variants)),
		products:      make(map[string]domain.Product, len(products)),
		productBySKU:  make(map[string]string, len(products)),
		sales:         make([]domain.Sale, 0, 64),
		purchases:     make([]domain.Purchase, 0, 16),
		auditLogs:     make([]domain.AuditLog, 0, 128),
		users:         seedUsers(),
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	for _, sub := range subcategories {
		s.subcategories[sub.ID] = sub
	}
	for _, def := range attributeDefs {
		s.attributeDefs[def.ID] = def
	}
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
	for _, v := range variants {
		s.variants[v.ID] = v
	}
	for _, p := range products {
		s.products[p.ID] = p
		s.productBySKU[p.SKU] = p.ID
	}

	s.seedOpeningStock(now)
	return s
}

// seedOpeningStock records two shipments, one 45 days old and one fresh,
// so the aging report has layers in different buckets from the start.
func (s *Store) seedOpeningStock(now time.Time) {
	old := now.AddDate(0, 0, -45)
	s.purchases = append(s.purchases,
		domain.Purchase{
			ID: "pur-seed-1", SupplierID: "sup-sharma", PurchasedAt: old,
			InvoiceNo: "SHARMA-0001", ExtraCharges: decimal.Zero,
			Items: []domain.PurchaseItem{
				{ID: "pli-seed-1", PurchaseID: "pur-seed-1", ProductVariantID: "var-oxford-m-white", Quantity: 20, UnitCost: dec("650"), EffectiveUnitCost: dec("650")},
				{ID: "pli-seed-2", PurchaseID: "pur-seed-1", ProductVariantID: "var-oxford-l-blue", Quantity: 20, UnitCost: dec("650"), EffectiveUnitCost: dec("650")},
			},
		},
		domain.Purchase{
			ID: "pur-seed-2", SupplierID: "sup-mehta", PurchasedAt: now.AddDate(0, 0, -3),
			InvoiceNo: "MEHTA-0001", ExtraCharges: dec("500"),
			Items: []domain.PurchaseItem{
				{ID: "pli-seed-3", PurchaseID: "pur-seed-2", ProductVariantID: "var-slim-jeans-32", Quantity: 25, UnitCost: dec("1100"), EffectiveUnitCost: dec("1120")},
			},
		},
	)
	for sku, qty := range map[string]int{"SHIRT-OXF-M-WHT": 20, "SHIRT-OXF-L-BLU": 20, "JEANS-SLIM-32": 25} {
		id := s.productBySKU[sku]
		p := s.products[id]
		p.QuantityInStock = qty
		s.products[id] = p
	}
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.Name == "" || category.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.categories {
		if existing.Slug == category.Slug {
			return nil, fmt.Errorf("category slug %s already exists: %w", category.Slug, store.ErrInvalidInput)
		}
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := category
	return &found, nil
}

func (s *Store) ListSubcategories(_ context.Context, categoryID string) ([]domain.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.categories[categoryID]; !ok {
		return nil, store.ErrNotFound
	}
	subcategories := make([]domain.Subcategory, 0, 8)
	for _, sub := range s.subcategories {
		if sub.CategoryID == categoryID {
			subcategories = append(subcategories, sub)
		}
	}
	slices.SortFunc(subcategories, func(a, b domain.Subcategory) int {
		return strings.Compare(a.Name, b.Name)
	})
	return subcategories, nil
}

func (s *Store) CreateSubcategory(_ context.Context, subcategory domain.Subcategory) (*domain.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subcategory.Name == "" || subcategory.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.categories[subcategory.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.subcategories {
		if existing.CategoryID == subcategory.CategoryID && existing.Slug == subcategory.Slug {
			return nil, fmt.Errorf("subcategory slug %s already exists: %w", subcategory.Slug, store.ErrInvalidInput)
		}
	}
	if subcategory.ID == "" {
		subcategory.ID = xid.New("sub")
	}
	s.subcategories[subcategory.ID] = subcategory
	created := subcategory
	return &created, nil
}

func (s *Store) ListAttributeDefinitions(_ context.Context, categoryID string) ([]domain.AttributeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.categories[categoryID]; !ok {
		return nil, store.ErrNotFound
	}
	defs := make([]domain.AttributeDefinition, 0, 8)
	for _, def := range s.attributeDefs {
		if def.CategoryID == categoryID {
			defs = append(defs, def)
		}
	}
	slices.SortFunc(defs, func(a, b domain.AttributeDefinition) int {
		return strings.Compare(a.Key, b.Key)
	})
	return defs, nil
}

func (s *Store) CreateAttributeDefinition(_ context.Context, def domain.AttributeDefinition) (*domain.AttributeDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.Key == "" || def.Type == "" {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.categories[def.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.attributeDefs {
		if existing.CategoryID == def.CategoryID && existing.Key == def.Key {
			return nil, fmt.Errorf("attribute %s already defined: %w", def.Key, store.ErrInvalidInput)
		}
	}
	if def.ID == "" {
		def.ID = xid.New("attr")
	}
	s.attributeDefs[def.ID] = def
	created := def
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return strings.Compare(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.suppliers {
		if supplier.Code != "" && existing.Code == supplier.Code {
			return nil, fmt.Errorf("supplier code %s already exists: %w", supplier.Code, store.ErrInvalidInput)
		}
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListVariants(_ context.Context, categoryID string) ([]domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variants := make([]domain.ProductVariant, 0, len(s.variants))
	for _, v := range s.variants {
		if categoryID != "" && v.CategoryID != categoryID {
			continue
		}
		variants = append(variants, v)
	}
	slices.SortFunc(variants, func(a, b domain.ProductVariant) int {
		return strings.Compare(a.Name, b.Name)
	})
	return variants, nil
}

func (s *Store) GetVariantByID(_ context.Context, id string) (*domain.ProductVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variant, ok := s.variants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := variant
	return &found, nil
}

func (s *Store) CreateVariant(_ context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if variant.Name == "" || variant.MRP.IsNegative() || variant.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if variant.MaxDiscountPercent < 0 || variant.MaxDiscountPercent > 100 {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.categories[variant.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	if variant.SubcategoryID != "" {
		sub, ok := s.subcategories[variant.SubcategoryID]
		if !ok || sub.CategoryID != variant.CategoryID {
			return nil, fmt.Errorf("subcategory %s does not belong to category: %w", variant.SubcategoryID, store.ErrInvalidInput)
		}
	}
	if variant.ID == "" {
		variant.ID = xid.New("var")
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now().UTC()
	}
	s.variants[variant.ID] = variant
	created := variant
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.SKU, b.SKU)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.QuantityInStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.variants[product.ProductVariantID]; !ok {
		return nil, fmt.Errorf("unknown variant %s: %w", product.ProductVariantID, store.ErrInvalidInput)
	}
	if _, ok := s.suppliers[product.SupplierID]; !ok {
		return nil, fmt.Errorf("unknown supplier %s: %w", product.SupplierID, store.ErrInvalidInput)
	}
	if _, exists := s.productBySKU[product.SKU]; exists {
		return nil, fmt.Errorf("sku %s already exists: %w", product.SKU, store.ErrInvalidInput)
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	s.productBySKU[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productBySKU[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := s.products[id]
	return &found, nil
}

// CreateSale applies the whole bill or nothing. Stock and pricing are
// re-checked under the write lock so concurrent sales can never drive a
// product's stock negative or skip the discount guard.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}

	// Resolve SKUs and aggregate the quantity demanded per product, so a
	// bill repeating a SKU across lines is checked against total demand.
	demand := make(map[string]int, len(sale.Items))
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Quantity < 1 || item.UnitPrice.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		productID, ok := s.productBySKU[item.SKU]
		if !ok {
			return nil, fmt.Errorf("unknown sku %s: %w", item.SKU, store.ErrNotFound)
		}
		item.ProductID = productID
		demand[productID] += item.Quantity
	}

	for productID, qty := range demand {
		if s.products[productID].QuantityInStock < qty {
			return nil, fmt.Errorf("sku %s: %w", s.products[productID].SKU, store.ErrInsufficientStock)
		}
	}

	for _, item := range sale.Items {
		variant, ok := s.variants[s.products[item.ProductID].ProductVariantID]
		if !ok {
			return nil, fmt.Errorf("sku %s has no variant: %w", item.SKU, store.ErrInvalidInput)
		}
		if err := pricing.Validate(item.UnitPrice, variant.MRP, variant.MaxDiscountPercent); err != nil {
			return nil, fmt.Errorf("sku %s: %w", item.SKU, err)
		}
	}

	paid := decimal.Zero
	for _, payment := range sale.Payments {
		paid = paid.Add(payment.Amount)
	}
	if paid.Sub(sale.TotalAmount).Abs().GreaterThan(dec("0.01")) {
		return nil, store.ErrPaymentMismatch
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	sale.BillNumber = s.nextBillNumber(sale.SoldAt)
	for i := range sale.Items {
		sale.Items[i].ID = xid.New("sli")
		sale.Items[i].SaleID = sale.ID
	}
	for i := range sale.Payments {
		sale.Payments[i].ID = xid.New("pay")
		sale.Payments[i].SaleID = sale.ID
	}

	for productID, qty := range demand {
		p := s.products[productID]
		p.QuantityInStock -= qty
		s.products[productID] = p
	}
	s.sales = append(s.sales, sale)

	created := sale
	return &created, nil
}

// nextBillNumber allocates BILL-YYYYMMDD-NNNN, restarting the sequence at
// 0001 each day. Caller must hold the write lock.
func (s *Store) nextBillNumber(soldAt time.Time) string {
	prefix := "BILL-" + soldAt.UTC().Format("20060102") + "-"
	last := 0
	for _, sale := range s.sales {
		if !strings.HasPrefix(sale.BillNumber, prefix) {
			continue
		}
		var seq int
		if _, err := fmt.Sscanf(strings.TrimPrefix(sale.BillNumber, prefix), "%d", &seq); err == nil && seq > last {
			last = seq
		}
	}
	return fmt.Sprintf("%s%04d", prefix, last+1)
}

// CreatePurchase records the shipment and restocks the matching
// (variant, supplier) product for every line.
func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, ok := s.suppliers[purchase.SupplierID]; !ok {
		return nil, fmt.Errorf("unknown supplier %s: %w", purchase.SupplierID, store.ErrNotFound)
	}
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now().UTC()
	}

	restock := make(map[string]int, len(purchase.Items))
	for _, item := range purchase.Items {
		if item.Quantity < 1 || item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		if _, ok := s.variants[item.ProductVariantID]; !ok {
			return nil, fmt.Errorf("unknown variant %s: %w", item.ProductVariantID, store.ErrNotFound)
		}
		productID := s.findProduct(item.ProductVariantID, purchase.SupplierID)
		if productID == "" {
			return nil, fmt.Errorf("variant %s from supplier %s: %w", item.ProductVariantID, purchase.SupplierID, store.ErrNoMatchingProduct)
		}
		restock[productID] += item.Quantity
	}

	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	for i := range purchase.Items {
		purchase.Items[i].ID = xid.New("pli")
		purchase.Items[i].PurchaseID = purchase.ID
	}

	for productID, qty := range restock {
		p := s.products[productID]
		p.QuantityInStock += qty
		s.products[productID] = p
	}
	s.purchases = append(s.purchases, purchase)

	created := purchase
	return &created, nil
}

// findProduct returns the product ID stocked for the given variant and
// supplier, or empty. Caller must hold at least the read lock.
func (s *Store) findProduct(variantID string, supplierID string) string {
	for id, p := range s.products {
		if p.ProductVariantID == variantID && p.SupplierID == supplierID {
			return id
		}
	}
	return ""
}

func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return a.SoldAt.Compare(b.SoldAt)
	})
	return sales, nil
}

func (s *Store) ListCostLayers(_ context.Context) ([]domain.CostLayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layers := make([]domain.CostLayer, 0, len(s.purchases)*2)
	for _, purchase := range s.purchases {
		for _, item := range purchase.Items {
			layers = append(layers, domain.CostLayer{
				ProductVariantID:  item.ProductVariantID,
				PurchasedAt:       purchase.PurchasedAt,
				Quantity:          item.Quantity,
				EffectiveUnitCost: item.EffectiveUnitCost,
			})
		}
	}
	slices.SortFunc(layers, func(a, b domain.CostLayer) int {
		return a.PurchasedAt.Compare(b.PurchasedAt)
	})
	return layers, nil
}

func (s *Store) SoldQuantities(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sold := make(map[string]int)
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			product, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			sold[product.ProductVariantID] += item.Quantity
		}
	}
	return sold, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(logs) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.users[username]; exists {
		return fmt.Errorf("username %s already exists: %w", username, store.ErrInvalidInput)
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
