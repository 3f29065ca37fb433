package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stokpos/internal/domain"
	"stokpos/internal/store"
)

func TestSaleTransactionDecrementsStock(t *testing.T) {
	databaseURL := os.Getenv("STOKPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set STOKPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	sku := fmt.Sprintf("SKU-SALE-IT-%d", stamp)

	category, err := s.CreateCategory(ctx, domain.Category{
		Name: fmt.Sprintf("Sale IT %d", stamp),
		Slug: fmt.Sprintf("sale-it-%d", stamp),
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	supplier, err := s.CreateSupplier(ctx, domain.Supplier{
		Name:      fmt.Sprintf("Sale IT Supplier %d", stamp),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	variant, err := s.CreateVariant(ctx, domain.ProductVariant{
		CategoryID:          category.ID,
		Name:                fmt.Sprintf("Sale IT Variant %d", stamp),
		MRP:                 decimal.NewFromInt(500),
		DefaultSellingPrice: decimal.NewFromInt(450),
		MaxDiscountPercent:  20,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create variant: %v", err)
	}
	product, err := s.CreateProduct(ctx, domain.Product{
		SKU:              sku,
		ProductVariantID: variant.ID,
		SupplierID:       supplier.ID,
		QuantityInStock:  10,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	var saleIDs []string
	t.Cleanup(func() {
		for _, saleID := range saleIDs {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM payments WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM purchase_items WHERE product_variant_id = $1`, variant.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM purchases WHERE supplier_id = $1`, supplier.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, variant.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, supplier.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, category.ID)
	})

	price := decimal.NewFromInt(450)
	sale, err := s.CreateSale(ctx, domain.Sale{
		TotalAmount: decimal.NewFromInt(900),
		SoldAt:      time.Now().UTC(),
		Items: []domain.SaleItem{
			{SKU: sku, Quantity: 2, UnitPrice: price, LineTotal: decimal.NewFromInt(900)},
		},
		Payments: []domain.Payment{
			{Mode: "CASH", Amount: decimal.NewFromInt(900)},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	saleIDs = append(saleIDs, sale.ID)
	wantPrefix := "BILL-" + time.Now().UTC().Format("20060102") + "-"
	if !strings.HasPrefix(sale.BillNumber, wantPrefix) {
		t.Fatalf("unexpected bill number %s", sale.BillNumber)
	}

	after, err := s.GetProductBySKU(ctx, sku)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.QuantityInStock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", after.QuantityInStock)
	}

	// Overselling the remaining stock must fail and leave it untouched.
	_, err = s.CreateSale(ctx, domain.Sale{
		TotalAmount: decimal.NewFromInt(4050),
		SoldAt:      time.Now().UTC(),
		Items: []domain.SaleItem{
			{SKU: sku, Quantity: 9, UnitPrice: price, LineTotal: decimal.NewFromInt(4050)},
		},
		Payments: []domain.Payment{
			{Mode: "CASH", Amount: decimal.NewFromInt(4050)},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	after, err = s.GetProductBySKU(ctx, sku)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.QuantityInStock != 8 {
		t.Fatalf("failed sale must not change stock, got %d", after.QuantityInStock)
	}

	// A purchase from the supplier restocks through the same product row.
	_, err = s.CreatePurchase(ctx, domain.Purchase{
		SupplierID:  supplier.ID,
		PurchasedAt: time.Now().UTC(),
		Items: []domain.PurchaseItem{
			{
				ProductVariantID:  variant.ID,
				Quantity:          5,
				UnitCost:          decimal.NewFromInt(200),
				EffectiveUnitCost: decimal.NewFromInt(210),
			},
		},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	after, err = s.GetProductBySKU(ctx, sku)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.QuantityInStock != 13 {
		t.Fatalf("expected stock 13 after restock, got %d", after.QuantityInStock)
	}
}
