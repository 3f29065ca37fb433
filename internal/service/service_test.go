package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stokpos/internal/cache"
	"stokpos/internal/costing"
	"stokpos/internal/domain"
	"stokpos/internal/pricing"
	"stokpos/internal/store"
	"stokpos/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopReportCache{}), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func saleRequest(sku string, qty int, price string, payMode string, payAmount string) domain.SaleCreateRequest {
	return domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{SKU: sku, Quantity: intPtr(qty), SellingPrice: decPtr(price)},
		},
		Payments: []domain.PaymentInput{
			{Mode: payMode, Amount: decPtr(payAmount)},
		},
	}
}

func stockOf(t *testing.T, svc *Service, sku string) int {
	t.Helper()
	rows, err := svc.Inventory(context.Background())
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	for _, row := range rows {
		if row.SKU == sku {
			return row.QuantityInStock
		}
	}
	t.Fatalf("sku %s not found in inventory", sku)
	return 0
}

func TestCreateSaleHappyPath(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	resp, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 2, "1299", "cash", "2598"))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	wantPrefix := "BILL-" + time.Now().UTC().Format("20060102") + "-"
	if !strings.HasPrefix(resp.BillNumber, wantPrefix) {
		t.Fatalf("expected bill number prefixed %s, got %s", wantPrefix, resp.BillNumber)
	}
	if !resp.TotalAmount.Equal(dec("2598")) {
		t.Fatalf("expected total 2598, got %s", resp.TotalAmount)
	}
	if got := stockOf(t, svc, "SHIRT-OXF-M-WHT"); got != 18 {
		t.Fatalf("expected stock 18 after sale, got %d", got)
	}
}

func TestCreateSaleRejectsPriceAboveMRP(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(adminCtx(), saleRequest("SHIRT-OXF-M-WHT", 1, "1500", "cash", "1500"))
	if !errors.Is(err, pricing.ErrPriceExceedsMRP) {
		t.Fatalf("expected ErrPriceExceedsMRP, got %v", err)
	}
	if got := stockOf(t, svc, "SHIRT-OXF-M-WHT"); got != 20 {
		t.Fatalf("rejected sale must not touch stock, got %d", got)
	}
}

func TestCreateSaleRejectsDiscountBeyondLimit(t *testing.T) {
	svc, _ := newTestService()

	// 1000 against mrp 1499 is a ~33% discount; the variant allows 25%.
	_, err := svc.CreateSale(adminCtx(), saleRequest("SHIRT-OXF-M-WHT", 1, "1000", "cash", "1000"))
	if !errors.Is(err, pricing.ErrDiscountExceedsLimit) {
		t.Fatalf("expected ErrDiscountExceedsLimit, got %v", err)
	}
	if got := stockOf(t, svc, "SHIRT-OXF-M-WHT"); got != 20 {
		t.Fatalf("rejected sale must not touch stock, got %d", got)
	}
}

func TestCreateSaleRejectsInsufficientStock(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(adminCtx(), saleRequest("SHIRT-OXF-M-WHT", 21, "1299", "cash", "27279"))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := stockOf(t, svc, "SHIRT-OXF-M-WHT"); got != 20 {
		t.Fatalf("rejected sale must not touch stock, got %d", got)
	}
}

func TestCreateSaleAggregatesRepeatedSKULines(t *testing.T) {
	svc, _ := newTestService()

	// Two lines of 12 each demand 24 units against a stock of 20.
	req := domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{SKU: "SHIRT-OXF-M-WHT", Quantity: intPtr(12), SellingPrice: decPtr("1299")},
			{SKU: "SHIRT-OXF-M-WHT", Quantity: intPtr(12), SellingPrice: decPtr("1299")},
		},
		Payments: []domain.PaymentInput{
			{Mode: "cash", Amount: decPtr("31176")},
		},
	}
	_, err := svc.CreateSale(adminCtx(), req)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock across lines, got %v", err)
	}
}

func TestCreateSalePaymentMismatch(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(adminCtx(), saleRequest("SHIRT-OXF-M-WHT", 1, "1299", "cash", "1297"))
	if !errors.Is(err, store.ErrPaymentMismatch) {
		t.Fatalf("expected ErrPaymentMismatch, got %v", err)
	}

	// A one paisa rounding difference is tolerated.
	if _, err := svc.CreateSale(adminCtx(), saleRequest("SHIRT-OXF-M-WHT", 1, "1299", "cash", "1299.01")); err != nil {
		t.Fatalf("expected 0.01 tolerance to pass, got %v", err)
	}
}

func TestCreateSaleUnknownSKU(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateSale(adminCtx(), saleRequest("NO-SUCH-SKU", 1, "10", "cash", "10"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSaleResolvesSKUsBeforePayments(t *testing.T) {
	svc, _ := newTestService()

	// Payments are off by far more than the tolerance, but SKU resolution
	// comes first, so the unknown SKU is what surfaces.
	_, err := svc.CreateSale(adminCtx(), saleRequest("NO-SUCH-SKU", 1, "10", "cash", "999"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSaleAllowsZeroAmountPayment(t *testing.T) {
	svc, _ := newTestService()

	// A 0.00 line on an otherwise balanced bill is fine; only negative
	// amounts are rejected.
	req := domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{SKU: "SHIRT-OXF-M-WHT", Quantity: intPtr(1), SellingPrice: decPtr("1299")},
		},
		Payments: []domain.PaymentInput{
			{Mode: "cash", Amount: decPtr("1299")},
			{Mode: "card", Amount: decPtr("0")},
		},
	}
	if _, err := svc.CreateSale(adminCtx(), req); err != nil {
		t.Fatalf("zero-amount payment rejected: %v", err)
	}

	req.Payments[1].Amount = decPtr("-1")
	if _, err := svc.CreateSale(adminCtx(), req); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative amount, got %v", err)
	}
}

func TestBillNumbersIncrementWithinDay(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	first, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 1, "1299", "cash", "1299"))
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	second, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-L-BLU", 1, "1299", "cash", "1299"))
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}

	if !strings.HasSuffix(first.BillNumber, "-0001") {
		t.Fatalf("expected first bill to end -0001, got %s", first.BillNumber)
	}
	if !strings.HasSuffix(second.BillNumber, "-0002") {
		t.Fatalf("expected second bill to end -0002, got %s", second.BillNumber)
	}
}

func TestConcurrentSalesNeverOversellAndBillsStayUnique(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	// 8 goroutines demand 24 units against a stock of 20, so at least two
	// must be rejected and the rest must never drive stock negative.
	const workers = 8
	bills := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 3, "1299", "cash", "3897"))
			if err != nil {
				if !errors.Is(err, store.ErrInsufficientStock) {
					t.Errorf("unexpected sale error: %v", err)
				}
				return
			}
			bills <- resp.BillNumber
		}()
	}
	wg.Wait()
	close(bills)

	seen := map[string]bool{}
	for bill := range bills {
		if seen[bill] {
			t.Fatalf("duplicate bill number %s", bill)
		}
		seen[bill] = true
	}

	stock := stockOf(t, svc, "SHIRT-OXF-M-WHT")
	if stock < 0 {
		t.Fatalf("stock went negative: %d", stock)
	}
	if stock != 20-3*len(seen) {
		t.Fatalf("expected stock %d after %d sales, got %d", 20-3*len(seen), len(seen), stock)
	}
}

func TestCreatePurchaseAllocatesExtraCharges(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	_, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID:   "sup-sharma",
		ExtraCharges: decPtr("100"),
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-oxford-m-white", Quantity: intPtr(3), UnitCost: decPtr("10")},
			{ProductVariantID: "var-oxford-l-blue", Quantity: intPtr(2), UnitCost: decPtr("20")},
		},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	if got := stockOf(t, svc, "SHIRT-OXF-M-WHT"); got != 23 {
		t.Fatalf("expected stock 23 after restock, got %d", got)
	}

	layers, err := repo.ListCostLayers(ctx)
	if err != nil {
		t.Fatalf("list layers: %v", err)
	}
	found := map[string]bool{}
	for _, layer := range layers {
		if layer.ProductVariantID == "var-oxford-m-white" && layer.Quantity == 3 && layer.EffectiveUnitCost.Equal(dec("30")) {
			found["m"] = true
		}
		if layer.ProductVariantID == "var-oxford-l-blue" && layer.Quantity == 2 && layer.EffectiveUnitCost.Equal(dec("40")) {
			found["l"] = true
		}
	}
	if !found["m"] || !found["l"] {
		t.Fatalf("expected effective costs 30 and 40 in layers, got %+v", layers)
	}
}

func TestCreatePurchaseUnknownSupplier(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreatePurchase(adminCtx(), domain.PurchaseCreateRequest{
		SupplierID: "sup-nope",
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-oxford-m-white", Quantity: intPtr(1), UnitCost: decPtr("10")},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePurchaseUnknownVariant(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreatePurchase(adminCtx(), domain.PurchaseCreateRequest{
		SupplierID: "sup-sharma",
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-nope", Quantity: intPtr(1), UnitCost: decPtr("10")},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePurchaseNoMatchingProduct(t *testing.T) {
	svc, _ := newTestService()

	// Mehta only supplies jeans; shipping shirts from them has no product row.
	_, err := svc.CreatePurchase(adminCtx(), domain.PurchaseCreateRequest{
		SupplierID: "sup-mehta",
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-oxford-m-white", Quantity: intPtr(5), UnitCost: decPtr("10")},
		},
	})
	if !errors.Is(err, store.ErrNoMatchingProduct) {
		t.Fatalf("expected ErrNoMatchingProduct, got %v", err)
	}
}

func TestDailySalesAggregatesPaymentsByMode(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	req := domain.SaleCreateRequest{
		Items: []domain.SaleItemInput{
			{SKU: "SHIRT-OXF-M-WHT", Quantity: intPtr(2), SellingPrice: decPtr("1299")},
		},
		Payments: []domain.PaymentInput{
			{Mode: "card", Provider: "visa", Amount: decPtr("2000")},
			{Mode: "", Amount: decPtr("598")},
		},
	}
	if _, err := svc.CreateSale(ctx, req); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	report, err := svc.DailySales(ctx, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if report.TotalBills != 1 || report.TotalItems != 2 {
		t.Fatalf("expected 1 bill / 2 items, got %d / %d", report.TotalBills, report.TotalItems)
	}
	if !report.TotalRevenue.Equal(dec("2598")) {
		t.Fatalf("expected revenue 2598, got %s", report.TotalRevenue)
	}
	if !report.Payments["CARD"].Equal(dec("2000")) {
		t.Fatalf("expected CARD 2000, got %s", report.Payments["CARD"])
	}
	// An empty mode is grouped under CASH.
	if !report.Payments["CASH"].Equal(dec("598")) {
		t.Fatalf("expected CASH 598, got %s", report.Payments["CASH"])
	}
}

func TestDailySalesRequiresDate(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.DailySales(context.Background(), ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing date, got %v", err)
	}
	if _, err := svc.DailySales(context.Background(), "garbage"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for malformed date, got %v", err)
	}
}

type recordingCache struct {
	data map[string]*domain.DailySalesReport
	sets int
	gets int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: map[string]*domain.DailySalesReport{}}
}

func (c *recordingCache) Get(_ context.Context, key string) (*domain.DailySalesReport, bool, error) {
	c.gets++
	report, ok := c.data[key]
	return report, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value *domain.DailySalesReport, _ time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func TestDailySalesCachesClosedDaysOnly(t *testing.T) {
	reports := newRecordingCache()
	svc := New(memory.NewSeeded(), reports)
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	if _, err := svc.DailySales(ctx, yesterday); err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if reports.sets != 1 {
		t.Fatalf("expected closed day to be cached, sets=%d", reports.sets)
	}

	if _, err := svc.DailySales(ctx, yesterday); err != nil {
		t.Fatalf("daily sales (cached): %v", err)
	}
	if reports.sets != 1 {
		t.Fatalf("expected cache hit, sets=%d", reports.sets)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if _, err := svc.DailySales(ctx, today); err != nil {
		t.Fatalf("daily sales (today): %v", err)
	}
	if reports.sets != 1 {
		t.Fatalf("current day must never be cached, sets=%d", reports.sets)
	}
}

func TestInventoryValuationUsesAverageEffectiveCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 2, "1299", "cash", "2598")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	rows, err := svc.InventoryValuation(ctx)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}

	var oxford *domain.ValuationRow
	for i := range rows {
		if rows[i].ProductVariantID == "var-oxford-m-white" {
			oxford = &rows[i]
		}
	}
	if oxford == nil {
		t.Fatalf("oxford variant missing from valuation")
	}
	if oxford.QuantityInStock != 18 {
		t.Fatalf("expected 18 in stock, got %d", oxford.QuantityInStock)
	}
	if !oxford.AverageUnitCost.Equal(dec("650")) {
		t.Fatalf("expected average cost 650, got %s", oxford.AverageUnitCost)
	}
	if !oxford.StockValue.Equal(dec("11700")) {
		t.Fatalf("expected stock value 11700, got %s", oxford.StockValue)
	}
}

func TestInventoryAgingConsumesOldestLayersFirst(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	// Restock 5 units today, then sell 22: the 20-unit layer from 45 days
	// ago is exhausted and 2 units come out of the fresh layer.
	if _, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID: "sup-sharma",
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-oxford-m-white", Quantity: intPtr(5), UnitCost: decPtr("700")},
		},
	}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 11, "1299", "cash", "14289")); err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
	}

	report, err := svc.InventoryAging(ctx, "", "cat-shirts")
	if err != nil {
		t.Fatalf("aging: %v", err)
	}

	for _, item := range report.Items {
		if item.ProductVariantID != "var-oxford-m-white" {
			continue
		}
		if item.Quantity != 3 {
			t.Fatalf("expected 3 units left in the fresh layer, got %d", item.Quantity)
		}
		if item.Bucket != costing.BucketFresh {
			t.Fatalf("expected fresh bucket, got %s", item.Bucket)
		}
		if item.SuggestedDiscountPercent != 0 {
			t.Fatalf("fresh stock should not be discounted, got %v", item.SuggestedDiscountPercent)
		}
		return
	}

	// The old layer must be fully consumed.
	sold, _ := repo.SoldQuantities(ctx)
	t.Fatalf("no remaining oxford layer found (sold=%v, items=%+v)", sold, report.Items)
}

func TestInventoryAgingSuggestionCappedByCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	category, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Clearance"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	supplier, err := svc.CreateSupplier(ctx, domain.SupplierCreateRequest{Name: "Clearance Traders"})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	variant, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{
		CategoryID:          category.ID,
		Name:                "Thin Margin Jacket",
		MRP:                 decPtr("100"),
		DefaultSellingPrice: decPtr("90"),
		MaxDiscountPercent:  floatPtr(50),
	})
	if err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:              "JACKET-THIN",
		ProductVariantID: variant.ID,
		SupplierID:       supplier.ID,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	purchasedAt := time.Now().UTC().AddDate(0, 0, -120).Format(time.RFC3339)
	if _, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID:  supplier.ID,
		PurchasedAt: purchasedAt,
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: variant.ID, Quantity: intPtr(10), UnitCost: decPtr("95")},
		},
	}); err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	report, err := svc.InventoryAging(ctx, "", category.ID)
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("expected one aging item, got %d", len(report.Items))
	}

	item := report.Items[0]
	if item.Bucket != costing.BucketDeadWood {
		t.Fatalf("expected 90+ bucket, got %s", item.Bucket)
	}
	// 20% off 90 is 72, below the 95 cost, so the price floors at cost.
	if !item.SuggestedPrice.Equal(dec("95")) {
		t.Fatalf("expected suggested price 95, got %s", item.SuggestedPrice)
	}
	if !item.DiscountCappedByCost {
		t.Fatalf("expected suggestion flagged as cost capped")
	}
}

func TestSalesProfitUsesAverageCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 2, "1299", "cash", "2598")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	report, err := svc.SalesProfit(ctx, today, today)
	if err != nil {
		t.Fatalf("profit: %v", err)
	}
	if len(report.Sales) != 1 {
		t.Fatalf("expected one bill, got %d", len(report.Sales))
	}
	// Revenue 2598 minus 2 units at an average cost of 650.
	if !report.Sales[0].Profit.Equal(dec("1298")) {
		t.Fatalf("expected profit 1298, got %s", report.Sales[0].Profit)
	}
	if !report.TotalProfit.Equal(dec("1298")) {
		t.Fatalf("expected total profit 1298, got %s", report.TotalProfit)
	}
}

func TestCreateVariantValidatesAttributes(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	// Shirts define size/color as strings.
	_, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{
		CategoryID:          "cat-shirts",
		Name:                "Bad Attr Shirt",
		Attributes:          map[string]any{"size": float64(42)},
		MRP:                 decPtr("999"),
		DefaultSellingPrice: decPtr("899"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected type mismatch rejection, got %v", err)
	}

	_, err = svc.CreateVariant(ctx, domain.VariantCreateRequest{
		CategoryID:          "cat-shirts",
		Name:                "Unknown Attr Shirt",
		Attributes:          map[string]any{"fabric": "linen"},
		MRP:                 decPtr("999"),
		DefaultSellingPrice: decPtr("899"),
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown attribute rejection, got %v", err)
	}

	if _, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{
		CategoryID:          "cat-shirts",
		Name:                "Good Shirt",
		Attributes:          map[string]any{"size": "S", "color": "red"},
		MRP:                 decPtr("999"),
		DefaultSellingPrice: decPtr("899"),
	}); err != nil {
		t.Fatalf("valid attributes rejected: %v", err)
	}

	// Jeans have no definitions, so attributes pass through untouched.
	if _, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{
		CategoryID:          "cat-jeans",
		Name:                "Free Attr Jeans",
		Attributes:          map[string]any{"anything": true},
		MRP:                 decPtr("999"),
		DefaultSellingPrice: decPtr("899"),
	}); err != nil {
		t.Fatalf("opaque attributes rejected: %v", err)
	}
}

func TestAuditLogWrittenOnSale(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateSale(ctx, saleRequest("SHIRT-OXF-M-WHT", 1, "1299", "cash", "1299")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "", 50)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	for _, entry := range logs {
		if entry.Action == "sale_create" && entry.ActorUsername == "admin" {
			return
		}
	}
	t.Fatalf("expected a sale_create audit entry, got %+v", logs)
}

func TestSalesSummaryRejectsBadRange(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.SalesSummary(context.Background(), "2026-08-20", "2026-08-10"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
	if _, err := svc.SalesSummary(context.Background(), "garbage", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for garbage date, got %v", err)
	}
}

func TestCreateSaleWithoutActorStillAudits(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CreateSale(context.Background(), saleRequest("JEANS-SLIM-32", 1, "1999", "upi", "1999")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	logs, err := svc.ListAuditLogs(context.Background(), "", 50)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	for _, entry := range logs {
		if entry.Action == "sale_create" && entry.ActorUsername == "system" {
			return
		}
	}
	t.Fatalf("expected a system-attributed audit entry")
}

func TestCreatePurchaseRejectsBadTimestamp(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreatePurchase(adminCtx(), domain.PurchaseCreateRequest{
		SupplierID:  "sup-sharma",
		PurchasedAt: "not-a-date",
		Items: []domain.PurchaseItemInput{
			{ProductVariantID: "var-oxford-m-white", Quantity: intPtr(1), UnitCost: decPtr("10")},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSalesListReturnsBills(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateSale(ctx, saleRequest("JEANS-SLIM-32", 2, "1999", "cash", "3998")); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	sales, err := svc.SalesList(ctx, today, today)
	if err != nil {
		t.Fatalf("sales list: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected one sale, got %d", len(sales))
	}
	if len(sales[0].Items) != 1 || sales[0].Items[0].Quantity != 2 {
		t.Fatalf("expected the bill's items to round-trip, got %+v", sales[0].Items)
	}
	if sales[0].Items[0].SKU != "JEANS-SLIM-32" {
		t.Fatalf("unexpected sku %s", sales[0].Items[0].SKU)
	}
}
