package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stokpos/internal/cache"
	"stokpos/internal/costing"
	"stokpos/internal/domain"
	"stokpos/internal/store"
	"stokpos/internal/xid"
)

const reportCacheTTL = 7 * 24 * time.Hour

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	return &Service{repo: repo, reports: reports}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name, Slug: slug})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, "category_create", "category", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	if categoryID == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListSubcategories(ctx, categoryID)
}

func (s *Service) CreateSubcategory(ctx context.Context, categoryID string, req domain.SubcategoryCreateRequest) (domain.Subcategory, error) {
	name := strings.TrimSpace(req.Name)
	if categoryID == "" || name == "" {
		return domain.Subcategory{}, store.ErrInvalidInput
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugify(name)
	}

	created, err := s.repo.CreateSubcategory(ctx, domain.Subcategory{CategoryID: categoryID, Name: name, Slug: slug})
	if err != nil {
		return domain.Subcategory{}, err
	}

	s.logAudit(ctx, "subcategory_create", "subcategory", created.ID, fmt.Sprintf("category=%s,name=%s", categoryID, created.Name))
	return *created, nil
}

func (s *Service) ListAttributeDefinitions(ctx context.Context, categoryID string) ([]domain.AttributeDefinition, error) {
	if categoryID == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListAttributeDefinitions(ctx, categoryID)
}

func (s *Service) CreateAttributeDefinition(ctx context.Context, categoryID string, req domain.AttributeDefinitionCreateRequest) (domain.AttributeDefinition, error) {
	key := strings.ToLower(strings.TrimSpace(req.Key))
	if categoryID == "" || key == "" {
		return domain.AttributeDefinition{}, store.ErrInvalidInput
	}
	attrType := strings.ToLower(strings.TrimSpace(req.Type))
	switch attrType {
	case domain.AttributeTypeString, domain.AttributeTypeNumber, domain.AttributeTypeBool:
	default:
		return domain.AttributeDefinition{}, fmt.Errorf("unsupported attribute type %q: %w", req.Type, store.ErrInvalidInput)
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = key
	}

	created, err := s.repo.CreateAttributeDefinition(ctx, domain.AttributeDefinition{
		CategoryID: categoryID,
		Key:        key,
		Label:      label,
		Type:       attrType,
	})
	if err != nil {
		return domain.AttributeDefinition{}, err
	}

	s.logAudit(ctx, "attribute_definition_create", "attribute_definition", created.ID, fmt.Sprintf("category=%s,key=%s,type=%s", categoryID, created.Key, created.Type))
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Supplier{}, store.ErrInvalidInput
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{Name: name, Code: code, CreatedAt: time.Now().UTC()})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_create", "supplier", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListVariants(ctx context.Context, categoryID string) ([]domain.ProductVariant, error) {
	return s.repo.ListVariants(ctx, categoryID)
}

func (s *Service) CreateVariant(ctx context.Context, req domain.VariantCreateRequest) (domain.ProductVariant, error) {
	name := strings.TrimSpace(req.Name)
	if req.CategoryID == "" || name == "" || req.MRP == nil || req.DefaultSellingPrice == nil {
		return domain.ProductVariant{}, store.ErrInvalidInput
	}
	if req.MRP.IsNegative() || req.DefaultSellingPrice.IsNegative() {
		return domain.ProductVariant{}, store.ErrInvalidInput
	}
	maxDiscount := float64(0)
	if req.MaxDiscountPercent != nil {
		maxDiscount = *req.MaxDiscountPercent
	}
	if maxDiscount < 0 || maxDiscount > 100 {
		return domain.ProductVariant{}, store.ErrInvalidInput
	}
	if req.DefaultSellingPrice.GreaterThan(*req.MRP) && req.MRP.IsPositive() {
		return domain.ProductVariant{}, fmt.Errorf("default selling price above mrp: %w", store.ErrInvalidInput)
	}

	if err := s.validateAttributes(ctx, req.CategoryID, req.Attributes); err != nil {
		return domain.ProductVariant{}, err
	}

	created, err := s.repo.CreateVariant(ctx, domain.ProductVariant{
		CategoryID:          req.CategoryID,
		SubcategoryID:       req.SubcategoryID,
		Name:                name,
		Attributes:          req.Attributes,
		MRP:                 *req.MRP,
		DefaultSellingPrice: *req.DefaultSellingPrice,
		MaxDiscountPercent:  maxDiscount,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		return domain.ProductVariant{}, err
	}

	s.logAudit(ctx, "variant_create", "product_variant", created.ID, fmt.Sprintf("name=%s,mrp=%s", created.Name, created.MRP))
	return *created, nil
}

// validateAttributes checks variant attributes against the category's
// definitions. A category with no definitions accepts any scalar metadata.
func (s *Service) validateAttributes(ctx context.Context, categoryID string, attrs map[string]any) error {
	defs, err := s.repo.ListAttributeDefinitions(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}

	byKey := make(map[string]string, len(defs))
	for _, def := range defs {
		byKey[def.Key] = def.Type
	}

	for key, value := range attrs {
		attrType, ok := byKey[strings.ToLower(key)]
		if !ok {
			return fmt.Errorf("attribute %q not defined for category: %w", key, store.ErrInvalidInput)
		}
		switch attrType {
		case domain.AttributeTypeString:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("attribute %q must be a string: %w", key, store.ErrInvalidInput)
			}
		case domain.AttributeTypeNumber:
			// JSON numbers decode to float64.
			if _, ok := value.(float64); !ok {
				return fmt.Errorf("attribute %q must be a number: %w", key, store.ErrInvalidInput)
			}
		case domain.AttributeTypeBool:
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("attribute %q must be a boolean: %w", key, store.ErrInvalidInput)
			}
		}
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.InventoryRow, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantIndex(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.InventoryRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, domain.InventoryRow{
			SKU:              p.SKU,
			ProductVariantID: p.ProductVariantID,
			VariantName:      variants[p.ProductVariantID].Name,
			SupplierID:       p.SupplierID,
			QuantityInStock:  p.QuantityInStock,
		})
	}
	return rows, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if req.ProductVariantID == "" || req.SupplierID == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		sku = strings.ToUpper(xid.New("sku"))
	}
	initialStock := 0
	if req.InitialStock != nil {
		initialStock = *req.InitialStock
	}
	if initialStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		SKU:              sku,
		ProductVariantID: req.ProductVariantID,
		SupplierID:       req.SupplierID,
		QuantityInStock:  initialStock,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,stock=%d", created.SKU, initialStock))
	return *created, nil
}

// CreateSale validates and prices the bill, then hands it to the store,
// whose transaction resolves SKUs, checks stock and pricing and only then
// reconciles payments against the total. Nothing is written when any line
// or the payment set fails validation.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleCreateResponse, error) {
	if len(req.Items) == 0 || len(req.Payments) == 0 {
		return domain.SaleCreateResponse{}, store.ErrInvalidInput
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	total := decimal.Zero
	for _, input := range req.Items {
		sku := strings.ToUpper(strings.TrimSpace(input.SKU))
		if sku == "" || input.Quantity == nil || *input.Quantity < 1 {
			return domain.SaleCreateResponse{}, store.ErrInvalidInput
		}
		if input.SellingPrice == nil || input.SellingPrice.IsNegative() {
			return domain.SaleCreateResponse{}, store.ErrInvalidInput
		}

		lineTotal := input.SellingPrice.Mul(decimal.NewFromInt(int64(*input.Quantity))).Round(2)
		items = append(items, domain.SaleItem{
			SKU:       sku,
			Quantity:  *input.Quantity,
			UnitPrice: *input.SellingPrice,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	payments := make([]domain.Payment, 0, len(req.Payments))
	for _, input := range req.Payments {
		if input.Amount == nil || input.Amount.IsNegative() {
			return domain.SaleCreateResponse{}, store.ErrInvalidInput
		}
		payments = append(payments, domain.Payment{
			Mode:     normalizePaymentMode(input.Mode),
			Provider: strings.TrimSpace(input.Provider),
			Amount:   *input.Amount,
		})
	}

	created, err := s.repo.CreateSale(ctx, domain.Sale{
		TotalAmount: total,
		SoldAt:      time.Now().UTC(),
		Items:       items,
		Payments:    payments,
	})
	if err != nil {
		return domain.SaleCreateResponse{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("bill=%s,total=%s,items=%d", created.BillNumber, created.TotalAmount, len(created.Items)))

	return domain.SaleCreateResponse{
		SaleID:      created.ID,
		BillNumber:  created.BillNumber,
		TotalAmount: created.TotalAmount,
		SoldAt:      created.SoldAt,
	}, nil
}

// CreatePurchase computes landed costs for every line by spreading the
// purchase's extra charges across quantities, then records the shipment.
func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.PurchaseCreateResponse, error) {
	if req.SupplierID == "" || len(req.Items) == 0 {
		return domain.PurchaseCreateResponse{}, store.ErrInvalidInput
	}

	extraCharges := decimal.Zero
	if req.ExtraCharges != nil {
		if req.ExtraCharges.IsNegative() {
			return domain.PurchaseCreateResponse{}, store.ErrInvalidInput
		}
		extraCharges = *req.ExtraCharges
	}

	purchasedAt := time.Now().UTC()
	if strings.TrimSpace(req.PurchasedAt) != "" {
		parsed, err := parseTimestamp(req.PurchasedAt)
		if err != nil {
			return domain.PurchaseCreateResponse{}, fmt.Errorf("purchasedAt: %w", store.ErrInvalidInput)
		}
		purchasedAt = parsed
	}

	quantities := make([]int, 0, len(req.Items))
	unitCosts := make([]decimal.Decimal, 0, len(req.Items))
	for _, input := range req.Items {
		if input.ProductVariantID == "" || input.Quantity == nil || *input.Quantity < 1 {
			return domain.PurchaseCreateResponse{}, store.ErrInvalidInput
		}
		if input.UnitCost == nil || input.UnitCost.IsNegative() {
			return domain.PurchaseCreateResponse{}, store.ErrInvalidInput
		}
		quantities = append(quantities, *input.Quantity)
		unitCosts = append(unitCosts, *input.UnitCost)
	}

	effective := costing.Allocate(quantities, unitCosts, extraCharges)

	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for i, input := range req.Items {
		items = append(items, domain.PurchaseItem{
			ProductVariantID:  input.ProductVariantID,
			Quantity:          quantities[i],
			UnitCost:          unitCosts[i],
			EffectiveUnitCost: effective[i],
		})
	}

	created, err := s.repo.CreatePurchase(ctx, domain.Purchase{
		SupplierID:   req.SupplierID,
		PurchasedAt:  purchasedAt,
		InvoiceNo:    strings.TrimSpace(req.InvoiceNo),
		Notes:        strings.TrimSpace(req.Notes),
		ExtraCharges: extraCharges,
		Items:        items,
	})
	if err != nil {
		return domain.PurchaseCreateResponse{}, err
	}

	s.logAudit(ctx, "purchase_create", "purchase", created.ID, fmt.Sprintf("supplier=%s,items=%d,extra=%s", created.SupplierID, len(created.Items), extraCharges))

	return domain.PurchaseCreateResponse{PurchaseID: created.ID}, nil
}

// DailySales aggregates one day's bills. Days strictly before today are
// immutable, so those reports are served from and written to the report
// cache; the current day is always recomputed.
func (s *Service) DailySales(ctx context.Context, date string) (domain.DailySalesReport, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return domain.DailySalesReport{}, fmt.Errorf("date required: %w", store.ErrInvalidInput)
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.DailySalesReport{}, fmt.Errorf("date: %w", store.ErrInvalidInput)
	}
	day = day.UTC()
	dateStr := day.Format("2006-01-02")
	closed := day.Before(midnightUTC(time.Now()))

	cacheKey := "report:daily-sales:" + dateStr
	if closed {
		if cached, ok, err := s.reports.Get(ctx, cacheKey); err == nil && ok {
			return *cached, nil
		} else if err != nil {
			log.Printf("[service] WARN: report cache read failed key=%s: %v", cacheKey, err)
		}
	}

	sales, err := s.repo.ListSalesBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return domain.DailySalesReport{}, err
	}

	report := domain.DailySalesReport{
		Date:         dateStr,
		TotalRevenue: decimal.Zero,
		Payments:     map[string]decimal.Decimal{},
	}
	for _, sale := range sales {
		report.TotalBills++
		report.TotalRevenue = report.TotalRevenue.Add(sale.TotalAmount)
		for _, item := range sale.Items {
			report.TotalItems += item.Quantity
		}
		for _, payment := range sale.Payments {
			mode := normalizePaymentMode(payment.Mode)
			report.Payments[mode] = report.Payments[mode].Add(payment.Amount)
		}
	}
	report.TotalRevenue = report.TotalRevenue.Round(2)
	for mode, amount := range report.Payments {
		report.Payments[mode] = amount.Round(2)
	}

	if closed {
		if err := s.reports.Set(ctx, cacheKey, &report, reportCacheTTL); err != nil {
			log.Printf("[service] WARN: report cache write failed key=%s: %v", cacheKey, err)
		}
	}
	return report, nil
}

func (s *Service) SalesSummary(ctx context.Context, from string, to string) (domain.SalesSummaryReport, error) {
	fromAt, toAt, err := parseRange(from, to)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}

	sales, err := s.repo.ListSalesBetween(ctx, fromAt, toAt)
	if err != nil {
		return domain.SalesSummaryReport{}, err
	}

	report := domain.SalesSummaryReport{
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		Payments:     map[string]decimal.Decimal{},
	}
	for _, sale := range sales {
		report.TotalBills++
		report.TotalRevenue = report.TotalRevenue.Add(sale.TotalAmount)
		for _, item := range sale.Items {
			report.TotalItems += item.Quantity
		}
		for _, payment := range sale.Payments {
			mode := normalizePaymentMode(payment.Mode)
			report.Payments[mode] = report.Payments[mode].Add(payment.Amount)
		}
	}
	report.TotalRevenue = report.TotalRevenue.Round(2)
	for mode, amount := range report.Payments {
		report.Payments[mode] = amount.Round(2)
	}
	return report, nil
}

func (s *Service) SalesList(ctx context.Context, from string, to string) ([]domain.Sale, error) {
	fromAt, toAt, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSalesBetween(ctx, fromAt, toAt)
}

// SalesProfit estimates per-bill profit as revenue minus the average
// effective unit cost of each line's variant over all received layers.
func (s *Service) SalesProfit(ctx context.Context, from string, to string) (domain.SalesProfitReport, error) {
	fromAt, toAt, err := parseRange(from, to)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}

	sales, err := s.repo.ListSalesBetween(ctx, fromAt, toAt)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}
	layers, err := s.repo.ListCostLayers(ctx)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.SalesProfitReport{}, err
	}

	variantByProduct := make(map[string]string, len(products))
	for _, p := range products {
		variantByProduct[p.ID] = p.ProductVariantID
	}
	averages := costing.AverageCosts(layers)

	report := domain.SalesProfitReport{
		From:        from,
		To:          to,
		TotalProfit: decimal.Zero,
		Sales:       make([]domain.SaleProfitRow, 0, len(sales)),
	}
	for _, sale := range sales {
		cost := decimal.Zero
		for _, item := range sale.Items {
			avg := averages[variantByProduct[item.ProductID]]
			cost = cost.Add(avg.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		profit := sale.TotalAmount.Sub(cost).Round(2)
		report.Sales = append(report.Sales, domain.SaleProfitRow{
			SaleID:      sale.ID,
			BillNumber:  sale.BillNumber,
			SoldAt:      sale.SoldAt,
			TotalAmount: sale.TotalAmount,
			Profit:      profit,
		})
		report.TotalProfit = report.TotalProfit.Add(profit)
	}
	report.TotalProfit = report.TotalProfit.Round(2)
	return report, nil
}

func (s *Service) Inventory(ctx context.Context) ([]domain.InventoryRow, error) {
	return s.ListProducts(ctx)
}

// InventoryValuation values current stock per variant at the average
// effective unit cost. Variants with nothing in stock are skipped.
func (s *Service) InventoryValuation(ctx context.Context) ([]domain.ValuationRow, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	layers, err := s.repo.ListCostLayers(ctx)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantIndex(ctx)
	if err != nil {
		return nil, err
	}

	stockByVariant := make(map[string]int, len(products))
	for _, p := range products {
		stockByVariant[p.ProductVariantID] += p.QuantityInStock
	}
	averages := costing.AverageCosts(layers)

	rows := make([]domain.ValuationRow, 0, len(stockByVariant))
	for variantID, stock := range stockByVariant {
		if stock < 1 {
			continue
		}
		avg := averages[variantID]
		rows = append(rows, domain.ValuationRow{
			ProductVariantID: variantID,
			VariantName:      variants[variantID].Name,
			QuantityInStock:  stock,
			AverageUnitCost:  avg.Round(2),
			StockValue:       avg.Mul(decimal.NewFromInt(int64(stock))).Round(2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].VariantName < rows[j].VariantName
	})
	return rows, nil
}

// InventoryAging reconstructs the unsold stock layers per variant by
// consuming lifetime sold quantities from the oldest purchases first, then
// buckets the remainder by age and suggests a markdown for each layer.
func (s *Service) InventoryAging(ctx context.Context, asOfDate string, categoryID string) (domain.InventoryAgingReport, error) {
	asOf, err := parseDayOrToday(asOfDate)
	if err != nil {
		return domain.InventoryAgingReport{}, fmt.Errorf("asOfDate: %w", store.ErrInvalidInput)
	}

	layers, err := s.repo.ListCostLayers(ctx)
	if err != nil {
		return domain.InventoryAgingReport{}, err
	}
	sold, err := s.repo.SoldQuantities(ctx)
	if err != nil {
		return domain.InventoryAgingReport{}, err
	}
	variants, err := s.variantIndex(ctx)
	if err != nil {
		return domain.InventoryAgingReport{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.InventoryAgingReport{}, err
	}

	// One display SKU per variant: the lexicographically smallest.
	skuByVariant := make(map[string]string, len(products))
	for _, p := range products {
		if existing, ok := skuByVariant[p.ProductVariantID]; !ok || p.SKU < existing {
			skuByVariant[p.ProductVariantID] = p.SKU
		}
	}

	layersByVariant := make(map[string][]domain.CostLayer)
	for _, layer := range layers {
		layersByVariant[layer.ProductVariantID] = append(layersByVariant[layer.ProductVariantID], layer)
	}

	report := domain.InventoryAgingReport{
		AsOfDate: asOf.Format("2006-01-02"),
		Buckets: map[string]domain.AgingBucketTotal{
			costing.BucketFresh:    {Value: decimal.Zero},
			costing.BucketAging:    {Value: decimal.Zero},
			costing.BucketStale:    {Value: decimal.Zero},
			costing.BucketDeadWood: {Value: decimal.Zero},
		},
		Items: make([]domain.AgingItem, 0, len(layers)),
	}

	for variantID, variantLayers := range layersByVariant {
		variant, ok := variants[variantID]
		if !ok {
			continue
		}
		if categoryID != "" && variant.CategoryID != categoryID {
			continue
		}
		for _, layer := range costing.RemainingLayers(variantLayers, sold[variantID]) {
			ageDays := costing.AgeDays(layer.PurchasedAt, asOf)
			bucket := costing.BucketFor(ageDays)
			value := layer.EffectiveUnitCost.Mul(decimal.NewFromInt(int64(layer.Quantity))).Round(2)
			suggestion := costing.SuggestDiscount(variant, layer.EffectiveUnitCost, ageDays)

			report.Items = append(report.Items, domain.AgingItem{
				SKU:                      skuByVariant[variantID],
				ProductVariantID:         variantID,
				PurchasedAt:              layer.PurchasedAt,
				AgeDays:                  ageDays,
				Bucket:                   bucket,
				Quantity:                 layer.Quantity,
				Value:                    value,
				SuggestedDiscountPercent: suggestion.DiscountPercent,
				SuggestedPrice:           suggestion.Price,
				DiscountCappedByCost:     suggestion.CappedByCost,
			})

			totals := report.Buckets[bucket]
			totals.Quantity += layer.Quantity
			totals.Value = totals.Value.Add(value)
			report.Buckets[bucket] = totals
		}
	}

	sort.Slice(report.Items, func(i, j int) bool {
		if report.Items[i].AgeDays != report.Items[j].AgeDays {
			return report.Items[i].AgeDays > report.Items[j].AgeDays
		}
		return report.Items[i].SKU < report.Items[j].SKU
	})
	return report, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	day, err := parseDayOrToday(date)
	if err != nil {
		return nil, fmt.Errorf("date: %w", store.ErrInvalidInput)
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, day, day.AddDate(0, 0, 1), limit)
}

func (s *Service) variantIndex(ctx context.Context) (map[string]domain.ProductVariant, error) {
	variants, err := s.repo.ListVariants(ctx, "")
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.ProductVariant, len(variants))
	for _, v := range variants {
		index[v.ID] = v
	}
	return index, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func normalizePaymentMode(mode string) string {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		return domain.PaymentModeCash
	}
	return mode
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func parseDayOrToday(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return midnightUTC(time.Now()), nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, err
	}
	return day.UTC(), nil
}

// parseRange turns optional from/to dates into a half-open interval. An
// empty from means the beginning of time; to is inclusive of its whole day
// and defaults to today.
func parseRange(from string, to string) (time.Time, time.Time, error) {
	fromAt := time.Time{}
	if strings.TrimSpace(from) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(from))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from: %w", store.ErrInvalidInput)
		}
		fromAt = parsed.UTC()
	}

	toDay := midnightUTC(time.Now())
	if strings.TrimSpace(to) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(to))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to: %w", store.ErrInvalidInput)
		}
		toDay = parsed.UTC()
	}
	toAt := toDay.AddDate(0, 0, 1)

	if !fromAt.IsZero() && toAt.Before(fromAt) {
		return time.Time{}, time.Time{}, fmt.Errorf("from after to: %w", store.ErrInvalidInput)
	}
	return fromAt, toAt, nil
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
