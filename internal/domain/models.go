package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups product variants and owns their subcategories and
// attribute definitions.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Subcategory struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

// AttributeDefinition declares an attribute key allowed on variants of a
// category. Type is one of "string", "number" or "bool". When a category
// has definitions, variant attributes are validated against them at write
// time; otherwise attributes are opaque metadata.
type AttributeDefinition struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Key        string `json:"key"`
	Label      string `json:"label"`
	Type       string `json:"type"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductVariant is a priceable SKU template: category + attributes +
// pricing rules. It is immutable once a Product references it.
type ProductVariant struct {
	ID                  string          `json:"id"`
	CategoryID          string          `json:"category_id"`
	SubcategoryID       string          `json:"subcategory_id,omitempty"`
	Name                string          `json:"name"`
	Attributes          map[string]any  `json:"attributes,omitempty"`
	MRP                 decimal.Decimal `json:"mrp"`
	DefaultSellingPrice decimal.Decimal `json:"default_selling_price"`
	MaxDiscountPercent  float64         `json:"max_discount_percent"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Product is the physical stock-keeping record: one row per
// (variant, supplier) combination actually stocked.
type Product struct {
	ID               string    `json:"id"`
	SKU              string    `json:"sku"`
	ProductVariantID string    `json:"product_variant_id"`
	SupplierID       string    `json:"supplier_id"`
	QuantityInStock  int       `json:"quantity_in_stock"`
	CreatedAt        time.Time `json:"created_at"`
}

// Purchase is a supplier shipment. Created once, never mutated.
type Purchase struct {
	ID           string          `json:"id"`
	SupplierID   string          `json:"supplier_id"`
	PurchasedAt  time.Time       `json:"purchased_at"`
	InvoiceNo    string          `json:"invoice_no,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	ExtraCharges decimal.Decimal `json:"extra_charges"`
	Items        []PurchaseItem  `json:"items"`
}

// PurchaseItem is one shipment line. EffectiveUnitCost is the unit cost
// plus a quantity-proportional share of the purchase's extra charges,
// computed once at creation and stored; it is the cost layer used by both
// the average-cost and FIFO valuation methods.
type PurchaseItem struct {
	ID                string          `json:"id"`
	PurchaseID        string          `json:"purchase_id"`
	ProductVariantID  string          `json:"product_variant_id"`
	Quantity          int             `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	EffectiveUnitCost decimal.Decimal `json:"effective_unit_cost"`
}

type Sale struct {
	ID          string          `json:"id"`
	BillNumber  string          `json:"bill_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SoldAt      time.Time       `json:"sold_at"`
	Items       []SaleItem      `json:"items"`
	Payments    []Payment       `json:"payments"`
}

type SaleItem struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Payment struct {
	ID       string          `json:"id"`
	SaleID   string          `json:"sale_id"`
	Mode     string          `json:"mode"`
	Provider string          `json:"provider,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// CostLayer is a purchase line flattened for costing: one batch of units
// received at one effective unit cost on one date.
type CostLayer struct {
	ProductVariantID  string          `json:"product_variant_id"`
	PurchasedAt       time.Time       `json:"purchased_at"`
	Quantity          int             `json:"quantity"`
	EffectiveUnitCost decimal.Decimal `json:"effective_unit_cost"`
}

// --- request / response shapes ---

type SaleItemInput struct {
	SKU          string           `json:"sku"`
	Quantity     *int             `json:"quantity"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
}

type PaymentInput struct {
	Mode     string           `json:"mode"`
	Provider string           `json:"provider,omitempty"`
	Amount   *decimal.Decimal `json:"amount"`
}

type SaleCreateRequest struct {
	Items    []SaleItemInput `json:"items"`
	Payments []PaymentInput  `json:"payments"`
}

type SaleCreateResponse struct {
	SaleID      string          `json:"saleId"`
	BillNumber  string          `json:"billNumber"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	SoldAt      time.Time       `json:"soldAt"`
}

type PurchaseItemInput struct {
	ProductVariantID string           `json:"productVariantId"`
	Quantity         *int             `json:"quantity"`
	UnitCost         *decimal.Decimal `json:"unitCost"`
}

type PurchaseCreateRequest struct {
	SupplierID   string              `json:"supplierId"`
	PurchasedAt  string              `json:"purchasedAt,omitempty"`
	InvoiceNo    string              `json:"invoiceNo,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	ExtraCharges *decimal.Decimal    `json:"extraCharges,omitempty"`
	Items        []PurchaseItemInput `json:"items"`
}

type PurchaseCreateResponse struct {
	PurchaseID string `json:"purchaseId"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type SubcategoryCreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type AttributeDefinitionCreateRequest struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Type  string `json:"type"`
}

type SupplierCreateRequest struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type VariantCreateRequest struct {
	CategoryID          string           `json:"categoryId"`
	SubcategoryID       string           `json:"subcategoryId,omitempty"`
	Name                string           `json:"name"`
	Attributes          map[string]any   `json:"attributes,omitempty"`
	MRP                 *decimal.Decimal `json:"mrp"`
	DefaultSellingPrice *decimal.Decimal `json:"defaultSellingPrice"`
	MaxDiscountPercent  *float64         `json:"maxDiscountPercent"`
}

type ProductCreateRequest struct {
	SKU              string `json:"sku,omitempty"`
	ProductVariantID string `json:"productVariantId"`
	SupplierID       string `json:"supplierId"`
	InitialStock     *int   `json:"initialStock,omitempty"`
}

// --- report shapes ---

type DailySalesReport struct {
	Date         string                     `json:"date"`
	TotalBills   int                        `json:"totalBills"`
	TotalItems   int                        `json:"totalItems"`
	TotalRevenue decimal.Decimal            `json:"totalRevenue"`
	Payments     map[string]decimal.Decimal `json:"payments"`
}

type SalesSummaryReport struct {
	From         string                     `json:"from,omitempty"`
	To           string                     `json:"to,omitempty"`
	TotalBills   int                        `json:"totalBills"`
	TotalItems   int                        `json:"totalItems"`
	TotalRevenue decimal.Decimal            `json:"totalRevenue"`
	Payments     map[string]decimal.Decimal `json:"payments"`
}

type SaleProfitRow struct {
	SaleID      string          `json:"saleId"`
	BillNumber  string          `json:"billNumber"`
	SoldAt      time.Time       `json:"soldAt"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Profit      decimal.Decimal `json:"profit"`
}

type SalesProfitReport struct {
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	Sales       []SaleProfitRow `json:"sales"`
}

type InventoryRow struct {
	SKU              string `json:"sku"`
	ProductVariantID string `json:"productVariantId"`
	VariantName      string `json:"variantName"`
	SupplierID       string `json:"supplierId"`
	QuantityInStock  int    `json:"quantityInStock"`
}

type ValuationRow struct {
	ProductVariantID string          `json:"productVariantId"`
	VariantName      string          `json:"variantName"`
	QuantityInStock  int             `json:"quantityInStock"`
	AverageUnitCost  decimal.Decimal `json:"averageUnitCost"`
	StockValue       decimal.Decimal `json:"stockValue"`
}

type AgingBucketTotal struct {
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type AgingItem struct {
	SKU                      string          `json:"sku"`
	ProductVariantID         string          `json:"productVariantId"`
	PurchasedAt              time.Time       `json:"purchasedAt"`
	AgeDays                  int             `json:"ageDays"`
	Bucket                   string          `json:"bucket"`
	Quantity                 int             `json:"quantity"`
	Value                    decimal.Decimal `json:"value"`
	SuggestedDiscountPercent float64         `json:"suggestedDiscountPercent"`
	SuggestedPrice           decimal.Decimal `json:"suggestedPrice"`
	DiscountCappedByCost     bool            `json:"discountCappedByCost"`
}

type InventoryAgingReport struct {
	AsOfDate string                      `json:"asOfDate"`
	Buckets  map[string]AgingBucketTotal `json:"buckets"`
	Items    []AgingItem                 `json:"items"`
}

// --- auth / audit ---

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	PaymentModeCash = "CASH"

	AttributeTypeString = "string"
	AttributeTypeNumber = "number"
	AttributeTypeBool   = "bool"
)
