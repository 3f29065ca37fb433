package store

import (
	"context"
	"errors"
	"time"

	"stokpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoMatchingProduct = errors.New("no matching product for variant and supplier")
	ErrPaymentMismatch   = errors.New("payments do not cover bill total")
)

// Repository is the persistence boundary. CreateSale and CreatePurchase are
// transactional: they re-validate stock and pricing against current rows and
// either apply every effect of the document or none of them.
type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error)
	CreateSubcategory(ctx context.Context, subcategory domain.Subcategory) (*domain.Subcategory, error)
	ListAttributeDefinitions(ctx context.Context, categoryID string) ([]domain.AttributeDefinition, error)
	CreateAttributeDefinition(ctx context.Context, def domain.AttributeDefinition) (*domain.AttributeDefinition, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)

	ListVariants(ctx context.Context, categoryID string) ([]domain.ProductVariant, error)
	GetVariantByID(ctx context.Context, id string) (*domain.ProductVariant, error)
	CreateVariant(ctx context.Context, variant domain.ProductVariant) (*domain.ProductVariant, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)

	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	ListCostLayers(ctx context.Context) ([]domain.CostLayer, error)
	SoldQuantities(ctx context.Context) (map[string]int, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
