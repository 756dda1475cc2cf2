package importer

import (
	"context"

	"github.com/google/uuid"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

// CatalogStore is the persistence gateway used by the products importer.
// Lookup methods return gorm.ErrRecordNotFound when no record matches.
// SaveProduct persists the product and appends the revision entry within one
// transaction.
type CatalogStore interface {
	GetProductByProductID(ctx context.Context, productID string) (*models.Product, error)
	GetOrCreateProduct(ctx context.Context, productID string) (*models.Product, bool, error)
	GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error)
	GetVendorByName(ctx context.Context, name string) (*models.Vendor, error)
	GetOrCreateProductGroup(ctx context.Context, name string, vendorID int64) (*models.ProductGroup, bool, error)
	SaveProduct(ctx context.Context, product *models.Product, meta revision.Meta) error
}

// MigrationStore is the persistence gateway used by the migrations importer.
// Get-or-create methods return fresh unsaved records for missing keys;
// SaveMigrationOption persists the option and appends the revision entry
// within one transaction, so a row that fails earlier writes nothing.
type MigrationStore interface {
	GetProductByProductID(ctx context.Context, productID string) (*models.Product, error)
	GetOrCreateMigrationSource(ctx context.Context, name string) (*models.ProductMigrationSource, bool, error)
	SaveMigrationSource(ctx context.Context, source *models.ProductMigrationSource) error
	GetOrCreateMigrationOption(ctx context.Context, productID, sourceID uuid.UUID) (*models.ProductMigrationOption, bool, error)
	SaveMigrationOption(ctx context.Context, option *models.ProductMigrationOption, meta revision.Meta) error
}

// ProgressFunc receives human-readable progress notifications during a run
type ProgressFunc func(message string)
