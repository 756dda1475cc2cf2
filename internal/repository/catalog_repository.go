package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

// Cache TTL constants
const (
	ProductCacheTTL = 5 * time.Minute  // Single product cache
	VendorCacheTTL  = 30 * time.Minute // Vendors rarely change
)

// ErrSentinelVendor is returned when a delete targets the reserved
// "unassigned" vendor.
var ErrSentinelVendor = errors.New("the unassigned vendor cannot be deleted")

// CatalogRepository is the persistence gateway for the product catalog. All
// writes that matter to the audit trail go through the transactional Save*
// methods, which append a revision entry in the same transaction.
type CatalogRepository struct {
	db        *gorm.DB
	redis     *redis.Client
	cache     *cache.CacheLayer
	revisions *revision.Recorder
	logger    *logrus.Entry
}

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client, revisions *revision.Recorder, logger *logrus.Logger) *CatalogRepository {
	repo := &CatalogRepository{
		db:        db,
		redis:     redisClient,
		revisions: revisions,
		logger:    logger.WithField("component", "catalog_repository"),
	}

	// Initialize CacheLayer with the existing Redis client
	if redisClient != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 5000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductCacheTTL,
			KeyPrefix:  "productdb:catalog:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cacheConfig)
	}

	return repo
}

// EnsureUnassignedVendor seeds the reserved id-0 vendor that products without
// a vendor fall back to. Idempotent, called at startup.
func (r *CatalogRepository) EnsureUnassignedVendor(ctx context.Context) error {
	vendor := models.Vendor{ID: models.UnassignedVendorID, Name: "unassigned"}
	if err := r.db.WithContext(ctx).FirstOrCreate(&vendor, "id = ?", models.UnassignedVendorID).Error; err != nil {
		return fmt.Errorf("failed to seed unassigned vendor: %w", err)
	}
	return nil
}

// Product lookups

// GetProductByProductID looks a product up by its natural key
func (r *CatalogRepository) GetProductByProductID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("ProductGroup").
		Where("product_id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetOrCreateProduct resolves the product by natural key, creating a fresh
// record with model defaults when none exists. The second return value
// reports whether the record was created.
func (r *CatalogRepository) GetOrCreateProduct(ctx context.Context, productID string) (*models.Product, bool, error) {
	product, err := r.GetProductByProductID(ctx, productID)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	unassigned, err := r.GetVendorByID(ctx, models.UnassignedVendorID)
	if err != nil {
		return nil, false, err
	}

	product = &models.Product{
		ID:          uuid.New(),
		ProductID:   productID,
		Description: "not set",
		Currency:    models.DefaultCurrency,
		VendorID:    unassigned.ID,
		Vendor:      unassigned,
	}
	return product, true, nil
}

// GetProductByID looks a product up by its surrogate key
func (r *CatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("ProductGroup").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns a page of products, optionally filtered by vendor
func (r *CatalogRepository) ListProducts(ctx context.Context, vendorID *int64, page, limit int) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	offset := (page - 1) * limit
	err := query.
		Preload("Vendor").
		Preload("ProductGroup").
		Order("product_id").
		Offset(offset).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// SaveProduct persists the product and appends a revision entry in a single
// transaction, so a failed revision rolls the save back as well.
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *models.Product, meta revision.Meta) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Vendor", "ProductGroup").Save(product).Error; err != nil {
			return err
		}
		return r.revisions.Record(tx, revision.ObjectTypeProduct, product.ProductID, meta)
	})
	if err != nil {
		return err
	}

	r.invalidateProductCache(ctx, product.ProductID)
	return nil
}

// DeleteProduct removes a product by surrogate key
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := r.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).
			Delete(&models.ProductMigrationOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	r.invalidateProductCache(ctx, product.ProductID)
	return nil
}

func (r *CatalogRepository) invalidateProductCache(ctx context.Context, productID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, fmt.Sprintf("product:key:%s", strings.ToLower(productID)))
}

// Vendors

// GetVendorByID looks a vendor up by numeric id
func (r *CatalogRepository) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// GetVendorByName looks a vendor up by its unique name, cached because import
// runs resolve the same handful of vendors for thousands of rows
func (r *CatalogRepository) GetVendorByName(ctx context.Context, name string) (*models.Vendor, error) {
	load := func() (*models.Vendor, error) {
		var vendor models.Vendor
		if err := r.db.WithContext(ctx).First(&vendor, "name = ?", name).Error; err != nil {
			return nil, err
		}
		return &vendor, nil
	}

	if r.cache == nil {
		return load()
	}

	var vendor models.Vendor
	cacheKey := fmt.Sprintf("vendor:name:%s", strings.ToLower(name))
	err := r.cache.GetOrSetJSON(ctx, cacheKey, &vendor, VendorCacheTTL, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// ListVendors returns all vendors ordered by name
func (r *CatalogRepository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Order("name").Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// DeleteVendor removes a vendor. The reserved "unassigned" vendor is
// protected; products of a deleted vendor fall back to it.
func (r *CatalogRepository) DeleteVendor(ctx context.Context, id int64) error {
	if id == models.UnassignedVendorID {
		return ErrSentinelVendor
	}

	vendor, err := r.GetVendorByID(ctx, id)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("vendor_id = ?", id).
			Update("vendor_id", models.UnassignedVendorID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Vendor{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, fmt.Sprintf("vendor:name:%s", strings.ToLower(vendor.Name)))
	}
	return nil
}

// Product groups

// GetOrCreateProductGroup resolves a product group by (name, vendor),
// creating it on demand
func (r *CatalogRepository) GetOrCreateProductGroup(ctx context.Context, name string, vendorID int64) (*models.ProductGroup, bool, error) {
	var group models.ProductGroup
	err := r.db.WithContext(ctx).
		Where("name = ? AND vendor_id = ?", name, vendorID).
		First(&group).Error
	if err == nil {
		return &group, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	group = models.ProductGroup{ID: uuid.New(), Name: name, VendorID: vendorID}
	if err := r.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, false, err
	}
	return &group, true, nil
}

// Migration sources and options

// GetOrCreateMigrationSource resolves a migration source by its unique name.
// A missing source is returned as a fresh in-memory record that is not
// persisted until SaveMigrationSource, so a failed row leaves no source behind.
func (r *CatalogRepository) GetOrCreateMigrationSource(ctx context.Context, name string) (*models.ProductMigrationSource, bool, error) {
	var source models.ProductMigrationSource
	err := r.db.WithContext(ctx).First(&source, "name = ?", name).Error
	if err == nil {
		return &source, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	source = models.ProductMigrationSource{ID: uuid.New(), Name: name}
	return &source, true, nil
}

// SaveMigrationSource persists migration source attribute changes
func (r *CatalogRepository) SaveMigrationSource(ctx context.Context, source *models.ProductMigrationSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}

// GetOrCreateMigrationOption resolves the migration option keyed by
// (product, migration source). A missing option is returned as a fresh
// in-memory record; it reaches the database only through SaveMigrationOption,
// whose transaction inserts the row together with its revision entry. A row
// that fails before the save therefore leaves no blank option behind.
func (r *CatalogRepository) GetOrCreateMigrationOption(ctx context.Context, productID, sourceID uuid.UUID) (*models.ProductMigrationOption, bool, error) {
	var option models.ProductMigrationOption
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND migration_source_id = ?", productID, sourceID).
		First(&option).Error
	if err == nil {
		return &option, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	option = models.ProductMigrationOption{
		ID:                uuid.New(),
		ProductID:         productID,
		MigrationSourceID: sourceID,
	}
	return &option, true, nil
}

// SaveMigrationOption persists the option and appends a revision entry in a
// single transaction
func (r *CatalogRepository) SaveMigrationOption(ctx context.Context, option *models.ProductMigrationOption, meta revision.Meta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product", "MigrationSource").Save(option).Error; err != nil {
			return err
		}
		return r.revisions.Record(tx, revision.ObjectTypeMigrationOption, option.ID.String(), meta)
	})
}

// FindProductsByProductID returns all products matching the exact natural key
// (used by the bulk EoL check)
func (r *CatalogRepository) FindProductsByProductID(ctx context.Context, productID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("product_id = ?", productID).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
