package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

type mockCatalogStore struct {
	mock.Mock
}

func (m *mockCatalogStore) GetProductByProductID(ctx context.Context, productID string) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogStore) GetOrCreateProduct(ctx context.Context, productID string) (*models.Product, bool, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockCatalogStore) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Vendor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogStore) GetVendorByName(ctx context.Context, name string) (*models.Vendor, error) {
	args := m.Called(ctx, name)
	if v := args.Get(0); v != nil {
		return v.(*models.Vendor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogStore) GetOrCreateProductGroup(ctx context.Context, name string, vendorID int64) (*models.ProductGroup, bool, error) {
	args := m.Called(ctx, name, vendorID)
	if g := args.Get(0); g != nil {
		return g.(*models.ProductGroup), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockCatalogStore) SaveProduct(ctx context.Context, product *models.Product, meta revision.Meta) error {
	args := m.Called(ctx, product, meta)
	return args.Error(0)
}

type mockMigrationStore struct {
	mock.Mock
}

func (m *mockMigrationStore) GetProductByProductID(ctx context.Context, productID string) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMigrationStore) GetOrCreateMigrationSource(ctx context.Context, name string) (*models.ProductMigrationSource, bool, error) {
	args := m.Called(ctx, name)
	if s := args.Get(0); s != nil {
		return s.(*models.ProductMigrationSource), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockMigrationStore) SaveMigrationSource(ctx context.Context, source *models.ProductMigrationSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *mockMigrationStore) GetOrCreateMigrationOption(ctx context.Context, productID, sourceID uuid.UUID) (*models.ProductMigrationOption, bool, error) {
	args := m.Called(ctx, productID, sourceID)
	if o := args.Get(0); o != nil {
		return o.(*models.ProductMigrationOption), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *mockMigrationStore) SaveMigrationOption(ctx context.Context, option *models.ProductMigrationOption, meta revision.Meta) error {
	args := m.Called(ctx, option, meta)
	return args.Error(0)
}
