package importer

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func productRow(index int, cells map[string]string) Row {
	return NewRow(index, cells)
}

func unassignedVendor() *models.Vendor {
	return &models.Vendor{ID: models.UnassignedVendorID, Name: "unassigned"}
}

func TestProductImportCreatesProductWithPriceAndCurrency(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{
		ProductID:   "WS-C2960-24T-S",
		Description: "not set",
		Currency:    models.DefaultCurrency,
	}
	store.On("GetOrCreateProduct", mock.Anything, "WS-C2960-24T-S").Return(product, true, nil)
	store.On("GetVendorByID", mock.Anything, models.UnassignedVendorID).Return(unassignedVendor(), nil)
	store.On("SaveProduct", mock.Anything, product, revision.Meta{Actor: "importer", Comment: "manual product import"}).Return(nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "WS-C2960-24T-S",
		"description": "Catalyst 2960 24 10/100",
		"list price":  "10.5 EUR",
		"vendor":      "",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{Actor: "importer"})

	assert.Equal(t, 1, session.ValidCount)
	assert.Equal(t, 0, session.InvalidCount)
	assert.Contains(t, session.Messages, "product <code>WS-C2960-24T-S</code> created")

	assert.Equal(t, "Catalyst 2960 24 10/100", product.Description)
	if assert.NotNil(t, product.ListPrice) {
		assert.Equal(t, 10.5, *product.ListPrice)
	}
	assert.Equal(t, models.CurrencyEUR, product.Currency)
	assert.Equal(t, models.UnassignedVendorID, product.VendorID)

	store.AssertExpectations(t)
}

func TestProductImportRejectsUnknownCurrency(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{ProductID: "P-1", Description: "not set", Currency: models.DefaultCurrency}
	store.On("GetOrCreateProduct", mock.Anything, "P-1").Return(product, true, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-1",
		"description": "something",
		"list price":  "10 XYZ",
		"vendor":      "Cisco Systems",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 0, session.ValidCount)
	assert.Equal(t, 1, session.InvalidCount)
	assert.Contains(t, session.Messages,
		"cannot set list price for <code>P-1</code> (cannot set currency unknown value XYZ)")

	// a faulty row must never reach the database
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportRejectsListPriceWithMultipleSpaces(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{ProductID: "P-2", Description: "not set", Currency: models.DefaultCurrency}
	store.On("GetOrCreateProduct", mock.Anything, "P-2").Return(product, true, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id": "P-2",
		"list price": "10 5 EUR",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 1, session.InvalidCount)
	assert.Contains(t, session.Messages,
		"cannot set list price for <code>P-2</code> (invalid format for list price, detected multiple spaces)")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportUnchangedRowIsNotSaved(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	price := 100.0
	product := &models.Product{
		ProductID:   "P-3",
		Description: "stable product",
		ListPrice:   &price,
		Currency:    models.CurrencyUSD,
		VendorID:    1,
		Vendor:      &models.Vendor{ID: 1, Name: "Cisco Systems"},
	}
	store.On("GetOrCreateProduct", mock.Anything, "P-3").Return(product, false, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-3",
		"description": "stable product",
		"list price":  "100",
		"vendor":      "Cisco Systems",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 0, session.ValidCount)
	assert.Equal(t, 0, session.InvalidCount)
	assert.Contains(t, session.Messages, "<i>no changes for product <code>P-3</code> required</i>")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportUpdateOnlySkipsUnknownProducts(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	store.On("GetProductByProductID", mock.Anything, "UNKNOWN-1").Return(nil, gorm.ErrRecordNotFound)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "UNKNOWN-1",
		"description": "whatever",
		"list price":  "10",
		"vendor":      "",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{UpdateOnly: true})

	assert.Equal(t, 0, session.ValidCount)
	assert.Equal(t, 0, session.InvalidCount)
	assert.Empty(t, session.Messages)
	store.AssertNotCalled(t, "GetOrCreateProduct", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportUnknownVendorFailsTheRow(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{ProductID: "P-4", Description: "not set", Currency: models.DefaultCurrency}
	store.On("GetOrCreateProduct", mock.Anything, "P-4").Return(product, true, nil)
	store.On("GetVendorByName", mock.Anything, "No Such Vendor").Return(nil, gorm.ErrRecordNotFound)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-4",
		"description": "desc",
		"list price":  "10",
		"vendor":      "No Such Vendor",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 1, session.InvalidCount)
	assert.Contains(t, session.Messages,
		"cannot set vendor for <code>P-4</code> (Vendor <strong>No Such Vendor</strong> doesn't exist)")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportStopsAfterErrorBudgetExceeded(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	var rows []Row
	for i := 0; i < 40; i++ {
		productID := fmt.Sprintf("BAD-%d", i)
		product := &models.Product{ProductID: productID, Description: "not set", Currency: models.DefaultCurrency}
		store.On("GetOrCreateProduct", mock.Anything, productID).Return(product, true, nil)
		rows = append(rows, productRow(i+2, map[string]string{
			"product id": productID,
			"list price": "not-a-number",
		}))
	}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	// processing stops once more than 30 rows failed
	assert.Equal(t, 31, session.InvalidCount)
	assert.Equal(t, "There are too many errors in your file, please correct them and upload it again",
		session.Messages[len(session.Messages)-1])
	store.AssertNumberOfCalls(t, "GetOrCreateProduct", 31)
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportSecondRunIsIdempotent(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	price := 10.5
	product := &models.Product{
		ProductID:   "P-5",
		Description: "Catalyst",
		ListPrice:   &price,
		Currency:    models.CurrencyEUR,
		VendorID:    1,
		Vendor:      &models.Vendor{ID: 1, Name: "Cisco Systems"},
	}
	store.On("GetOrCreateProduct", mock.Anything, "P-5").Return(product, false, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-5",
		"description": "Catalyst",
		"list price":  "10.5 EUR",
		"vendor":      "Cisco Systems",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 0, session.ValidCount)
	assert.Contains(t, session.Messages, "<i>no changes for product <code>P-5</code> required</i>")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportFriendlyNameAloneDoesNotTriggerSave(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	price := 100.0
	product := &models.Product{
		ProductID:   "P-9",
		Description: "stable product",
		ListPrice:   &price,
		Currency:    models.CurrencyUSD,
		VendorID:    1,
		Vendor:      &models.Vendor{ID: 1, Name: "Cisco Systems"},
	}
	store.On("GetOrCreateProduct", mock.Anything, "P-9").Return(product, false, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":                   "P-9",
		"description":                  "stable product",
		"list price":                   "100",
		"vendor":                       "Cisco Systems",
		"eol note url (friendly name)": "EOL-12345",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	// the reference number is assigned but does not count as a change on its own
	assert.Equal(t, 0, session.ValidCount)
	assert.Equal(t, 0, session.InvalidCount)
	assert.Contains(t, session.Messages, "<i>no changes for product <code>P-9</code> required</i>")
	if assert.NotNil(t, product.EolReferenceNumber) {
		assert.Equal(t, "EOL-12345", *product.EolReferenceNumber)
	}
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportCurrencyColumnOverridesDefault(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{
		ProductID:   "P-10",
		Description: "not set",
		Currency:    models.DefaultCurrency,
	}
	store.On("GetOrCreateProduct", mock.Anything, "P-10").Return(product, true, nil)
	store.On("GetVendorByID", mock.Anything, models.UnassignedVendorID).Return(unassignedVendor(), nil)
	store.On("SaveProduct", mock.Anything, product, mock.Anything).Return(nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-10",
		"description": "desc",
		"list price":  "10",
		"vendor":      "",
		"currency":    "eur",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 1, session.ValidCount)
	assert.Equal(t, 0, session.InvalidCount)
	if assert.NotNil(t, product.ListPrice) {
		assert.Equal(t, 10.0, *product.ListPrice)
	}
	assert.Equal(t, models.CurrencyEUR, product.Currency)
	store.AssertExpectations(t)
}

func TestProductImportRejectsUnknownCurrencyColumn(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{ProductID: "P-11", Description: "not set", Currency: models.DefaultCurrency}
	store.On("GetOrCreateProduct", mock.Anything, "P-11").Return(product, true, nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":  "P-11",
		"description": "desc",
		"list price":  "10",
		"vendor":      "Cisco Systems",
		"currency":    "GBP",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 0, session.ValidCount)
	assert.Equal(t, 1, session.InvalidCount)
	assert.Contains(t, session.Messages,
		"cannot set currency for <code>P-11</code> (cannot set currency unknown value GBP)")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportBadDateColumnFailsTheRow(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	product := &models.Product{ProductID: "P-6", Description: "not set", Currency: models.DefaultCurrency}
	store.On("GetOrCreateProduct", mock.Anything, "P-6").Return(product, true, nil)
	store.On("GetVendorByID", mock.Anything, models.UnassignedVendorID).Return(unassignedVendor(), nil)

	rows := []Row{productRow(2, map[string]string{
		"product id":       "P-6",
		"description":      "desc",
		"list price":       "10",
		"vendor":           "",
		"end of sale date": "not a date",
	})}

	session := imp.Import(context.Background(), rows, ProductImportOptions{})

	assert.Equal(t, 1, session.InvalidCount)
	assert.Len(t, session.Messages, 1)
	assert.Contains(t, session.Messages[0], "cannot set end of sale date for <code>P-6</code>")
	store.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductImportProgressEveryHundredthRow(t *testing.T) {
	store := new(mockCatalogStore)
	imp := NewProductsImporter(store, newTestLogger())

	var rows []Row
	for i := 0; i < 150; i++ {
		productID := fmt.Sprintf("P-%d", i)
		price := 10.0
		product := &models.Product{
			ProductID:   productID,
			Description: "desc",
			ListPrice:   &price,
			Currency:    models.CurrencyUSD,
			VendorID:    1,
			Vendor:      &models.Vendor{ID: 1, Name: "Cisco Systems"},
		}
		store.On("GetOrCreateProduct", mock.Anything, productID).Return(product, false, nil)
		rows = append(rows, productRow(i+2, map[string]string{
			"product id":  productID,
			"description": "desc",
			"list price":  "10",
			"vendor":      "Cisco Systems",
		}))
	}

	var notifications []string
	session := imp.Import(context.Background(), rows, ProductImportOptions{
		Progress: func(msg string) { notifications = append(notifications, msg) },
	})

	assert.Equal(t, 0, session.InvalidCount)
	if assert.Len(t, notifications, 1) {
		assert.Equal(t, "Process entry <strong>100</strong> of <strong>150</strong>...", notifications[0])
	}
}
