package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

// maxFaultyRows is the error budget for one products run. Processing stops
// once more rows than this have failed.
const maxFaultyRows = 30

// progressInterval is the row interval for progress notifications
const progressInterval = 100

// RequiredProductColumns must all be present in the products sheet header
var RequiredProductColumns = []string{"product id", "description", "list price", "vendor"}

// ProductDropEmptyColumns lists the columns whose blank value drops the row
var ProductDropEmptyColumns = []string{"product id"}

// FieldError pins a row-level failure to the column that caused it
type FieldError struct {
	Row    int
	Column string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ProductImportOptions controls a products reconciliation run
type ProductImportOptions struct {
	// UpdateOnly skips rows whose product id is not yet in the database
	UpdateOnly bool
	// Actor is recorded in the revision trail for every save
	Actor string
	// Progress, when set, receives a notification every 100th row
	Progress ProgressFunc
}

// ProductsImporter reconciles rows of the products sheet against the catalog
type ProductsImporter struct {
	store  CatalogStore
	logger *logrus.Entry
}

// NewProductsImporter creates a products importer
func NewProductsImporter(store CatalogStore, logger *logrus.Logger) *ProductsImporter {
	return &ProductsImporter{
		store:  store,
		logger: logger.WithField("component", "product_import"),
	}
}

// Import processes the rows in input order and returns the per-row outcomes.
// A row failure never aborts the run; only the error budget does.
func (imp *ProductsImporter) Import(ctx context.Context, rows []Row, opts ProductImportOptions) *models.ImportSession {
	session := &models.ImportSession{}
	total := len(rows)

	for entry, row := range rows {
		if opts.Progress != nil && (entry+1)%progressInterval == 0 {
			opts.Progress(fmt.Sprintf(
				"Process entry <strong>%d</strong> of <strong>%d</strong>...", entry+1, total))
		}

		productID := row.String("product id")

		var (
			product *models.Product
			created bool
			err     error
		)

		if opts.UpdateOnly {
			product, err = imp.store.GetProductByProductID(ctx, productID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					imp.logger.WithError(err).Warnf(
						"unexpected error during the lookup of product %s", productID)
				}
				// not in the database, nothing to update
				continue
			}
		} else {
			product, created, err = imp.store.GetOrCreateProduct(ctx, productID)
			if err != nil {
				imp.recordFaulty(session, fmt.Sprintf(
					"cannot save data for <code>%s</code> in database (%v)", productID, err))
				if session.InvalidCount > maxFaultyRows {
					imp.abortRun(session)
					return session
				}
				continue
			}
		}

		changed := created

		fieldChanged, fieldErr := imp.applyRow(ctx, row, product, created)
		changed = changed || fieldChanged

		if fieldErr != nil {
			imp.recordFaulty(session, fmt.Sprintf(
				"cannot set %s for <code>%s</code> (%v)", fieldErr.Column, productID, fieldErr.Err))
			if session.InvalidCount > maxFaultyRows {
				imp.abortRun(session)
				return session
			}
			continue
		}

		if !changed {
			session.AddMessage(fmt.Sprintf(
				"<i>no changes for product <code>%s</code> required</i>", product.ProductID))
			continue
		}

		meta := revision.Meta{Actor: opts.Actor, Comment: "manual product import"}
		if err := imp.store.SaveProduct(ctx, product, meta); err != nil {
			imp.recordFaulty(session, fmt.Sprintf(
				"cannot save data for <code>%s</code> in database (%v)", productID, err))
			if session.InvalidCount > maxFaultyRows {
				imp.abortRun(session)
				return session
			}
			continue
		}

		session.ValidCount++
		if created {
			session.AddMessage(fmt.Sprintf("product <code>%s</code> created", product.ProductID))
		} else {
			session.AddMessage(fmt.Sprintf("product <code>%s</code> updated", product.ProductID))
		}
	}

	return session
}

func (imp *ProductsImporter) recordFaulty(session *models.ImportSession, msg string) {
	imp.logger.Error(msg)
	session.AddMessage(msg)
	session.InvalidCount++
}

func (imp *ProductsImporter) abortRun(session *models.ImportSession) {
	session.AddMessage("There are too many errors in your file, please correct them and upload it again")
}

// applyRow maps the row's columns onto the product and reports whether any
// field actually changed. The returned FieldError names the offending column;
// a faulty row is never saved.
func (imp *ProductsImporter) applyRow(ctx context.Context, row Row, p *models.Product, created bool) (bool, *FieldError) {
	changed := false
	fail := func(column string, err error) (bool, *FieldError) {
		return changed, &FieldError{Row: row.Index, Column: column, Err: err}
	}

	if !row.Empty("description") && p.Description != row.String("description") {
		p.Description = row.String("description")
		changed = true
	}

	newPrice, newCurrency, err := parseListPrice(row.String("list price"))
	if err != nil {
		return fail("list price", err)
	}

	if row.Has("currency") && !row.Empty("currency") {
		cur, ok := models.ParseCurrency(row.String("currency"))
		if !ok {
			return fail("currency", fmt.Errorf(
				"cannot set currency unknown value %s", strings.ToUpper(row.String("currency"))))
		}
		newCurrency = cur
	}

	if newPrice != nil {
		if p.ListPrice == nil || *p.ListPrice != *newPrice {
			p.ListPrice = newPrice
			changed = true
		}
		if p.Currency != newCurrency {
			p.Currency = newCurrency
			changed = true
		}
	}

	vendorName := row.String("vendor")
	if vendorName == "" && created {
		vendor, err := imp.store.GetVendorByID(ctx, models.UnassignedVendorID)
		if err != nil {
			return fail("vendor", err)
		}
		p.VendorID = vendor.ID
		p.Vendor = vendor
		changed = true
	} else if vendorName != "" {
		currentName := ""
		if p.Vendor != nil {
			currentName = p.Vendor.Name
		}
		if currentName != vendorName {
			vendor, err := imp.store.GetVendorByName(ctx, vendorName)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fail("vendor", fmt.Errorf(
						"Vendor <strong>%s</strong> doesn't exist", vendorName))
				}
				return fail("vendor", err)
			}
			p.VendorID = vendor.ID
			p.Vendor = vendor
			changed = true
		}
	}

	if row.Has("product group") && !row.Empty("product group") {
		groupName := row.String("product group")
		if p.ProductGroup == nil || p.ProductGroup.Name != groupName {
			group, _, err := imp.store.GetOrCreateProductGroup(ctx, groupName, p.VendorID)
			if err != nil {
				return fail("product group", err)
			}
			p.ProductGroupID = &group.ID
			p.ProductGroup = group
			changed = true
		}
	}

	if row.Has("eol note url") && !row.Empty("eol note url") {
		if v := row.String("eol note url"); p.EolReferenceURL == nil || *p.EolReferenceURL != v {
			p.EolReferenceURL = &v
			changed = true
		}
	}

	if row.Has("eol note url (friendly name)") && !row.Empty("eol note url (friendly name)") {
		if v := row.String("eol note url (friendly name)"); p.EolReferenceNumber == nil || *p.EolReferenceNumber != v {
			// TODO: assigning the reference number should mark the product changed
			p.EolReferenceNumber = &v
		}
	}

	if row.Has("internal product id") && !row.Empty("internal product id") {
		if v := row.String("internal product id"); p.InternalProductID == nil || *p.InternalProductID != v {
			p.InternalProductID = &v
			changed = true
		}
	}

	for _, col := range lifecycleDateColumns {
		if !row.Has(col.column) || row.Empty(col.column) {
			continue
		}
		newval, err := row.Date(col.column)
		if err != nil {
			// one bad date column rejects the row, remaining columns are not inspected
			return fail(col.column, err)
		}
		current := col.get(p)
		if current == nil || !current.Equal(newval) {
			col.set(p, newval)
			changed = true
		}
	}

	return changed, nil
}

// parseListPrice decodes the "list price" cell. Accepted encodings are a bare
// number and a "<number> <currency>" pair; everything else is an error.
func parseListPrice(raw string) (*float64, models.Currency, error) {
	currency := models.DefaultCurrency
	if raw == "" {
		return nil, currency, nil
	}

	parts := strings.Split(raw, " ")
	switch len(parts) {
	case 1:
		price, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, currency, errors.New("cannot convert price information to float")
		}
		return &price, currency, nil

	case 2:
		price, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, currency, errors.New("cannot convert price information to float")
		}
		cur, ok := models.ParseCurrency(parts[1])
		if !ok {
			return nil, currency, fmt.Errorf(
				"cannot set currency unknown value %s", strings.ToUpper(parts[1]))
		}
		return &price, cur, nil

	default:
		return nil, currency, errors.New("invalid format for list price, detected multiple spaces")
	}
}

// lifecycleDateColumns maps sheet columns onto the product's milestone dates
var lifecycleDateColumns = []struct {
	column string
	get    func(p *models.Product) *time.Time
	set    func(p *models.Product, t time.Time)
}{
	{
		column: "eox update timestamp",
		get:    func(p *models.Product) *time.Time { return p.EoxUpdateTimestamp },
		set:    func(p *models.Product, t time.Time) { p.EoxUpdateTimestamp = &t },
	},
	{
		column: "eol announcement date",
		get:    func(p *models.Product) *time.Time { return p.EolExtAnnouncementDate },
		set:    func(p *models.Product, t time.Time) { p.EolExtAnnouncementDate = &t },
	},
	{
		column: "end of sale date",
		get:    func(p *models.Product) *time.Time { return p.EndOfSaleDate },
		set:    func(p *models.Product, t time.Time) { p.EndOfSaleDate = &t },
	},
	{
		column: "end of new service attachment date",
		get:    func(p *models.Product) *time.Time { return p.EndOfNewServiceAttachmentDate },
		set:    func(p *models.Product, t time.Time) { p.EndOfNewServiceAttachmentDate = &t },
	},
	{
		column: "end of sw maintenance date",
		get:    func(p *models.Product) *time.Time { return p.EndOfSwMaintenanceDate },
		set:    func(p *models.Product, t time.Time) { p.EndOfSwMaintenanceDate = &t },
	},
	{
		column: "end of routing failure analysis date",
		get:    func(p *models.Product) *time.Time { return p.EndOfRoutineFailureAnalysis },
		set:    func(p *models.Product, t time.Time) { p.EndOfRoutineFailureAnalysis = &t },
	},
	{
		column: "end of service contract renewal date",
		get:    func(p *models.Product) *time.Time { return p.EndOfServiceContractRenewal },
		set:    func(p *models.Product, t time.Time) { p.EndOfServiceContractRenewal = &t },
	},
	{
		column: "last date of support",
		get:    func(p *models.Product) *time.Time { return p.EndOfSupportDate },
		set:    func(p *models.Product, t time.Time) { p.EndOfSupportDate = &t },
	},
	{
		column: "end of security/vulnerability support date",
		get:    func(p *models.Product) *time.Time { return p.EndOfSecVulnSuppDate },
		set:    func(p *models.Product, t time.Time) { p.EndOfSecVulnSuppDate = &t },
	},
}
