package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"productdb-service/internal/models"
	"productdb-service/internal/revision"
)

// autoCreatedSourcePreference ranks migration sources created implicitly by
// an import below manually curated ones.
const autoCreatedSourcePreference = 10

// RequiredMigrationColumns must all be present in the product_migrations
// sheet header
var RequiredMigrationColumns = []string{"product id", "migration source"}

// MigrationDropEmptyColumns lists the columns whose blank value drops the row
var MigrationDropEmptyColumns = []string{"product id", "migration source"}

// MigrationImportOptions controls a product_migrations reconciliation run
type MigrationImportOptions struct {
	// Actor is recorded in the revision trail for every save
	Actor string
	// Progress, when set, receives a notification per row
	Progress ProgressFunc
}

// MigrationsImporter reconciles rows of the product_migrations sheet. Unlike
// the products importer it saves every resolved option unconditionally (each
// run bumps the revision trail) and carries no error budget.
type MigrationsImporter struct {
	store  MigrationStore
	logger *logrus.Entry
}

// NewMigrationsImporter creates a migrations importer
func NewMigrationsImporter(store MigrationStore, logger *logrus.Logger) *MigrationsImporter {
	return &MigrationsImporter{
		store:  store,
		logger: logger.WithField("component", "migration_import"),
	}
}

// Import processes the rows in input order and returns the per-row outcomes
func (imp *MigrationsImporter) Import(ctx context.Context, rows []Row, opts MigrationImportOptions) *models.ImportSession {
	session := &models.ImportSession{}
	total := len(rows)

	for entry, row := range rows {
		if opts.Progress != nil {
			opts.Progress(fmt.Sprintf(
				"Process entry <strong>%d</strong> of <strong>%d</strong>...", entry+1, total))
		}

		productID := row.String("product id")
		if productID == "" {
			continue
		}
		sourceName := row.String("migration source")

		product, err := imp.store.GetProductByProductID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				session.AddMessage(fmt.Sprintf(
					"Product %s not found in database, skip entry", productID))
				continue
			}
			imp.recordFaulty(session, productID, err)
			continue
		}

		source, sourceCreated, err := imp.store.GetOrCreateMigrationSource(ctx, sourceName)
		if err != nil {
			imp.recordFaulty(session, productID, err)
			continue
		}
		if sourceCreated {
			source.Preference = autoCreatedSourcePreference
			if err := imp.store.SaveMigrationSource(ctx, source); err != nil {
				imp.recordFaulty(session, productID, err)
				continue
			}
			session.AddMessage(fmt.Sprintf(
				"Product Migration Source \"%s\" was created with a preference of %d",
				sourceName, autoCreatedSourcePreference))
		}

		option, created, err := imp.store.GetOrCreateMigrationOption(ctx, product.ID, source.ID)
		if err != nil {
			imp.recordFaulty(session, productID, err)
			continue
		}

		if !row.Empty("comment") {
			if v := row.String("comment"); option.Comment == nil || *option.Comment != v {
				option.Comment = &v
			}
		}
		if !row.Empty("replacement product id") {
			if v := row.String("replacement product id"); option.ReplacementProductID == nil || *option.ReplacementProductID != v {
				option.ReplacementProductID = &v
			}
		}
		if !row.Empty("migration product info url") {
			if v := row.String("migration product info url"); option.MigrationProductInfoURL == nil || *option.MigrationProductInfoURL != v {
				option.MigrationProductInfoURL = &v
			}
		}

		meta := revision.Meta{Actor: opts.Actor, Comment: "manual product migration import"}
		if err := imp.store.SaveMigrationOption(ctx, option, meta); err != nil {
			imp.recordFaulty(session, productID, err)
			continue
		}

		session.ValidCount++
		if created {
			session.AddMessage(fmt.Sprintf(
				"create Product Migration path \"%s\" for Product \"%s\"", sourceName, productID))
		} else {
			session.AddMessage(fmt.Sprintf(
				"update Product Migration path \"%s\" for Product \"%s\"", sourceName, productID))
		}
	}

	return session
}

func (imp *MigrationsImporter) recordFaulty(session *models.ImportSession, productID string, err error) {
	msg := fmt.Sprintf("cannot save Product Migration for %s: %v", productID, err)
	imp.logger.Error(msg)
	session.AddMessage(msg)
	session.InvalidCount++
}
