package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"productdb-service/internal/models"
)

// defaultTenant is used until the catalog grows real tenancy
const defaultTenant = "default"

// Publisher wraps the go-shared events publisher for catalog events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher creates a catalog events publisher connected to NATS
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "productdb-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	// Ensure the products stream exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishProductCreated publishes a product.created event
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product, actor string) error {
	event := p.buildProductEvent(events.ProductCreated, product)
	event.ActorName = actor
	event.ChangeType = "created"
	return p.publish(ctx, event)
}

// PublishProductUpdated publishes a product.updated event
func (p *Publisher) PublishProductUpdated(ctx context.Context, product *models.Product, actor string) error {
	event := p.buildProductEvent(events.ProductUpdated, product)
	event.ActorName = actor
	event.ChangeType = "updated"
	return p.publish(ctx, event)
}

// PublishProductDeleted publishes a product.deleted event
func (p *Publisher) PublishProductDeleted(ctx context.Context, product *models.Product, actor string) error {
	event := p.buildProductEvent(events.ProductDeleted, product)
	event.ActorName = actor
	event.ChangeType = "deleted"
	return p.publish(ctx, event)
}

// PublishImportCompleted publishes a product.imported summary after a
// spreadsheet reconciliation run
func (p *Publisher) PublishImportCompleted(ctx context.Context, sheet string, session *models.ImportSession, actor string) error {
	event := events.NewProductEvent("product.imported", defaultTenant)
	event.SourceID = uuid.New().String()
	event.ActorName = actor
	event.ChangeType = "imported"
	event.NewValue = map[string]interface{}{
		"sheet":        sheet,
		"validCount":   session.ValidCount,
		"invalidCount": session.InvalidCount,
	}
	return p.publish(ctx, event)
}

// buildProductEvent creates a ProductEvent from a product model
func (p *Publisher) buildProductEvent(eventType string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, defaultTenant)
	event.SourceID = uuid.New().String()
	event.ProductID = product.ID.String()
	event.ProductName = product.Description
	event.SKU = product.ProductID
	event.VendorID = strconv.FormatInt(product.VendorID, 10)

	if product.ListPrice != nil {
		event.Price = *product.ListPrice
	}

	return event
}

// publish is a helper that logs and publishes events asynchronously
func (p *Publisher) publish(ctx context.Context, event *events.ProductEvent) error {
	// Publish asynchronously to not block the main flow
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
			}).WithError(err).Error("Failed to publish product event")
		} else {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
				"sku":       event.SKU,
			}).Info("Product event published successfully")
		}
	}()

	return nil
}
