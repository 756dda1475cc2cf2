package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Currency is the currency of a product list price
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

// DefaultCurrency is applied when a product carries no explicit currency
const DefaultCurrency = CurrencyUSD

// CurrencyChoices lists all valid currency values
var CurrencyChoices = []Currency{CurrencyEUR, CurrencyUSD}

// ValidCurrency reports whether the (case-insensitive) value is a known currency
func ValidCurrency(value string) bool {
	_, ok := ParseCurrency(value)
	return ok
}

// ParseCurrency resolves a raw string to a Currency, case-insensitively
func ParseCurrency(value string) (Currency, bool) {
	upper := Currency(strings.ToUpper(value))
	for _, c := range CurrencyChoices {
		if c == upper {
			return c, true
		}
	}
	return "", false
}

// UnassignedVendorID is the reserved vendor assigned to products without a
// vendor. The row is seeded at startup and must never be deleted.
const UnassignedVendorID int64 = 0

// Vendor is a manufacturer that products are assigned to
type Vendor struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Vendor
func (Vendor) TableName() string {
	return "vendors"
}

// IsUnassigned reports whether this is the sentinel "unassigned" vendor
func (v *Vendor) IsUnassigned() bool {
	return v.ID == UnassignedVendorID
}

// ProductGroup is a named grouping of products scoped to a single vendor
type ProductGroup struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VendorID  int64     `json:"vendorId" gorm:"not null;index:idx_product_groups_vendor_name,unique"`
	Vendor    *Vendor   `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Name      string    `json:"name" gorm:"not null;index:idx_product_groups_vendor_name,unique"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ProductGroup
func (ProductGroup) TableName() string {
	return "product_groups"
}

// Product is a vendor product with its End-of-Life lifecycle milestones.
// The business identity is the natural key product_id, not the surrogate UUID.
type Product struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID string    `json:"productId" gorm:"column:product_id;not null;uniqueIndex"`

	Description string   `json:"description" gorm:"not null;default:'not set'"`
	ListPrice   *float64 `json:"listPrice,omitempty" gorm:"check:list_price >= 0"`
	Currency    Currency `json:"currency" gorm:"not null;default:'USD'"`
	Tags        string   `json:"tags" gorm:"not null;default:''"`

	VendorID int64   `json:"vendorId" gorm:"not null;default:0;index"`
	Vendor   *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`

	ProductGroupID *uuid.UUID    `json:"productGroupId,omitempty" gorm:"type:uuid;index"`
	ProductGroup   *ProductGroup `json:"productGroup,omitempty" gorm:"foreignKey:ProductGroupID"`

	InternalProductID *string `json:"internalProductId,omitempty"`

	// EoL lifecycle milestone dates, all optional
	EoxUpdateTimestamp            *time.Time `json:"eoxUpdateTimestamp,omitempty"`
	EolExtAnnouncementDate        *time.Time `json:"eolExtAnnouncementDate,omitempty"`
	EndOfSaleDate                 *time.Time `json:"endOfSaleDate,omitempty"`
	EndOfNewServiceAttachmentDate *time.Time `json:"endOfNewServiceAttachmentDate,omitempty"`
	EndOfSwMaintenanceDate        *time.Time `json:"endOfSwMaintenanceDate,omitempty"`
	EndOfRoutineFailureAnalysis   *time.Time `json:"endOfRoutineFailureAnalysis,omitempty"`
	EndOfServiceContractRenewal   *time.Time `json:"endOfServiceContractRenewal,omitempty"`
	EndOfSupportDate              *time.Time `json:"endOfSupportDate,omitempty"`
	EndOfSecVulnSuppDate          *time.Time `json:"endOfSecVulnSuppDate,omitempty"`

	// Vendor bulletin reference for the EoL announcement
	EolReferenceNumber *string `json:"eolReferenceNumber,omitempty"`
	EolReferenceURL    *string `json:"eolReferenceUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// Lifecycle state labels derived from the milestone dates
const (
	LifecycleStateEosAnnounced             = "EoS announced"
	LifecycleStateEndOfSale                = "End of Sale"
	LifecycleStateEndOfSupport             = "End of Support"
	LifecycleStateEndOfNewServiceAttach    = "End of New Service Attachment Date"
	LifecycleStateEndOfSwMaintenance       = "End of SW Maintenance Releases Date"
	LifecycleStateEndOfRoutineFailureAnaly = "End of Routine Failure Analysis Date"
	LifecycleStateEndOfServiceContractRen  = "End of Service Contract Renewal Date"
	LifecycleStateEndOfSecVulnSupport      = "End of Vulnerability/Security Support date"
)

// CurrentLifecycleStates returns the lifecycle states the product is in today,
// or nil when no EoL announcement date is set. Milestone dates that are not
// populated are treated as still in the future.
func (p *Product) CurrentLifecycleStates() []string {
	if p.EolExtAnnouncementDate == nil {
		return nil
	}

	today := time.Now()
	future := today.AddDate(0, 0, 7)

	milestone := func(d *time.Time) time.Time {
		if d != nil {
			return *d
		}
		return future
	}

	var result []string
	if today.After(milestone(p.EndOfSaleDate)) {
		if today.After(milestone(p.EndOfSupportDate)) {
			result = append(result, LifecycleStateEndOfSupport)
			return result
		}

		result = append(result, LifecycleStateEndOfSale)
		if today.After(milestone(p.EndOfNewServiceAttachmentDate)) {
			result = append(result, LifecycleStateEndOfNewServiceAttach)
		}
		if today.After(milestone(p.EndOfSwMaintenanceDate)) {
			result = append(result, LifecycleStateEndOfSwMaintenance)
		}
		if today.After(milestone(p.EndOfRoutineFailureAnalysis)) {
			result = append(result, LifecycleStateEndOfRoutineFailureAnaly)
		}
		if today.After(milestone(p.EndOfServiceContractRenewal)) {
			result = append(result, LifecycleStateEndOfServiceContractRen)
		}
		if today.After(milestone(p.EndOfSecVulnSuppDate)) {
			result = append(result, LifecycleStateEndOfSecVulnSupport)
		}
	} else {
		result = append(result, LifecycleStateEosAnnounced)
	}

	return result
}

// ProductMigrationSource identifies where a recommended migration path comes
// from (e.g. a vendor bulletin or an internal architecture decision).
type ProductMigrationSource struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex"`
	Description *string   `json:"description,omitempty"`
	// Preference ranks alternative migration paths, higher wins
	Preference int       `json:"preference" gorm:"not null;default:50"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ProductMigrationSource
func (ProductMigrationSource) TableName() string {
	return "product_migration_sources"
}

// ProductMigrationOption is a migration path for a product as stated by a
// single migration source.
type ProductMigrationOption struct {
	ID                uuid.UUID               `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID         uuid.UUID               `json:"productId" gorm:"type:uuid;not null;index:idx_migration_options_product_source,unique"`
	Product           *Product                `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	MigrationSourceID uuid.UUID               `json:"migrationSourceId" gorm:"type:uuid;not null;index:idx_migration_options_product_source,unique"`
	MigrationSource   *ProductMigrationSource `json:"migrationSource,omitempty" gorm:"foreignKey:MigrationSourceID"`

	ReplacementProductID    *string `json:"replacementProductId,omitempty"`
	Comment                 *string `json:"comment,omitempty"`
	MigrationProductInfoURL *string `json:"migrationProductInfoUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ProductMigrationOption
func (ProductMigrationOption) TableName() string {
	return "product_migration_options"
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	ProductID         string   `json:"productId" binding:"required"`
	Description       *string  `json:"description,omitempty"`
	ListPrice         *float64 `json:"listPrice,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	Tags              *string  `json:"tags,omitempty"`
	VendorID          *int64   `json:"vendorId,omitempty"`
	ProductGroup      *string  `json:"productGroup,omitempty"`
	InternalProductID *string  `json:"internalProductId,omitempty"`
	EolReferenceURL   *string  `json:"eolReferenceUrl,omitempty"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Description       *string  `json:"description,omitempty"`
	ListPrice         *float64 `json:"listPrice,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	Tags              *string  `json:"tags,omitempty"`
	VendorID          *int64   `json:"vendorId,omitempty"`
	ProductGroup      *string  `json:"productGroup,omitempty"`
	InternalProductID *string  `json:"internalProductId,omitempty"`
	EolReferenceURL   *string  `json:"eolReferenceUrl,omitempty"`
}

// BulkEolCheckRequest carries the raw multi-line product id query
type BulkEolCheckRequest struct {
	Query string `json:"query" binding:"required"`
}

// EolCheckResult is the lifecycle verdict for a single queried product id
type EolCheckResult struct {
	ProductID       string   `json:"productId"`
	LifecycleStates []string `json:"lifecycleStates,omitempty"`
	EndOfSaleDate   *string  `json:"endOfSaleDate,omitempty"`
	EndOfSupport    *string  `json:"endOfSupportDate,omitempty"`
}

// SkippedEolQuery names a query that produced no usable lifecycle result
type SkippedEolQuery struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// BulkEolCheckResponse is the aggregate bulk EoL check outcome
type BulkEolCheckResponse struct {
	Success        bool              `json:"success"`
	Results        []EolCheckResult  `json:"results"`
	SkippedQueries []SkippedEolQuery `json:"skippedQueries,omitempty"`
}

// Response types

type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type VendorListResponse struct {
	Success bool     `json:"success"`
	Data    []Vendor `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
