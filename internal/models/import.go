package models

// ImportSheet identifies which worksheet of the upload is reconciled
type ImportSheet string

const (
	ImportSheetProducts   ImportSheet = "products"
	ImportSheetMigrations ImportSheet = "product_migrations"
)

// ImportSession is the per-run outcome of a reconciliation pass. Messages are
// ordered, one per processed row (plus an optional terminal budget message),
// and may carry simple HTML markup for direct display.
type ImportSession struct {
	ValidCount   int      `json:"validCount"`
	InvalidCount int      `json:"invalidCount"`
	Messages     []string `json:"messages"`
}

// AddMessage appends a row outcome message, preserving input order
func (s *ImportSession) AddMessage(msg string) {
	s.Messages = append(s.Messages, msg)
}

// ImportResponse wraps an ImportSession for the HTTP layer
type ImportResponse struct {
	Success      bool     `json:"success"`
	Sheet        string   `json:"sheet"`
	ValidCount   int      `json:"validCount"`
	InvalidCount int      `json:"invalidCount"`
	Messages     []string `json:"messages"`
	ProcessingMs int64    `json:"processingMs"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, date
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template sheet
type ImportTemplate struct {
	Sheet   string                 `json:"sheet"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for the products sheet
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "product id", Description: "Unique product id/number", Required: true, Type: "string", Example: "WS-C2960-24T-S"},
		{Name: "description", Description: "Product description", Required: true, Type: "string", Example: "Catalyst 2960 24 10/100"},
		{Name: "list price", Description: "List price, optionally with currency (e.g. \"3495.00 USD\")", Required: true, Type: "string", Example: "3495.00 USD"},
		{Name: "vendor", Description: "Vendor name, must exist in the database", Required: true, Type: "string", Example: "Cisco Systems"},
		{Name: "currency", Description: "Currency of the list price (EUR or USD)", Required: false, Type: "string", Example: "USD"},
		{Name: "product group", Description: "Product group name, auto-created per vendor", Required: false, Type: "string", Example: "Catalyst 2960"},
		{Name: "eol note url", Description: "URL to the EoL bulletin", Required: false, Type: "string", Example: ""},
		{Name: "eol note url (friendly name)", Description: "Bulletin number or friendly reference", Required: false, Type: "string", Example: ""},
		{Name: "internal product id", Description: "Internal product identifier", Required: false, Type: "string", Example: ""},
		{Name: "eox update timestamp", Description: "EoX lifecycle data timestamp", Required: false, Type: "date", Example: "2024-01-31"},
		{Name: "eol announcement date", Description: "End-of-Life announcement date", Required: false, Type: "date", Example: "2024-01-31"},
		{Name: "end of sale date", Description: "End-of-Sale date", Required: false, Type: "date", Example: "2024-07-31"},
		{Name: "end of new service attachment date", Description: "End of new service attachment date", Required: false, Type: "date", Example: ""},
		{Name: "end of sw maintenance date", Description: "End of SW maintenance releases date", Required: false, Type: "date", Example: ""},
		{Name: "end of routing failure analysis date", Description: "End of routine failure analysis date", Required: false, Type: "date", Example: ""},
		{Name: "end of service contract renewal date", Description: "End of service contract renewal date", Required: false, Type: "date", Example: ""},
		{Name: "last date of support", Description: "Last date of support", Required: false, Type: "date", Example: "2029-07-31"},
		{Name: "end of security/vulnerability support date", Description: "End of security/vulnerability support date", Required: false, Type: "date", Example: ""},
	}
}

// MigrationImportColumns returns the column definitions for the
// product_migrations sheet
func MigrationImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "product id", Description: "Product id of an existing product", Required: true, Type: "string", Example: "WS-C2960-24T-S"},
		{Name: "migration source", Description: "Migration source name, auto-created with preference 10", Required: true, Type: "string", Example: "Vendor bulletin"},
		{Name: "replacement product id", Description: "Product id of the recommended replacement", Required: false, Type: "string", Example: "WS-C2960X-24TS-L"},
		{Name: "comment", Description: "Free-text comment on the migration path", Required: false, Type: "string", Example: ""},
		{Name: "migration product info url", Description: "URL with details on the replacement", Required: false, Type: "string", Example: ""},
	}
}

// ProductImportTemplate returns the template definition for the products sheet
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Sheet:   string(ImportSheetProducts),
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}

// MigrationImportTemplate returns the template definition for the
// product_migrations sheet
func MigrationImportTemplate() ImportTemplate {
	return ImportTemplate{
		Sheet:   string(ImportSheetMigrations),
		Version: "1.0",
		Columns: MigrationImportColumns(),
	}
}
