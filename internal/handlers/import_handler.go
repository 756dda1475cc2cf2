package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"productdb-service/internal/events"
	"productdb-service/internal/importer"
	"productdb-service/internal/middleware"
	"productdb-service/internal/models"
	"productdb-service/internal/repository"
)

// MaxUploadBytes caps the size of an uploaded spreadsheet
const MaxUploadBytes = 20 << 20 // 20 MiB

type ImportHandler struct {
	repo      *repository.CatalogRepository
	products  *importer.ProductsImporter
	migration *importer.MigrationsImporter
	publisher *events.Publisher
	logger    *logrus.Logger
}

func NewImportHandler(repo *repository.CatalogRepository, publisher *events.Publisher, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		repo:      repo,
		products:  importer.NewProductsImporter(repo, logger),
		migration: importer.NewMigrationsImporter(repo, logger),
		publisher: publisher,
		logger:    logger,
	}
}

// ImportSpreadsheet reconciles an uploaded workbook against the catalog
// POST /api/v1/products/import
//
// Form fields:
//
//	file       the .xlsx workbook (required)
//	sheet      "products" (default) or "product_migrations"
//	updateOnly "true" to skip rows whose product id is unknown (products only)
func (h *ImportHandler) ImportSpreadsheet(c *gin.Context) {
	startTime := time.Now()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload an Excel file",
			},
		})
		return
	}
	defer file.Close()

	sheet := models.ImportSheet(c.DefaultPostForm("sheet", string(models.ImportSheetProducts)))
	if sheet != models.ImportSheetProducts && sheet != models.ImportSheetMigrations {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_SHEET",
				Message: fmt.Sprintf("unknown sheet %q, expected %q or %q", sheet, models.ImportSheetProducts, models.ImportSheetMigrations),
			},
		})
		return
	}
	updateOnly := c.DefaultPostForm("updateOnly", "false") == "true"
	actor := middleware.ActorFromContext(c)

	log := h.logger.WithFields(logrus.Fields{
		"sheet": sheet,
		"actor": actor,
	})

	workbook, err := importer.OpenWorkbook(file, log)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FILE_FORMAT",
				Message: "The uploaded file is not a readable Excel workbook",
			},
		})
		return
	}
	defer workbook.Close()

	required := importer.RequiredProductColumns
	dropEmpty := importer.ProductDropEmptyColumns
	if sheet == models.ImportSheetMigrations {
		required = importer.RequiredMigrationColumns
		dropEmpty = importer.MigrationDropEmptyColumns
	}

	if err := workbook.Verify(string(sheet), required); err != nil {
		code := "VERIFICATION_FAILED"
		if errors.Is(err, importer.ErrInvalidImportFormat) {
			code = "INVALID_IMPORT_FORMAT"
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    code,
				Message: err.Error(),
			},
		})
		return
	}

	rows, err := workbook.ReadSheet(string(sheet), importer.SheetOptions{DropEmpty: dropEmpty})
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_IMPORT_FORMAT",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	progress := func(msg string) {
		log.Info(msg)
	}

	var session *models.ImportSession
	if sheet == models.ImportSheetProducts {
		session = h.products.Import(ctx, rows, importer.ProductImportOptions{
			UpdateOnly: updateOnly,
			Actor:      actor,
			Progress:   progress,
		})
	} else {
		session = h.migration.Import(ctx, rows, importer.MigrationImportOptions{
			Actor:    actor,
			Progress: progress,
		})
	}

	if h.publisher != nil {
		h.publisher.PublishImportCompleted(ctx, string(sheet), session, actor)
	}

	c.JSON(http.StatusOK, models.ImportResponse{
		Success:      session.InvalidCount == 0,
		Sheet:        string(sheet),
		ValidCount:   session.ValidCount,
		InvalidCount: session.InvalidCount,
		Messages:     session.Messages,
		ProcessingMs: time.Since(startTime).Milliseconds(),
	})
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	sheet := models.ImportSheet(c.DefaultQuery("sheet", string(models.ImportSheetProducts)))
	template := models.ProductImportTemplate()
	if sheet == models.ImportSheetMigrations {
		template = models.MigrationImportTemplate()
	}

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c)
	default:
		// Return JSON template definition
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.csv", template.Sheet))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write header row only
	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template holding both
// data sheets plus an Instructions sheet
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	templates := []models.ImportTemplate{
		models.ProductImportTemplate(),
		models.MigrationImportTemplate(),
	}

	// Style for header row
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// Style for required columns
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	f.SetSheetName("Sheet1", templates[0].Sheet)
	f.NewSheet(templates[1].Sheet)

	for _, template := range templates {
		for i, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(template.Sheet, cell, col.Name)

			if col.Required {
				f.SetCellStyle(template.Sheet, cell, cell, requiredStyle)
			} else {
				f.SetCellStyle(template.Sheet, cell, cell, headerStyle)
			}

			// Set column width
			colName, _ := excelize.ColumnNumberToName(i + 1)
			f.SetColWidth(template.Sheet, colName, colName, 24)
		}
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Database Import Instructions")

	f.SetCellValue("Instructions", "A3", "SHEETS:")
	f.SetCellValue("Instructions", "A4", "- products: product records keyed by the 'product id' column. Existing records are updated in place.")
	f.SetCellValue("Instructions", "A5", "- product_migrations: migration paths keyed by 'product id' and 'migration source'. The product must already exist.")

	f.SetCellValue("Instructions", "A7", "IMPORT ORDER:")
	f.SetCellValue("Instructions", "A8", "1. Create vendors first (the 'vendor' column must name an existing vendor)")
	f.SetCellValue("Instructions", "A9", "2. Import the products sheet")
	f.SetCellValue("Instructions", "A10", "3. Import the product_migrations sheet (migration sources are auto-created)")

	row := 12
	for _, template := range templates {
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), fmt.Sprintf("Column definitions (%s):", template.Sheet))
		row++
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), "Column")
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), "Description")
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), "Required")
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), "Type")
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), "Example")
		row++

		for _, col := range template.Columns {
			f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
			f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
			required := "Optional"
			if col.Required {
				required = "Required"
			}
			f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
			f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
			f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
			row++
		}
		row++
	}

	f.SetColWidth("Instructions", "A", "A", 40)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 30)

	// Open the products sheet first
	sheetIdx, _ := f.GetSheetIndex(templates[0].Sheet)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=productdb_import_template.xlsx")

	f.Write(c.Writer)
}
