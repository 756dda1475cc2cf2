package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"productdb-service/internal/events"
	"productdb-service/internal/middleware"
	"productdb-service/internal/models"
	"productdb-service/internal/repository"
	"productdb-service/internal/revision"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

type ProductsHandler struct {
	repo            *repository.CatalogRepository
	eventsPublisher *events.Publisher
	logger          *logrus.Logger
}

func NewProductsHandler(repo *repository.CatalogRepository, eventsPublisher *events.Publisher, logger *logrus.Logger) *ProductsHandler {
	return &ProductsHandler{
		repo:            repo,
		eventsPublisher: eventsPublisher,
		logger:          logger,
	}
}

// HealthCheck reports service liveness
// GET /health
func (h *ProductsHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "productdb-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetProducts lists products with pagination, optionally filtered by vendor
// GET /api/v1/products?page=1&limit=50&vendorId=0
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var vendorID *int64
	if raw := c.Query("vendorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "vendorId must be an integer",
					Field:   "vendorId",
				},
			})
			return
		}
		vendorID = &id
	}

	products, total, err := h.repo.ListProducts(c.Request.Context(), vendorID, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_FAILED",
				Message: "Failed to list products",
			},
		})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetProduct returns a single product by its surrogate id
// GET /api/v1/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "id must be a UUID",
				Field:   "id",
			},
		})
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to load product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LOOKUP_FAILED",
				Message: "Failed to load product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// CreateProduct creates a new product
// POST /api/v1/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetProductByProductID(ctx, req.ProductID); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_PRODUCT_ID",
				Message: "A product with this product id already exists",
				Field:   "productId",
			},
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.WithError(err).Error("Failed to check product id")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATION_FAILED",
				Message: "Failed to create product",
			},
		})
		return
	}

	product := &models.Product{
		ID:          uuid.New(),
		ProductID:   req.ProductID,
		Description: "not set",
		Currency:    models.DefaultCurrency,
		VendorID:    models.UnassignedVendorID,
	}

	if fieldErr := h.applyProductRequest(c, product, req.Description, req.ListPrice, req.Currency, req.Tags, req.VendorID, req.ProductGroup, req.InternalProductID, req.EolReferenceURL); fieldErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Error: *fieldErr})
		return
	}

	actor := middleware.ActorFromContext(c)
	meta := revision.Meta{Actor: actor, Comment: "created via API"}
	if err := h.repo.SaveProduct(ctx, product, meta); err != nil {
		h.logger.WithError(err).Error("Failed to create product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATION_FAILED",
				Message: "Failed to create product",
			},
		})
		return
	}

	if h.eventsPublisher != nil {
		h.eventsPublisher.PublishProductCreated(ctx, product, actor)
	}

	c.JSON(http.StatusCreated, models.ProductResponse{Success: true, Data: product})
}

// UpdateProduct updates an existing product
// PUT /api/v1/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "id must be a UUID",
				Field:   "id",
			},
		})
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	product, err := h.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to load product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update product",
			},
		})
		return
	}

	if fieldErr := h.applyProductRequest(c, product, req.Description, req.ListPrice, req.Currency, req.Tags, req.VendorID, req.ProductGroup, req.InternalProductID, req.EolReferenceURL); fieldErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Error: *fieldErr})
		return
	}

	actor := middleware.ActorFromContext(c)
	meta := revision.Meta{Actor: actor, Comment: "updated via API"}
	if err := h.repo.SaveProduct(ctx, product, meta); err != nil {
		h.logger.WithError(err).Error("Failed to update product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update product",
			},
		})
		return
	}

	if h.eventsPublisher != nil {
		h.eventsPublisher.PublishProductUpdated(ctx, product, actor)
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// applyProductRequest maps shared create/update request fields onto the
// product, returning a field-scoped validation error on bad input
func (h *ProductsHandler) applyProductRequest(c *gin.Context, product *models.Product, description *string, listPrice *float64, currency, tags *string, vendorID *int64, productGroup, internalProductID, eolReferenceURL *string) *models.Error {
	ctx := c.Request.Context()

	if description != nil {
		product.Description = *description
	}
	if listPrice != nil {
		if *listPrice < 0 {
			return &models.Error{Code: "VALIDATION_ERROR", Message: "listPrice must not be negative", Field: "listPrice"}
		}
		product.ListPrice = listPrice
	}
	if currency != nil {
		cur, ok := models.ParseCurrency(*currency)
		if !ok {
			return &models.Error{Code: "VALIDATION_ERROR", Message: "currency must be one of EUR, USD", Field: "currency"}
		}
		product.Currency = cur
	}
	if tags != nil {
		product.Tags = *tags
	}
	if internalProductID != nil {
		product.InternalProductID = internalProductID
	}
	if eolReferenceURL != nil {
		product.EolReferenceURL = eolReferenceURL
	}

	if vendorID != nil {
		vendor, err := h.repo.GetVendorByID(ctx, *vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &models.Error{Code: "VALIDATION_ERROR", Message: "vendor does not exist", Field: "vendorId"}
			}
			h.logger.WithError(err).Error("Failed to resolve vendor")
			return &models.Error{Code: "VENDOR_LOOKUP_FAILED", Message: "Failed to resolve vendor", Field: "vendorId"}
		}
		product.VendorID = vendor.ID
		product.Vendor = vendor
	}

	if productGroup != nil && *productGroup != "" {
		group, _, err := h.repo.GetOrCreateProductGroup(ctx, *productGroup, product.VendorID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to resolve product group")
			return &models.Error{Code: "GROUP_LOOKUP_FAILED", Message: "Failed to resolve product group", Field: "productGroup"}
		}
		product.ProductGroupID = &group.ID
		product.ProductGroup = group
	}

	return nil
}

// DeleteProduct removes a product
// DELETE /api/v1/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "id must be a UUID",
				Field:   "id",
			},
		})
		return
	}

	ctx := c.Request.Context()
	product, err := h.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to load product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Failed to delete product",
			},
		})
		return
	}

	if err := h.repo.DeleteProduct(ctx, id); err != nil {
		h.logger.WithError(err).Error("Failed to delete product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Failed to delete product",
			},
		})
		return
	}

	if h.eventsPublisher != nil {
		h.eventsPublisher.PublishProductDeleted(ctx, product, middleware.ActorFromContext(c))
	}

	msg := "Product deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

// GetVendors lists all vendors
// GET /api/v1/vendors
func (h *ProductsHandler) GetVendors(c *gin.Context) {
	vendors, err := h.repo.ListVendors(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list vendors")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_FAILED",
				Message: "Failed to list vendors",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.VendorListResponse{Success: true, Data: vendors})
}

// DeleteVendor removes a vendor, reassigning its products to the reserved
// "unassigned" vendor
// DELETE /api/v1/vendors/:id
func (h *ProductsHandler) DeleteVendor(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "id must be an integer",
				Field:   "id",
			},
		})
		return
	}

	if err := h.repo.DeleteVendor(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSentinelVendor):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VENDOR_PROTECTED",
					Message: err.Error(),
				},
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Vendor not found",
				},
			})
		default:
			h.logger.WithError(err).Error("Failed to delete vendor")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "DELETE_FAILED",
					Message: "Failed to delete vendor",
				},
			})
		}
		return
	}

	msg := "Vendor deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

// BulkEolCheck resolves a multi-line product id query against the catalog and
// returns the current lifecycle states per product
// POST /api/v1/products/eol-check
func (h *ProductsHandler) BulkEolCheck(c *gin.Context) {
	var req models.BulkEolCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	resp := models.BulkEolCheckResponse{Success: true}
	seen := make(map[string]bool)

	for _, line := range strings.Split(req.Query, "\n") {
		query := strings.TrimSpace(line)
		if query == "" || seen[query] {
			continue
		}
		seen[query] = true

		products, err := h.repo.FindProductsByProductID(ctx, query)
		if err != nil {
			h.logger.WithError(err).WithField("query", query).Error("EoL check lookup failed")
			resp.SkippedQueries = append(resp.SkippedQueries, models.SkippedEolQuery{
				Query:  query,
				Result: "lookup failed",
			})
			continue
		}
		if len(products) == 0 {
			resp.SkippedQueries = append(resp.SkippedQueries, models.SkippedEolQuery{
				Query:  query,
				Result: "Not found in database",
			})
			continue
		}

		for _, product := range products {
			states := product.CurrentLifecycleStates()
			if states == nil {
				resp.SkippedQueries = append(resp.SkippedQueries, models.SkippedEolQuery{
					Query:  query,
					Result: "no EoL announcement date set",
				})
				continue
			}

			result := models.EolCheckResult{
				ProductID:       product.ProductID,
				LifecycleStates: states,
			}
			if product.EndOfSaleDate != nil {
				v := product.EndOfSaleDate.Format("2006-01-02")
				result.EndOfSaleDate = &v
			}
			if product.EndOfSupportDate != nil {
				v := product.EndOfSupportDate.Format("2006-01-02")
				result.EndOfSupport = &v
			}
			resp.Results = append(resp.Results, result)
		}
	}

	c.JSON(http.StatusOK, resp)
}
