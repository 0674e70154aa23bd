package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

type createCategoryRequest struct {
	Name      string `json:"name" binding:"required"`
	Slug      string `json:"slug" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func RegisterCatalogRoutes(group *gin.RouterGroup, catalogService *service.CatalogService) {
	if catalogService == nil {
		return
	}

	handler := NewCatalogHandler(catalogService)

	products := group.Group("/products")
	products.GET("/", handler.ListProducts)
	products.GET("/:id", handler.GetProduct)

	productAdmin := products.Group("")
	productAdmin.Use(middleware.JWTAuth())
	productAdmin.POST("/", middleware.AuditLog("product.create", "product"), handler.CreateProduct)
	productAdmin.PUT("/:id", middleware.AuditLog("product.update", "product"), handler.UpdateProduct)
	productAdmin.DELETE("/:id", middleware.AuditLog("product.delete", "product"), handler.DeleteProduct)

	categories := group.Group("/categories")
	categories.GET("/", handler.ListCategories)

	categoryAdmin := categories.Group("")
	categoryAdmin.Use(middleware.JWTAuth())
	categoryAdmin.POST("/", middleware.AuditLog("category.create", "category"), handler.CreateCategory)
	categoryAdmin.DELETE("/:id", middleware.AuditLog("category.delete", "category"), handler.DeleteCategory)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	var categoryID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid category_id")
			return
		}
		categoryID = &id
	}

	activeOnly := true
	if raw := strings.TrimSpace(c.Query("include_inactive")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid include_inactive")
			return
		}
		if include {
			if claims, ok := middleware.GetClaims(c); !ok || !isAdmin(claims.Role) {
				response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
				return
			}
			activeOnly = false
		}
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), categoryID, activeOnly, pageToOffset(page, pageSize))
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, products)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, product)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Name = inputsanitize.Text(input.Name)
	input.Description = inputsanitize.Markdown(input.Description)

	product, err := h.catalogService.CreateProduct(c.Request.Context(), claimsUserID(claims), input)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, product)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Name = inputsanitize.Text(input.Name)
	input.Description = inputsanitize.Markdown(input.Description)

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), claimsUserID(claims), productID, input)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), claimsUserID(claims), productID); err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, categories)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	category, err := h.catalogService.CreateCategory(
		c.Request.Context(),
		claimsUserID(claims),
		inputsanitize.Text(req.Name),
		inputsanitize.Text(req.Slug),
		req.SortOrder,
	)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, category)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), claimsUserID(claims), categoryID); err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCategoryNotFound, "category not found")
	case errors.Is(err, service.ErrInvalidCatalogInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
