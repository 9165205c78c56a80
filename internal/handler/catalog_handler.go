package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
)

// CatalogHandler serves the student-facing test catalog.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListTests godoc
// GET /api/v1/student/tests
// Returns every test in the catalog, without question bodies.
func (h *CatalogHandler) ListTests(c *gin.Context) {
	tests, err := h.catalogService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// ListCategories godoc
// GET /api/v1/student/tests/categories
// Returns the fixed category set used to group the catalog.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"categories": h.catalogService.Categories(),
	})
}
