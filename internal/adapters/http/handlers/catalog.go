package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
)

// CatalogHandler serves the read-only reference data.
type CatalogHandler struct {
	catalog *app.CatalogService
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog *app.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListRates handles GET /rates.
//
// @Summary List published lane rates
// @Tags catalog
// @Produce json
// @Param mode query string false "SEA or AIR"
// @Param service query string false "FCL, LCL or AIR"
// @Param origin query string false "origin UN/LOCODE"
// @Param destination query string false "destination UN/LOCODE"
// @Success 200 {object} dto.ListResponse[dto.RateResponse]
// @Router /api/v1/rates [get]
func (h *CatalogHandler) ListRates(c *gin.Context) {
	var query dto.ListRatesQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindError(c, err)
		return
	}

	rates, err := h.catalog.ListRates(c.Request.Context(), query.ToFilter())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(rates, dto.NewRateResponse))
}

// ListAccessorials handles GET /accessorials.
func (h *CatalogHandler) ListAccessorials(c *gin.Context) {
	rules, err := h.catalog.ListAccessorials(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(rules, dto.NewAccessorialResponse))
}
