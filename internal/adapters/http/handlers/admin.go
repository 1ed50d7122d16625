package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
)

// AdminHandler serves operator endpoints. Routes are mounted behind the
// admin role check.
type AdminHandler struct {
	service *app.QuoteService
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(service *app.QuoteService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ExpireOverdue handles POST /admin/quotes/expire-overdue. A sweep cut
// short by cancellation still reports the quotes it already handled.
//
// @Summary Expire every ISSUED quote past its validity
// @Tags admin
// @Produce json
// @Success 200 {object} app.SweepResult
// @Router /api/v1/admin/quotes/expire-overdue [post]
func (h *AdminHandler) ExpireOverdue(c *gin.Context) {
	result, err := h.service.ExpireOverdue(c.Request.Context())
	if err != nil && result == nil {
		dto.HandleError(c, err)
		return
	}

	if err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, result)
}
