// Package handlers implements the HTTP endpoints of the quotation API on
// top of the application services.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/freight-quote-service/internal/app"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// HeaderIdempotencyKey deduplicates POST /quotes per customer.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// QuoteHandler serves the quote lifecycle endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// Create handles POST /quotes. The customer defaults to the caller's
// subject. A new quote answers 201; an idempotent replay answers 200 with
// the original quote.
//
// @Summary Price a shipment and create a DRAFT quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "deduplication key"
// @Param body body dto.CreateQuoteRequest true "shipment"
// @Success 201 {object} dto.QuoteResponse
// @Success 200 {object} dto.QuoteResponse "replay"
// @Failure 400,409,422,503 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	var body dto.CreateQuoteRequest
	if err := dto.BindAndValidate(c, &body); err != nil {
		respondBindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		dto.RespondWithValidationErrors(c, map[string]string{
			HeaderIdempotencyKey: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen),
		})

		return
	}

	req := body.ToDomain(middleware.Subject(c))
	if req.CustomerID == "" {
		dto.RespondWithValidationErrors(c, map[string]string{"customer_id": "this field is required"})
		return
	}

	result, err := h.service.Create(c.Request.Context(), req, key)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	} else {
		c.Header("Location", "/api/v1/quotes/"+result.Quote.ID)
	}

	c.JSON(status, dto.NewQuoteResponse(result.Quote))
}

// List handles GET /quotes.
//
// @Summary List quotes, newest first
// @Tags quotes
// @Produce json
// @Param customer_id query string false "customer"
// @Param status query string false "status"
// @Param cursor query string false "next_cursor of the previous page"
// @Param limit query int false "page size (1-100)"
// @Success 200 {object} dto.PaginatedResponse[dto.QuoteResponse]
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	var query dto.ListQuotesQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindError(c, err)
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteListResponse(page))
}

// Get handles GET /quotes/:id.
//
// @Summary Get a quote
// @Tags quotes
// @Produce json
// @Param id path string true "quote id"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	h.respond(c, h.service.Get)
}

// Issue handles POST /quotes/:id/issue.
func (h *QuoteHandler) Issue(c *gin.Context) {
	h.respond(c, h.service.Issue)
}

// Accept handles POST /quotes/:id/accept.
func (h *QuoteHandler) Accept(c *gin.Context) {
	h.respond(c, h.service.Accept)
}

// Cancel handles POST /quotes/:id/cancel.
func (h *QuoteHandler) Cancel(c *gin.Context) {
	h.respond(c, h.service.Cancel)
}

// Expire handles POST /quotes/:id/expire. Admin only.
func (h *QuoteHandler) Expire(c *gin.Context) {
	h.respond(c, h.service.Expire)
}

// Document handles GET /quotes/:id/document and streams the rendered PDF.
//
// @Summary Download the quote document
// @Tags quotes
// @Produce application/pdf
// @Param id path string true "quote id"
// @Success 200 {file} binary
// @Failure 404,409,503 {object} dto.ErrorResponse
// @Router /api/v1/quotes/{id}/document [get]
func (h *QuoteHandler) Document(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	doc, err := h.service.RenderDocument(c.Request.Context(), id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

func (h *QuoteHandler) respond(c *gin.Context, op func(context.Context, string) (*domain.Quote, error)) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	quote, err := op(c.Request.Context(), id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(quote))
}

func quoteID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "quote id is required")
		return "", false
	}

	return id, true
}

// respondBindError answers a failed BindAndValidate: field details for
// validator failures, a plain 400 for malformed input.
func respondBindError(c *gin.Context, err error) {
	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		dto.RespondWithValidationErrors(c, fields)
		return
	}

	dto.RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "malformed request: "+err.Error())
}
