package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oddsly-wagering-ledger/internal/api_gateway/middleware"
	"github.com/oddsly-wagering-ledger/internal/domain/shared"
)

// Response is the envelope of every API reply. Exactly one of Data and Error
// is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes one page of a paginated listing
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newMetaInfo(page, perPage, totalItems int) *MetaInfo {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	return meta
}

func respond(c *gin.Context, status int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, response)
}

func respondError(c *gin.Context, status int, code, message string) {
	respond(c, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, Response{Data: data})
}

// RespondWithPaginatedData sends data along with its page metadata
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	respond(c, statusCode, Response{Data: data, Meta: newMetaInfo(page, perPage, totalItems)})
}

// RespondBadRequest is for requests rejected before they reach the engine
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnavailable reports a failed dependency without exposing its error
func RespondUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", message)
}

// errorMappings is checked in order. ErrAlreadySettled precedes ErrConflict
// because it is the more specific answer.
var errorMappings = []struct {
	target error
	status int
	code   string
}{
	{shared.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{shared.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
	{shared.ErrAlreadySettled, http.StatusConflict, "ALREADY_SETTLED"},
	{shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{shared.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{shared.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// RespondDomainError maps an engine error to its status code by category.
// Unavailable dependencies become a 503 and anything uncategorised is logged
// and hidden behind a 500.
func RespondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(c, m.status, m.code, err.Error())
			return
		}
	}

	correlationID := middleware.GetCorrelationID(c)
	if errors.Is(err, shared.ErrUnavailable) {
		logger.Warn("Dependency unavailable", "correlation_id", correlationID, "error", err)
		RespondUnavailable(c, "The service is temporarily unavailable, retry later")
		return
	}
	logger.Error("Unhandled error", "correlation_id", correlationID, "error", err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
