package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/manual"
	"github.com/labddb/resistorlens/internal/vision"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.log.Error("API error", fields...)
	} else {
		c.log.Debug("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// handleDomainError maps a domain error to its status and user message.
func (c *Controller) handleDomainError(ctx echo.Context, err error) error {
	code, message := classify(err)
	return c.HandleError(ctx, err, message, code)
}

// classify returns the HTTP status and user-facing message for err.
func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)

	case errors.Is(err, colorcode.ErrUnknownColor):
		return http.StatusBadRequest, "Unknown band color"
	case errors.Is(err, colorcode.ErrInvalidDigitBand):
		return http.StatusBadRequest, "Gold and silver cannot be used as digit bands"
	case errors.Is(err, colorcode.ErrInvalidMultiplierBand):
		return http.StatusBadRequest, "Invalid multiplier band"
	case errors.Is(err, colorcode.ErrIncompleteSequence):
		return http.StatusBadRequest, "At least three bands are required"
	case errors.Is(err, manual.ErrInvalidSlot):
		return http.StatusBadRequest, "Slot must be band1, band2 or multiplier"
	case errors.Is(err, manual.ErrOptionNotOffered):
		return http.StatusBadRequest, "Color is not available for this slot"

	case errors.Is(err, vision.ErrInvalidImage):
		return http.StatusBadRequest, vision.UserMessage(err)
	case errors.Is(err, vision.ErrNoResult):
		return http.StatusUnprocessableEntity, vision.UserMessage(err)
	case errors.Is(err, vision.ErrQuotaExceeded):
		return http.StatusTooManyRequests, vision.UserMessage(err)
	case errors.Is(err, vision.ErrNotConfigured):
		return http.StatusServiceUnavailable, vision.UserMessage(err)
	case errors.Is(err, vision.ErrAnalysisFailed):
		return http.StatusBadGateway, vision.UserMessage(err)

	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict, "Nothing to save"
	case errors.IsCategory(err, errors.CategoryDatabase):
		return http.StatusInternalServerError, "History storage is unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// errorHandler renders errors that escape the handlers, including echo's
// own routing and body limit errors.
func (c *Controller) errorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	if herr := c.handleDomainError(ctx, err); herr != nil {
		c.log.Warn("failed to write error response", logger.Error(herr))
	}
}
