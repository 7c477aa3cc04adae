// internal/api/response_helpers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deAdler-alt/ai-piraci/internal/errors"
)

// ResponseHelper builds the standard API envelope.
type ResponseHelper struct{}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success sends a 200 response.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Created sends a 201 response.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusCreated, response)
}

// Error sends an error response with the given status and code.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}

	if len(details) > 0 {
		apiError.Details = details[0]
	}

	response := &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	c.JSON(statusCode, response)
}

// BadRequest sends a 400 response.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound sends a 404 response.
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message, details...)
}

// Conflict sends a 409 response.
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, ErrorConflict, message, details...)
}

// InternalError sends a 500 response.
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// HandleAppError maps a service error to the matching HTTP response.
func (rh *ResponseHelper) HandleAppError(c *gin.Context, err error) {
	switch {
	case errors.IsValidationError(err):
		rh.BadRequest(c, err.Error())
	case errors.IsNotFoundError(err):
		rh.NotFound(c, err.Error())
	case errors.IsConflictError(err):
		rh.Conflict(c, err.Error())
	case errors.IsConfigurationError(err):
		rh.Error(c, http.StatusServiceUnavailable, ErrorLLMServiceUnavailable, err.Error())
	case errors.IsTransportError(err):
		rh.Error(c, http.StatusBadGateway, ErrorGenerationFailed, err.Error())
	default:
		rh.InternalError(c, err.Error())
	}
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	if requestID := c.GetString("request_id"); requestID != "" {
		return requestID
	}
	return ""
}
