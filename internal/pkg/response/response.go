package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/validator"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

// APIResponse is the envelope every endpoint responds with.
type APIResponse struct {
	Success    bool                   `json:"success" example:"true"`
	StatusCode int                    `json:"statusCode" example:"200"`
	Message    string                 `json:"message,omitempty" example:"ok"`
	Code       string                 `json:"code,omitempty" example:"ITEM_NOT_FOUND"`
	Data       interface{}            `json:"data,omitempty"`
	Pagination *pagination.Pagination `json:"pagination,omitempty"`
}

// Success sends a 200 OK response with data
func Success(c *gin.Context, data interface{}, message ...string) {
	c.JSON(http.StatusOK, APIResponse{
		Success:    true,
		StatusCode: http.StatusOK,
		Message:    first(message),
		Data:       data,
	})
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}, message ...string) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:    true,
		StatusCode: http.StatusCreated,
		Message:    first(message),
		Data:       data,
	})
}

// Paginated sends a list response together with its pagination block
func Paginated(c *gin.Context, data interface{}, page *pagination.Pagination) {
	c.JSON(http.StatusOK, APIResponse{
		Success:    true,
		StatusCode: http.StatusOK,
		Data:       data,
		Pagination: page,
	})
}

// Error sends an error response with custom status code and message
func Error(c *gin.Context, statusCode int, message string, errorCode ...string) {
	c.JSON(statusCode, APIResponse{
		Success:    false,
		StatusCode: statusCode,
		Message:    message,
		Code:       first(errorCode),
	})
}

// ErrorWithData sends an error response carrying extra detail in data
func ErrorWithData(c *gin.Context, statusCode int, message, errorCode string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:    false,
		StatusCode: statusCode,
		Message:    message,
		Code:       errorCode,
		Data:       data,
	})
}

// BadRequest sends a 400 Bad Request error
func BadRequest(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusBadRequest, message, errorCode...)
}

// Unauthorized sends a 401 Unauthorized error
func Unauthorized(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusUnauthorized, message, errorCode...)
}

// Forbidden sends a 403 Forbidden error
func Forbidden(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusForbidden, message, errorCode...)
}

// NotFound sends a 404 Not Found error
func NotFound(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusNotFound, message, errorCode...)
}

// Conflict sends a 409 Conflict error
func Conflict(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusConflict, message, errorCode...)
}

// InternalServerError sends a 500 Internal Server Error
func InternalServerError(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusInternalServerError, message, errorCode...)
}

// ServiceUnavailable sends a 503 Service Unavailable error
func ServiceUnavailable(c *gin.Context, message string, errorCode ...string) {
	Error(c, http.StatusServiceUnavailable, message, errorCode...)
}

// BindError handles request binding failures. Validation failures carry the
// offending fields in data.
func BindError(c *gin.Context, err error) {
	fields := validator.FormatValidationErrors(err)
	if len(fields) == 0 {
		BadRequest(c, "Invalid request format", "INVALID_REQUEST")
		return
	}
	ErrorWithData(c, http.StatusBadRequest, "Validation failed", "VALIDATION_FAILED", fields)
}

// AuthorizationError handles authorization failures
func AuthorizationError(c *gin.Context, message string) {
	Forbidden(c, message, "FORBIDDEN")
}

// FromError maps a domain error onto the HTTP taxonomy. Anything that is not
// a classified error becomes a generic 500.
func FromError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)

	if kind == apperrors.KindInternal {
		_ = c.Error(err)
		InternalServerError(c, "Internal server error", "INTERNAL_ERROR")
		return
	}

	if appErr, ok := apperrors.As(err); ok {
		Error(c, status, appErr.Message, appErr.Code)
		return
	}
	Error(c, status, err.Error())
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
