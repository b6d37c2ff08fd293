package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error is an error with the HTTP status it should be reported as.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// From converts any error into an *Error, defaulting to 500.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := From(c.Errors.Last().Err)
		if appErr.Code >= http.StatusInternalServerError {
			zap.L().Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(appErr),
			)
		}
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
	}
}
