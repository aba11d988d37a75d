package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the error payload returned to clients.
type ErrorBody struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse defines the structure of error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorHandler catches panics and returns a structured 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
					Kind:    KindPersistence,
					Code:    "internal",
					Message: "An unexpected error occurred. Please try again later.",
				}})
			}
		}()
		c.Next()
	}
}

// RespondError writes err as a structured response. Internal detail goes to
// the log only.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewPersistenceError("internal error", err)
	}
	status := appErr.HTTPStatus()

	fields := []zap.Field{
		zap.String("kind", string(appErr.Kind)),
		zap.String("code", appErr.Code),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(appErr.Message, fields...)
	} else {
		logger.Warn(appErr.Message, fields...)
	}

	message := appErr.Message
	if appErr.Kind == KindPersistence {
		message = "internal error, please retry"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Kind:    appErr.Kind,
		Code:    appErr.Code,
		Message: message,
	}})
}
