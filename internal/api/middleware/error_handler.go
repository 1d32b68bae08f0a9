// Package middleware provides the Gin middleware chain for the API.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/api/openapi"
	apperrors "keyport.io/keyport/internal/pkg/errors"
	"keyport.io/keyport/internal/pkg/logger"
)

// ErrorHandler renders the last error pushed with c.Error as a JSON body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RenderError(c, c.Errors.Last().Err)
	}
}

// RenderError writes err as an Error body and aborts the chain.
func RenderError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		fields := []zap.Field{
			zap.String("code", appErr.Code),
			zap.Int("status", appErr.HTTPStatus),
			zap.String("request_id", GetRequestID(c.Request.Context())),
		}
		if appErr.Err != nil {
			fields = append(fields, zap.Error(appErr.Err))
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
		} else {
			logger.Debug("Request rejected", fields...)
		}
		if appErr.HTTPStatus == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "Bearer")
		}
		c.AbortWithStatusJSON(appErr.HTTPStatus, openapi.Error{
			Code:    appErr.Code,
			Message: appErr.Message,
			Params:  appErr.Params,
		})

	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Request timed out",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c.Request.Context())),
		)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, openapi.Error{
			Code:    apperrors.CodeRequestTimeout,
			Message: "request did not complete in time, retry later",
		})

	default:
		logger.Error("Unhandled request error",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, openapi.Error{
			Code:    apperrors.CodeInternal,
			Message: "An internal error occurred",
		})
	}
}
