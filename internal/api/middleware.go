package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra"

	"github.com/gin-gonic/gin"
)

// ErrorHandler recovers handler panics into a JSON 500
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		infra.GlobalMetrics.RecordError()
		slog.Error("Handler panic",
			slog.String("path", c.Request.URL.Path),
			slog.String("panic", fmt.Sprint(recovered)),
		)
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL_ERROR", Message: msg},
		})
	})
}

// RequestLogger logs one line per request through slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// abortWithParamsError replies 400 INVALID_PARAMS naming the offending field
func abortWithParamsError(c *gin.Context, err error) {
	field, _ := domain.ParamsField(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{Code: "INVALID_PARAMS", Message: err.Error(), Field: field},
	})
}
