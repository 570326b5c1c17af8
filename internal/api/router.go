// Package api exposes the analytics service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/analytics", h.GetAnalytics)
		v1.GET("/backtest", h.GetBacktest)
		v1.GET("/alerts", h.GetAlerts)
		v1.DELETE("/alerts", h.ClearAlerts)
		v1.GET("/export.csv", h.ExportCSV)
		v1.GET("/params", h.GetParams)
		v1.PUT("/params", h.PutParams)
		v1.GET("/pair", h.GetPair)
		v1.PUT("/pair", h.PutPair)
		v1.POST("/collect", h.StartCollect)
		v1.DELETE("/collect", h.StopCollect)
		v1.GET("/status", h.GetStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	return router
}

// WithCORS wraps the router with a CORS policy. An empty origin list
// allows every origin.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}).Handler(h)
}
