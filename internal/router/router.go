package router

import (
	"github.com/gin-gonic/gin"

	"ccdsync/internal/handler"
	"ccdsync/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	comparisonH *handler.ComparisonHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	v1.POST("/comparisons", comparisonH.Create)

	runs := v1.Group("/runs")
	runs.GET("", comparisonH.ListRuns)
	runs.GET("/:id", comparisonH.GetRun)
	runs.GET("/:id/records", comparisonH.ListRecords)
	runs.GET("/:id/missing", comparisonH.ListMissing)
	runs.GET("/:id/analysis", comparisonH.Analysis)
	runs.GET("/:id/export", comparisonH.Export)

	return r
}
