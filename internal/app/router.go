// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	reportHandler "fieldcrm-service/internal/handlers/report"
	visitHandler "fieldcrm-service/internal/handlers/visit"
	"fieldcrm-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker func(ctx context.Context) error

type Handlers struct {
	VisitHandler   *visitHandler.VisitHandler
	ReportHandler  *reportHandler.ReportHandler
	AuthMiddleware *middleware.AuthMiddleware
	Health         map[string]HealthChecker
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	r.Use(
		middleware.RequestID(),
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware(),
	)

	// ==================== Health & Metrics ====================
	r.GET("/health", healthHandler(h.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(h.AuthMiddleware.Auth())

	// ==================== Visits ====================
	visits := api.Group("/visits")
	{
		visits.GET("", h.VisitHandler.ListVisits)
		visits.GET("/summary", h.VisitHandler.Summary)
		visits.GET("/export", h.VisitHandler.Export)
		visits.GET("/latest", h.VisitHandler.LatestVisits)
		visits.GET("/:id", h.VisitHandler.GetVisit)
		visits.POST("", h.VisitHandler.CreateVisit)
		visits.PUT("/:id", h.VisitHandler.UpdateVisit)
		visits.DELETE("/:id", h.VisitHandler.DeleteVisit)
	}

	// ==================== Reports ====================
	reports := api.Group("/reports")
	{
		reports.GET("/visits", h.ReportHandler.Visits)
		reports.GET("/overview", h.ReportHandler.Overview)
		reports.GET("/rep-performance", h.ReportHandler.RepPerformance)
		reports.GET("/rep-performance/export", h.ReportHandler.ExportRepPerformance)
		reports.GET("/product-performance", h.ReportHandler.ProductPerformance)
		reports.GET("/territory-performance", h.ReportHandler.TerritoryPerformance)
	}
}

func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = err.Error()
				continue
			}
			components[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "components": components})
	}
}
