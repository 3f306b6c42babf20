package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
)

// ReadinessChecker reports whether the dashboard can serve data.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type Handler struct {
	checker  ReadinessChecker
	gatherer prometheus.Gatherer
}

// NewHandler serves metrics from gatherer, or the default registry when nil.
func NewHandler(checker ReadinessChecker, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		checker:  checker,
		gatherer: gatherer,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/metrics", h.MetricsHandler)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessCheck is DOWN while the cancellation sheet cannot be loaded. A
// missing Patients Seen sheet does not affect readiness.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.checker.Ready(c.Request.Context()); err != nil {
		reason := "Dataset could not be loaded"
		if errors.IsDataUnavailable(err) {
			reason = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": reason,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
