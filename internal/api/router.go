package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with recovery and request logging.
func NewRouter(h *Handler, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", h.Healthz)

	stores := r.Group("/stores/:storeId")
	{
		stores.GET("/health-index", h.HealthIndex)
		stores.GET("/snapshots", h.ListSnapshots)
		stores.POST("/snapshots", h.CreateSnapshot)
		stores.POST("/recompute", h.EnqueueRecompute)
	}

	return r
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"store_id": c.Param("storeId"),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}
