package inspect

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"component": s.cfg.Component,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     true,
			"uptime":    time.Since(s.appeared).String(),
			"component": s.cfg.Component,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/v1/pushes", func(c *gin.Context) {
		entries := s.ledger.List()
		c.JSON(http.StatusOK, gin.H{
			"pending": s.ledger.PendingCount(),
			"pushes":  entries,
		})
	})

	s.router.GET("/v1/pushes/:ref", func(c *gin.Context) {
		entry, ok := s.ledger.Get(c.Param("ref"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "push not found"})
			return
		}
		c.JSON(http.StatusOK, entry)
	})
}
