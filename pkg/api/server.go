// Package api exposes conceal, reveal, capacity and analysis over HTTP.
// Uploads are processed in memory and every request builds its own
// container, so handlers share no state.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Config holds the server settings.
type Config struct {
	AllowOrigins []string
	MaxUpload    int64 // bytes; 0 means 32 MiB
}

// NewRouter builds the gin engine with all routes under /api/v1.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.MaxUpload == 0 {
		cfg.MaxUpload = 32 << 20
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{
		"Content-Disposition",
		HeaderCapacity, HeaderDegradation, HeaderEnvelope, HeaderFlags, HeaderFormat, HeaderPSNR,
	}
	router.Use(cors.New(corsConfig))

	h := NewHandler(cfg.MaxUpload)

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/capacity", h.Capacity)
		api.POST("/conceal", h.Conceal)
		api.POST("/reveal", h.Reveal)
		api.POST("/analyze", h.Analyze)
	}
	return router
}
