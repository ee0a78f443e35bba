package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"arcana/internal/logging"
	"arcana/internal/server/config"
)

// NewRouter assembles the gin engine: public auth endpoints, then the sync
// surface behind bearer authentication.
func NewRouter(cfg *config.Config, logger logging.Logger, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		sync := v1.Group("/sync")
		sync.Use(Auth([]byte(cfg.SecretKey)))
		{
			sync.POST("/delta", h.Delta)
			sync.GET("/:table", h.Fetch)
			sync.PUT("/:table", h.Upsert)
			sync.DELETE("/:table/:id", h.Delete)
		}
	}
	return r
}
