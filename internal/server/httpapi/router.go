package httpapi

import (
	"net/http"
	"time"

	"photodrop/internal/logging"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(l logging.Logger, auth AuthAPI, photos PhotoAPI) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(l))

	authHandler := NewAuthHandler(auth)
	photoHandler := NewPhotoHandler(photos)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)

		me := authGroup.Group("/")
		me.Use(requireAuth(auth))
		{
			me.GET("/me", authHandler.Me)
			me.PUT("/me", authHandler.UpdateMe)
			me.GET("/sessions", authHandler.ListSessions)
			me.DELETE("/sessions/:id", authHandler.RevokeSession)
		}
	}

	photosGroup := r.Group("/photos")
	{
		public := photosGroup.Group("/")
		public.Use(optionalAuth(auth))
		{
			public.GET("/", photoHandler.List)
			public.GET("/:id", photoHandler.Get)
			public.GET("/nearby/photos", photoHandler.Nearby)
		}

		owner := photosGroup.Group("/")
		owner.Use(requireAuth(auth))
		{
			owner.POST("/upload", photoHandler.Upload)
			owner.PUT("/:id", photoHandler.Update)
			owner.DELETE("/:id", photoHandler.Delete)
		}
	}

	return r
}

// requestLogger logs one line per request through the shared logger.
func requestLogger(l logging.Logger) gin.HandlerFunc {
	log := l.With("module", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
