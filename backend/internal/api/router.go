package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linklander/backend/internal/persistence"
	"linklander/backend/internal/search"
)

// TitleResolver looks up a page title; an empty result means unknown
type TitleResolver interface {
	ResolveOrEmpty(ctx context.Context, rawURL string) string
}

// Options wires the router's dependencies
type Options struct {
	Gateway *persistence.Gateway
	Search  search.Provider
	// Titles is consulted when a link is added without a title; nil disables the lookup
	Titles     TitleResolver
	Logger     *zap.Logger
	Production bool
}

// Handler serves the link and tag API
type Handler struct {
	gateway *persistence.Gateway
	search  search.Provider
	titles  TitleResolver
	logger  *zap.Logger
}

// NewRouter builds the gin engine with middleware and every API route
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		gateway: opts.Gateway,
		search:  opts.Search,
		titles:  opts.Titles,
		logger:  log.Named("api"),
	}

	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(h.logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/search", h.searchLinks)

		links := api.Group("/links")
		links.GET("", h.listLinks)
		links.POST("", h.addLink)
		links.DELETE("", h.deleteLinks)
		links.GET("/search", h.findLinks)
		links.POST("/update", h.updateLink)
		links.GET("/:uuid", h.getLink)
		links.PATCH("/:uuid", h.patchLink)
		links.DELETE("/:uuid", h.deleteLink)
		links.PUT("/:uuid/score", h.setScore)
		links.GET("/:uuid/visit", h.visitLink)
		links.GET("/:uuid/tags", h.linkTags)
		links.PUT("/:uuid/tags", h.setLinkTags)
		links.POST("/:uuid/tags/:tag", h.tagLink)
		links.DELETE("/:uuid/tags/:tag", h.untagLink)

		tags := api.Group("/tags")
		tags.GET("", h.listTags)
		tags.POST("", h.addTag)
		tags.DELETE("", h.deleteTags)
		tags.GET("/search", h.linksForTag)
		tags.POST("/update", h.updateTag)
		tags.POST("/click", h.clickTag)
		tags.GET("/:uuid", h.getTag)
		tags.DELETE("/:uuid", h.deleteTag)
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("HTTP Request", fields...)
			return
		}
		log.Info("HTTP Request", fields...)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
