package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richinex/lexiread/internal/logging"
)

// RegisterRoutes mounts the API on router. gatherer may be nil to omit /metrics.
func RegisterRoutes(router *gin.Engine, handlers *Handlers, gatherer prometheus.Gatherer) {
	router.GET("/health", handlers.HandleHealth)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", handlers.HandleAnalyze)
		v1.POST("/fulltext", handlers.HandleFullText)
		v1.POST("/examples", handlers.HandleExamples)
		v1.POST("/overlay", handlers.HandleOverlay)

		phrases := v1.Group("/phrases")
		{
			phrases.GET("", handlers.HandleListPhrases)
			// Catch-all so keys may contain '/', e.g. "and/or".
			phrases.GET("/*key", handlers.HandleGetPhrase)
			phrases.DELETE("/*key", handlers.HandleDeletePhrase)
		}
	}
}

// RequestLogger logs one line per request through logger.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// NewRouter builds a gin engine with recovery, request logging and routes.
func NewRouter(handlers *Handlers, gatherer prometheus.Gatherer, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	RegisterRoutes(router, handlers, gatherer)
	return router
}
