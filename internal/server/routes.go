package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates the gin router with every API route.
func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	api := router.Group("/api")
	{
		scraper := api.Group("/scraper")
		{
			scraper.POST("/start", h.StartScraper)
			scraper.POST("/stop", h.StopScraper)
			scraper.GET("/status", h.Status)
		}

		api.GET("/events", h.RecentEvents)
		api.GET("/events/stream", h.StreamEvents)
		api.POST("/prompts/:id", h.AnswerPrompt)

		api.GET("/items", h.ListItems)
		api.GET("/stats", h.SystemStats)
	}

	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	return router
}
