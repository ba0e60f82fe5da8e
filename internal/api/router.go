package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/db"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/monitor"
)

// NewRouter builds the HTTP surface: the Slack webhook endpoints, the
// WebSocket action stream and the audit REST API.
func NewRouter(svc *monitor.Service, store *db.DB, ws *WSManager, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(svc, store, logger, cfg)

	slack := r.Group("/slack")
	{
		slack.POST("/events", h.SlackEvents)
		slack.POST("/commands", h.SlackCommands)
	}

	api := r.Group(cfg.API.BasePath)
	{
		api.GET("/notifications", h.GetNotifications)
	}

	r.GET("/ws", ws.Handle)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
