package handlers

import (
	"context"
	"net/http"

	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TrainingEventsSocket streams training events from the Redis channel to a
// websocket client. When auth is non-nil a valid token query parameter is
// required.
func TrainingEventsSocket(cache *services.CacheService, auth *services.AuthService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !cache.Available() {
			abortWithDetail(c, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}

		if auth != nil {
			tokenStr := c.Query("token")
			if tokenStr == "" {
				abortWithDetail(c, http.StatusUnauthorized, "missing token query parameter")
				return
			}
			if _, err := auth.ValidateToken(tokenStr); err != nil {
				abortWithDetail(c, http.StatusUnauthorized, "invalid or expired token")
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, services.TrainingChannel)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": "training_event",
					"data": msg.Payload,
				})
				if err != nil {
					logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	}
}
