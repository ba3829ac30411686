package handlers

import (
	"net/http"

	"campuslink/logger"
	"campuslink/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FeedEventsWS upgrades the connection and subscribes it to the caller's
// campus feed events. The token comes from the query string since browsers
// cannot set headers on WebSocket requests.
func FeedEventsWS(c *gin.Context) {
	userID, err := userService.ResolveToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	services.GlobalWSConnManager.Add(user.Campus, conn)
	logger.Debug("websocket subscribed",
		zap.String("user_id", userID),
		zap.String("campus", user.Campus))

	// Reader loop exists only to detect the close; pushes go through the
	// connection manager.
	go func() {
		defer func() {
			services.GlobalWSConnManager.Remove(conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
