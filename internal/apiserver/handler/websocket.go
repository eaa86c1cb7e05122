package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chantierhq/chantier/internal/apiserver/realtime"
)

const readTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin browsers are allowed; authentication happens on the
		// token, not the origin.
		return true
	},
}

// wsToken pulls the JWT from the query string or the Authorization header.
func wsToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// HandleWebSocket authenticates the caller, upgrades the connection and runs
// the inbound event loop until the peer goes away.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := wsToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.db.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	client := h.hub.Register(conn, user.ID, user.Username)
	defer h.hub.Unregister(client)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Uint("userId", user.ID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.dispatchEvent(c, client, &msg)
	}
}

// dispatchEvent routes one inbound frame. Unknown events are dropped.
func (h *Handler) dispatchEvent(c *gin.Context, client *realtime.Client, msg *realtime.Message) {
	projectID := projectIDFromData(msg.Data)
	if projectID == 0 {
		return
	}

	switch msg.Event {
	case "join-project":
		user, err := h.db.GetUserByID(c.Request.Context(), client.UserID)
		if err != nil {
			return
		}
		if _, err := h.acl.Evaluate(c.Request.Context(), user, projectID); err != nil {
			h.logger.Debug("join-project refused",
				zap.Uint("userId", client.UserID),
				zap.Uint("projectId", projectID),
				zap.Error(err))
			return
		}
		h.hub.Join(projectID, client)
	case "project-update":
		h.hub.PublishExcept(projectID, client, "project-updated", msg.Data)
	case "task-update":
		h.hub.PublishExcept(projectID, client, "task-updated", msg.Data)
	case "cursor-move":
		data := msg.Data
		if data == nil {
			data = map[string]any{}
		}
		data["userId"] = client.UserID
		data["username"] = client.Username
		h.hub.PublishExcept(projectID, client, "cursor-moved", data)
	}
}

// projectIDFromData extracts the projectId field from a frame payload.
func projectIDFromData(data map[string]any) uint {
	if data == nil {
		return 0
	}
	switch v := data["projectId"].(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(id)
		}
	}
	return 0
}
