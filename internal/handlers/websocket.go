package handlers

import (
	"log/slog"
	"net/http"

	internalWebsocket "github.com/prakasham-om/jbnet/internal/websocet"

	libWebsocket "github.com/gorilla/websocket"

	"github.com/gin-gonic/gin"
)

type WebsocetHandler struct {
	Hub    *internalWebsocket.Hub
	Logger *slog.Logger
}

func NewWebSocketHandler(hub *internalWebsocket.Hub, logger *slog.Logger) *WebsocetHandler {
	return &WebsocetHandler{
		Hub:    hub,
		Logger: logger,
	}
}

// HandleWebSocket upgrades the connection and hands it to the relay. The
// connection starts anonymous; identity is bound by the join frame. The relay
// trusts whatever email the client supplies there.
func (h *WebsocetHandler) HandleWebSocket(c *gin.Context) {
	upgrader := libWebsocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &internalWebsocket.Client{
		Hub:  h.Hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.Logger.Info("WebSocket connection established", "remote", conn.RemoteAddr())
}
