package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prakasham-om/jbnet/internal/models"
	"github.com/prakasham-om/jbnet/internal/ports"
	"github.com/prakasham-om/jbnet/internal/repositories"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live connection. Email stays empty until the client sends a
// join frame; an anonymous connection receives nothing.
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	Email string
}

type bindRequest struct {
	client *Client
	email  string
}

// Hub is the realtime relay and the presence registry in one place. The
// identity map mutates only inside Run, fed by the Register, Unregister and
// bind channels; delivery takes a read lock. At most one connection is
// tracked per identity; a later join silently replaces the earlier mapping.
type Hub struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	Bind       chan bindRequest

	Mutex       sync.RWMutex
	ChatService ports.IChatService
	Logger      *slog.Logger

	activeConnections prometheus.Gauge
}

func NewHub(chatService ports.IChatService, logger *slog.Logger) *Hub {
	return &Hub{
		Clients:     make(map[string]*Client),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		Bind:        make(chan bindRequest),
		ChatService: chatService,
		Logger:      logger,
	}
}

// SetActiveConnectionsGauge wires the prometheus gauge tracking open sockets.
func (h *Hub) SetActiveConnectionsGauge(gauge prometheus.Gauge) {
	h.activeConnections = gauge
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.Register:
			if h.activeConnections != nil {
				h.activeConnections.Inc()
			}
			h.Logger.Info("Client connected")

		case client := <-h.Unregister:
			h.Mutex.Lock()
			if client.Email != "" && h.Clients[client.Email] == client {
				delete(h.Clients, client.Email)
			}
			close(client.Send)
			h.Mutex.Unlock()
			if h.activeConnections != nil {
				h.activeConnections.Dec()
			}
			h.Logger.Info("Client disconnected", "email", client.Email)

		case req := <-h.Bind:
			h.Mutex.Lock()
			// A connection re-joining under a new email must not leave a
			// stale mapping behind.
			for email, existing := range h.Clients {
				if existing == req.client && email != req.email {
					delete(h.Clients, email)
				}
			}
			if previous, ok := h.Clients[req.email]; ok && previous != req.client {
				h.Logger.Info("Replacing live connection", "email", req.email)
			}
			h.Clients[req.email] = req.client
			h.Mutex.Unlock()
			h.Logger.Info("User joined", "email", req.email)
		}
	}
}

// DeliverToUser sends one frame to the identity's live connection, if any.
// Delivery is best effort: an absent identity is a silent miss and a full
// send buffer drops the frame rather than blocking the relay. The read lock
// is held across the send so the run loop cannot close the channel between
// the lookup and the send.
func (h *Hub) DeliverToUser(email string, frame models.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.Logger.Error("Failed to marshal frame", "error", err)
		return
	}

	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	client, exists := h.Clients[email]
	if !exists {
		h.Logger.Debug("User not connected", "email", email, "type", frame.Type)
		return
	}

	select {
	case client.Send <- data:
		h.Logger.Debug("Frame sent to user", "email", email, "type", frame.Type)
	default:
		h.Logger.Warn("Client send buffer full, dropping frame", "email", email, "type", frame.Type)
	}
}

// DeliverToPair notifies both participants of a conversation independently.
func (h *Hub) DeliverToPair(sender, receiver string, frame models.Frame) {
	h.DeliverToUser(sender, frame)
	h.DeliverToUser(receiver, frame)
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.Logger.Error("Websocket error", "error", err)
			}
			break
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Hub.Logger.Error("Failed to parse frame", "error", err)
			continue
		}

		switch frame.Type {
		case models.FrameJoin:
			if frame.Email == "" {
				c.Hub.Logger.Warn("Join without email ignored")
				continue
			}
			c.Email = frame.Email
			c.Hub.Bind <- bindRequest{client: c, email: frame.Email}

		case models.FrameSendMessage:
			c.handleSendMessage(frame)

		case models.FrameDeleteMessage:
			c.handleDeleteMessage(frame)

		default:
			c.Hub.Logger.Warn("Unknown frame type", "type", frame.Type)
		}
	}
}

// handleSendMessage persists and fans out a message. A frame that already
// carries an _id was persisted over REST by the sender; it is forwarded
// without touching the store again.
func (c *Client) handleSendMessage(frame models.Frame) {
	if frame.Sender == "" || frame.Receiver == "" || frame.Message == "" {
		c.Hub.Logger.Warn("Dropping send_message with missing fields",
			"sender", frame.Sender, "receiver", frame.Receiver)
		return
	}

	if frame.ID != "" {
		msg := models.Message{
			ID:       frame.ID,
			Sender:   frame.Sender,
			Receiver: frame.Receiver,
			Message:  frame.Message,
		}
		if frame.Timestamp != nil {
			msg.Timestamp = *frame.Timestamp
		}
		c.Hub.DeliverToPair(msg.Sender, msg.Receiver, models.ReceiveFrame(&msg))
		return
	}

	msg, err := c.Hub.ChatService.SendMessage(context.Background(), frame.Sender, frame.Receiver, frame.Message)
	if err != nil {
		c.Hub.Logger.Error("Failed to send message",
			"error", err,
			"sender", frame.Sender,
			"receiver", frame.Receiver)
		return
	}

	c.Hub.DeliverToPair(msg.Sender, msg.Receiver, models.ReceiveFrame(msg))
}

// handleDeleteMessage removes the record and notifies both participants. The
// notification goes out even when the id was already gone; only a storage
// failure suppresses it.
func (c *Client) handleDeleteMessage(frame models.Frame) {
	if frame.MessageID == "" {
		c.Hub.Logger.Warn("Dropping delete_message without id")
		return
	}

	err := c.Hub.ChatService.DeleteMessage(context.Background(), frame.MessageID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		c.Hub.Logger.Error("Failed to delete message", "id", frame.MessageID, "error", err)
		return
	}

	c.Hub.DeliverToPair(frame.Sender, frame.Receiver, models.DeletedFrame(frame.MessageID))
}

func (c *Client) WritePump() {
	defer func() {
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		}
	}
}
