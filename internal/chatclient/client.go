package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/prakasham-om/jbnet/internal/models"

	"github.com/gorilla/websocket"
)

// Config describes one side of a conversation. In admin mode Self is the
// admin identity and Peer the user being viewed; for end users it is the
// other way around.
type Config struct {
	BaseURL string
	Self    string
	Peer    string
	Logger  *slog.Logger

	// Optional callbacks fired from the read loop.
	OnMessage func(models.Message)
	OnDeleted func(messageID string)
}

// Client is the chat view for a single (self, peer) pair: it mirrors the
// durable conversation locally, keeps it current from live events and only
// ever appends records the server has confirmed.
type Client struct {
	baseURL string
	self    string
	peer    string

	httpClient *http.Client
	conn       *websocket.Conn
	writeMu    sync.Mutex

	mu       sync.RWMutex
	messages []models.Message

	logger    *slog.Logger
	onMessage func(models.Message)
	onDeleted func(string)

	closeOnce sync.Once
	done      chan struct{}
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Self == "" || cfg.Peer == "" {
		return nil, errors.New("base url, self and peer are required")
	}
	if cfg.Self == cfg.Peer {
		return nil, errors.New("self and peer must differ")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		self:       cfg.Self,
		peer:       cfg.Peer,
		httpClient: &http.Client{},
		logger:     logger,
		onMessage:  cfg.OnMessage,
		onDeleted:  cfg.OnDeleted,
		done:       make(chan struct{}),
	}, nil
}

// Open dials the relay, binds the identity with a join frame, replaces the
// local list with the fetched history and starts consuming live events.
func (c *Client) Open(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	c.conn = conn

	if err := c.emit(models.Frame{Type: models.FrameJoin, Email: c.self}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to join: %w", err)
	}

	if err := c.refreshHistory(ctx); err != nil {
		conn.Close()
		return err
	}

	go c.readLoop()

	return nil
}

// refreshHistory replaces local state with the durable conversation. A
// response that is not a message array resets the list to empty instead of
// failing: the durable store stays the source of truth either way.
func (c *Client) refreshHistory(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/messages?user1=%s&user2=%s", c.baseURL, c.self, c.peer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("history fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history fetch failed: status %d", resp.StatusCode)
	}

	var history []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		c.logger.Warn("history response was not a message list, resetting", "error", err)
		history = nil
	}

	c.mu.Lock()
	c.messages = history
	c.mu.Unlock()

	return nil
}

// Send posts the message over REST, appends the authoritative record the
// server returns, then forwards that record over the live channel so the
// relay fans it out without persisting it a second time. Nothing is added
// locally unless the server round trip succeeded.
func (c *Client) Send(ctx context.Context, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty message")
	}

	body, _ := json.Marshal(map[string]string{
		"sender":   c.self,
		"receiver": c.peer,
		"message":  text,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("send failed: status %d", resp.StatusCode)
	}

	var saved models.Message
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return nil, fmt.Errorf("send failed: bad response: %w", err)
	}

	c.mu.Lock()
	c.messages = append(c.messages, saved)
	c.mu.Unlock()

	ts := saved.Timestamp
	frame := models.Frame{
		Type:      models.FrameSendMessage,
		ID:        saved.ID,
		Sender:    saved.Sender,
		Receiver:  saved.Receiver,
		Message:   saved.Message,
		Timestamp: &ts,
	}
	if err := c.emit(frame); err != nil {
		// The record is persisted; the peer will catch up from history.
		c.logger.Warn("live forward failed", "id", saved.ID, "error", err)
	}

	return &saved, nil
}

// Delete removes a message by id. A 404 counts as success (already gone).
// Local state is pruned as soon as the REST call succeeds; the live event
// updates the counterpart's view.
func (c *Client) Delete(ctx context.Context, messageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/messages/"+messageID, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete failed: status %d", resp.StatusCode)
	}

	c.removeLocal(messageID)

	frame := models.Frame{
		Type:      models.FrameDeleteMessage,
		MessageID: messageID,
		Sender:    c.self,
		Receiver:  c.peer,
	}
	if err := c.emit(frame); err != nil {
		c.logger.Warn("delete notification failed", "id", messageID, "error", err)
	}

	return nil
}

// Messages returns a snapshot of the local conversation view.
func (c *Client) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make([]models.Message, len(c.messages))
	copy(snapshot, c.messages)
	return snapshot
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("live channel closed", "error", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Warn("unparseable frame", "error", err)
			continue
		}

		switch frame.Type {
		case models.FrameReceiveMessage:
			msg := models.Message{
				ID:       frame.ID,
				Sender:   frame.Sender,
				Receiver: frame.Receiver,
				Message:  frame.Message,
			}
			if frame.Timestamp != nil {
				msg.Timestamp = *frame.Timestamp
			}

			// Frames for other conversations are ignored; only the open
			// pair belongs in this view.
			if !msg.SamePair(c.self, c.peer) {
				continue
			}

			if c.appendIfNew(msg) && c.onMessage != nil {
				c.onMessage(msg)
			}

		case models.FrameMessageDeleted:
			c.removeLocal(frame.MessageID)
			if c.onDeleted != nil {
				c.onDeleted(frame.MessageID)
			}
		}
	}
}

// appendIfNew skips the live echo of a message this client already appended
// from the REST response.
func (c *Client) appendIfNew(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.messages {
		if existing.ID == msg.ID {
			return false
		}
	}

	c.messages = append(c.messages, msg)
	return true
}

func (c *Client) removeLocal(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, msg := range c.messages {
		if msg.ID == messageID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

func (c *Client) emit(frame models.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(frame)
}
