package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/prakasham-om/jbnet/app/tests"
	"github.com/prakasham-om/jbnet/internal/models"
	"github.com/prakasham-om/jbnet/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestClient(hub *Hub) *Client {
	return &Client{Hub: hub, Send: make(chan []byte, 8)}
}

func bindAndWait(t *testing.T, hub *Hub, client *Client, email string) {
	t.Helper()

	client.Email = email
	hub.Bind <- bindRequest{client: client, email: email}

	assert.Eventually(t, func() bool {
		hub.Mutex.RLock()
		defer hub.Mutex.RUnlock()
		return hub.Clients[email] == client
	}, time.Second, 5*time.Millisecond)
}

func receiveFrame(t *testing.T, client *Client) models.Frame {
	t.Helper()

	select {
	case data := <-client.Send:
		var frame models.Frame
		assert.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("expected a frame, got none")
		return models.Frame{}
	}
}

func assertNoFrame(t *testing.T, client *Client) {
	t.Helper()

	select {
	case data := <-client.Send:
		t.Fatalf("expected no frame, got %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_JoinReplacesPreviousConnection(t *testing.T) {
	hub := NewHub(&tests.MockChatService{}, slog.Default())
	go hub.Run()

	first := newTestClient(hub)
	second := newTestClient(hub)

	bindAndWait(t, hub, first, "u1@example.com")
	bindAndWait(t, hub, second, "u1@example.com")

	hub.DeliverToUser("u1@example.com", models.DeletedFrame("m1"))

	frame := receiveFrame(t, second)
	assert.Equal(t, models.FrameMessageDeleted, frame.Type)
	assertNoFrame(t, first)
}

func TestHub_DisconnectKeepsReplacementBound(t *testing.T) {
	hub := NewHub(&tests.MockChatService{}, slog.Default())
	go hub.Run()

	first := newTestClient(hub)
	second := newTestClient(hub)

	bindAndWait(t, hub, first, "u1@example.com")
	bindAndWait(t, hub, second, "u1@example.com")

	// The replaced connection going away must not evict its replacement.
	hub.Unregister <- first

	assert.Eventually(t, func() bool {
		hub.Mutex.RLock()
		defer hub.Mutex.RUnlock()
		return hub.Clients["u1@example.com"] == second
	}, time.Second, 5*time.Millisecond)
}

func TestHub_RejoinUnderNewEmailDropsStaleMapping(t *testing.T) {
	hub := NewHub(&tests.MockChatService{}, slog.Default())
	go hub.Run()

	client := newTestClient(hub)
	bindAndWait(t, hub, client, "old@example.com")
	bindAndWait(t, hub, client, "new@example.com")

	hub.Mutex.RLock()
	_, staleExists := hub.Clients["old@example.com"]
	hub.Mutex.RUnlock()
	assert.False(t, staleExists)
}

func TestHub_DeliverRacingDisconnectDoesNotPanic(t *testing.T) {
	hub := NewHub(&tests.MockChatService{}, slog.Default())
	go hub.Run()

	// Delivery must never land on a channel the run loop has already closed,
	// no matter how the goroutines interleave around a disconnect.
	frame := models.DeletedFrame("m1")
	for i := 0; i < 200; i++ {
		client := newTestClient(hub)
		bindAndWait(t, hub, client, "u1@example.com")

		done := make(chan struct{})
		go func() {
			for j := 0; j < 25; j++ {
				hub.DeliverToUser("u1@example.com", frame)
			}
			close(done)
		}()

		hub.Unregister <- client
		<-done
	}
}

func TestHub_DeliverToUser_OfflineIsSilentMiss(t *testing.T) {
	hub := NewHub(&tests.MockChatService{}, slog.Default())

	hub.DeliverToUser("nobody@example.com", models.DeletedFrame("m1"))
}

func TestHub_SendMessage_PersistsAndFansOutToBoth(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	receiver := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")
	bindAndWait(t, hub, receiver, "admin")

	saved := &models.Message{
		ID:        "m42",
		Sender:    "u1",
		Receiver:  "admin",
		Message:   "hello",
		Timestamp: time.Now(),
	}
	chatService.On("SendMessage", mock.Anything, "u1", "admin", "hello").Return(saved, nil)

	sender.handleSendMessage(models.Frame{
		Type:     models.FrameSendMessage,
		Sender:   "u1",
		Receiver: "admin",
		Message:  "hello",
	})

	for _, client := range []*Client{sender, receiver} {
		frame := receiveFrame(t, client)
		assert.Equal(t, models.FrameReceiveMessage, frame.Type)
		assert.Equal(t, "m42", frame.ID)
		assert.Equal(t, "hello", frame.Message)
	}

	chatService.AssertExpectations(t)
}

func TestHub_SendMessage_OfflineReceiverStillPersists(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")

	saved := &models.Message{ID: "m1", Sender: "u1", Receiver: "admin", Message: "hi"}
	chatService.On("SendMessage", mock.Anything, "u1", "admin", "hi").Return(saved, nil)

	sender.handleSendMessage(models.Frame{
		Type:     models.FrameSendMessage,
		Sender:   "u1",
		Receiver: "admin",
		Message:  "hi",
	})

	frame := receiveFrame(t, sender)
	assert.Equal(t, models.FrameReceiveMessage, frame.Type)
	assert.Equal(t, "m1", frame.ID)

	chatService.AssertExpectations(t)
}

func TestHub_SendMessage_MissingFieldsDroppedSilently(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")

	sender.handleSendMessage(models.Frame{
		Type:   models.FrameSendMessage,
		Sender: "u1",
	})

	assertNoFrame(t, sender)
	chatService.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHub_SendMessage_ForwardOnlyWhenAlreadyPersisted(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	receiver := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")
	bindAndWait(t, hub, receiver, "admin")

	ts := time.Now()
	sender.handleSendMessage(models.Frame{
		Type:      models.FrameSendMessage,
		ID:        "rest-created",
		Sender:    "u1",
		Receiver:  "admin",
		Message:   "hello",
		Timestamp: &ts,
	})

	frame := receiveFrame(t, receiver)
	assert.Equal(t, "rest-created", frame.ID)

	chatService.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHub_DeleteMessage_NotifiesBothEvenWhenMissing(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	receiver := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")
	bindAndWait(t, hub, receiver, "admin")

	chatService.On("DeleteMessage", mock.Anything, "gone").Return(repositories.ErrNotFound)

	sender.handleDeleteMessage(models.Frame{
		Type:      models.FrameDeleteMessage,
		MessageID: "gone",
		Sender:    "u1",
		Receiver:  "admin",
	})

	for _, client := range []*Client{sender, receiver} {
		frame := receiveFrame(t, client)
		assert.Equal(t, models.FrameMessageDeleted, frame.Type)
		assert.Equal(t, "gone", frame.MessageID)
	}

	chatService.AssertExpectations(t)
}

func TestHub_DeleteMessage_StorageFailureSuppressesNotification(t *testing.T) {
	chatService := &tests.MockChatService{}
	hub := NewHub(chatService, slog.Default())
	go hub.Run()

	sender := newTestClient(hub)
	bindAndWait(t, hub, sender, "u1")

	chatService.On("DeleteMessage", mock.Anything, "m1").Return(repositories.ErrStorageUnavailable)

	sender.handleDeleteMessage(models.Frame{
		Type:      models.FrameDeleteMessage,
		MessageID: "m1",
		Sender:    "u1",
		Receiver:  "admin",
	})

	assertNoFrame(t, sender)
}
