package models

import "time"

// Message is a decrypted chat record as exposed to clients. The ciphertext
// column never leaves the repository, so there is no field for it here.
type Message struct {
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SamePair reports whether the message belongs to the unordered
// conversation pair {a, b}.
func (m *Message) SamePair(a, b string) bool {
	return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
}

// Frame is a live-channel event. Type discriminates; unused fields stay empty.
type Frame struct {
	Type string `json:"type"`

	Email string `json:"email,omitempty"`

	ID        string     `json:"_id,omitempty"`
	Sender    string     `json:"sender,omitempty"`
	Receiver  string     `json:"receiver,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	MessageID string `json:"messageId,omitempty"`

	Error string `json:"error,omitempty"`
}

const (
	FrameJoin           = "join"
	FrameSendMessage    = "send_message"
	FrameReceiveMessage = "receive_message"
	FrameDeleteMessage  = "delete_message"
	FrameMessageDeleted = "message_deleted"
)

// ReceiveFrame wraps a saved message into a receive_message event.
func ReceiveFrame(msg *Message) Frame {
	ts := msg.Timestamp
	return Frame{
		Type:      FrameReceiveMessage,
		ID:        msg.ID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Message:   msg.Message,
		Timestamp: &ts,
	}
}

// DeletedFrame wraps a message id into a message_deleted event.
func DeletedFrame(messageID string) Frame {
	return Frame{Type: FrameMessageDeleted, MessageID: messageID}
}
