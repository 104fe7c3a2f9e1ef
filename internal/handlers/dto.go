//go:build swagger
// +build swagger

package handlers

// DTO strutcs only for Swagger documetation

// CreateMessageRequest represents message creation request data
type CreateMessageRequest struct {
	Sender   string `json:"sender" binding:"required"`
	Receiver string `json:"receiver" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// MessageResponse represents a decrypted message record
type MessageResponse struct {
	ID        string `json:"_id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// DeleteResponse represents message deletion result
type DeleteResponse struct {
	Success bool `json:"success"`
}
