package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prakasham-om/jbnet/app/tests"
	"github.com/prakasham-om/jbnet/internal/models"
	"github.com/prakasham-om/jbnet/internal/repositories"
	"github.com/prakasham-om/jbnet/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestChat_SendMessage(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	saved := &models.Message{
		ID:        "m1",
		Sender:    "user@example.com",
		Receiver:  "admin@example.com",
		Message:   "hello",
		Timestamp: time.Now(),
	}

	ts := []struct {
		name          string
		sender        string
		receiver      string
		message       string
		setupMocks    func(messageRepo *tests.MockMessageRepository)
		expectedMsg   *models.Message
		expectedError error
	}{
		{
			name:     "Successful send",
			sender:   "user@example.com",
			receiver: "admin@example.com",
			message:  "hello",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("CreateMessage", ctx, "user@example.com", "admin@example.com", "hello").Return(saved, nil)
			},
			expectedMsg:   saved,
			expectedError: nil,
		},
		{
			name:          "Empty sender",
			sender:        "",
			receiver:      "admin@example.com",
			message:       "hello",
			setupMocks:    func(messageRepo *tests.MockMessageRepository) {},
			expectedMsg:   nil,
			expectedError: services.ErrInvalidInput,
		},
		{
			name:          "Empty message body",
			sender:        "user@example.com",
			receiver:      "admin@example.com",
			message:       "",
			setupMocks:    func(messageRepo *tests.MockMessageRepository) {},
			expectedMsg:   nil,
			expectedError: services.ErrInvalidInput,
		},
		{
			name:          "Sender equals receiver",
			sender:        "user@example.com",
			receiver:      "user@example.com",
			message:       "hello me",
			setupMocks:    func(messageRepo *tests.MockMessageRepository) {},
			expectedMsg:   nil,
			expectedError: services.ErrSelfConversation,
		},
		{
			name:     "Storage unavailable",
			sender:   "user@example.com",
			receiver: "admin@example.com",
			message:  "hello",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("CreateMessage", ctx, "user@example.com", "admin@example.com", "hello").
					Return((*models.Message)(nil), repositories.ErrStorageUnavailable)
			},
			expectedMsg:   nil,
			expectedError: repositories.ErrStorageUnavailable,
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			messageRepo := &tests.MockMessageRepository{}
			tt.setupMocks(messageRepo)

			service := services.NewChatService(messageRepo, logger)
			msg, err := service.SendMessage(ctx, tt.sender, tt.receiver, tt.message)

			assert.Equal(t, tt.expectedMsg, msg)
			assert.Equal(t, tt.expectedError, err)

			messageRepo.AssertExpectations(t)
		})
	}
}

func TestChat_GetHistory(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	conversation := []models.Message{
		{ID: "m1", Sender: "u1", Receiver: "admin", Message: "first"},
		{ID: "m2", Sender: "admin", Receiver: "u1", Message: "second"},
	}

	ts := []struct {
		name          string
		userA         string
		userB         string
		setupMocks    func(messageRepo *tests.MockMessageRepository)
		expected      []models.Message
		expectedError error
	}{
		{
			name:  "Successful fetch",
			userA: "u1",
			userB: "admin",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("GetConversation", ctx, "u1", "admin").Return(conversation, nil)
			},
			expected:      conversation,
			expectedError: nil,
		},
		{
			name:  "Reversed pair forwards as given",
			userA: "admin",
			userB: "u1",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("GetConversation", ctx, "admin", "u1").Return(conversation, nil)
			},
			expected:      conversation,
			expectedError: nil,
		},
		{
			name:          "Missing participant",
			userA:         "",
			userB:         "admin",
			setupMocks:    func(messageRepo *tests.MockMessageRepository) {},
			expected:      nil,
			expectedError: services.ErrInvalidInput,
		},
		{
			name:  "Repository error",
			userA: "u1",
			userB: "admin",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("GetConversation", ctx, "u1", "admin").Return(([]models.Message)(nil), errors.New("db error"))
			},
			expected:      nil,
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			messageRepo := &tests.MockMessageRepository{}
			tt.setupMocks(messageRepo)

			service := services.NewChatService(messageRepo, logger)
			messages, err := service.GetHistory(ctx, tt.userA, tt.userB)

			assert.Equal(t, tt.expected, messages)
			assert.Equal(t, tt.expectedError, err)

			messageRepo.AssertExpectations(t)
		})
	}
}

func TestChat_DeleteMessage(t *testing.T) {
	logger := slog.Default()
	ctx := context.Background()

	ts := []struct {
		name          string
		messageID     string
		setupMocks    func(messageRepo *tests.MockMessageRepository)
		expectedError error
	}{
		{
			name:      "Successful delete",
			messageID: "m1",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("DeleteMessage", ctx, "m1").Return(nil)
			},
			expectedError: nil,
		},
		{
			name:          "Empty id",
			messageID:     "",
			setupMocks:    func(messageRepo *tests.MockMessageRepository) {},
			expectedError: services.ErrInvalidInput,
		},
		{
			name:      "Unknown id is not fatal",
			messageID: "missing",
			setupMocks: func(messageRepo *tests.MockMessageRepository) {
				messageRepo.On("DeleteMessage", ctx, "missing").Return(repositories.ErrNotFound)
			},
			expectedError: repositories.ErrNotFound,
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			messageRepo := &tests.MockMessageRepository{}
			tt.setupMocks(messageRepo)

			service := services.NewChatService(messageRepo, logger)
			err := service.DeleteMessage(ctx, tt.messageID)

			assert.Equal(t, tt.expectedError, err)

			messageRepo.AssertExpectations(t)
		})
	}
}
