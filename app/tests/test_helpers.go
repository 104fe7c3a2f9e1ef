package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/prakasham-om/jbnet/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateMessage(ctx context.Context, sender, receiver, plaintext string) (*models.Message, error) {
	args := m.Called(ctx, sender, receiver, plaintext)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendMessage(ctx context.Context, sender, receiver, message string) (*models.Message, error) {
	args := m.Called(ctx, sender, receiver, message)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockChatService) GetHistory(ctx context.Context, userA, userB string) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockChatService) DeleteMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityService) RevokeToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error {
	args := m.Called(ctx, tokenHash, expiration)
	return args.Error(0)
}

func CreateTestRequest(url, method string, body interface{}) *http.Request {
	var buffer bytes.Buffer
	if body != nil {
		json.NewEncoder(&buffer).Encode(body)
	}

	req := httptest.NewRequest(method, url, &buffer)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func ExecuteHandler(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
