package repositories

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prakasham-om/jbnet/internal/cipher"
	"github.com/prakasham-om/jbnet/internal/models"

	"github.com/google/uuid"
)

//go:embed migrations/001_create_messages_table_up.sql
var createMessagesTableQuery string

var (
	ErrNotFound           = errors.New("message not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// MessageRepository is the durable message store. Bodies are encrypted on the
// way in and decrypted on the way out; the encrypted_message column never
// leaves this package.
type MessageRepository struct {
	db     *sql.DB
	cipher *cipher.Cipher
	logger *slog.Logger
}

func NewMessageRepository(db *sql.DB, msgCipher *cipher.Cipher, logger *slog.Logger) (*MessageRepository, error) {
	var repo = MessageRepository{db: db, cipher: msgCipher, logger: logger}
	var _, err = repo.db.Exec(createMessagesTableQuery)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return &repo, nil
}

// CreateMessage encrypts and persists a single record. The returned message
// carries the plaintext for immediate use by the caller; the stored row holds
// only the ciphertext.
func (r *MessageRepository) CreateMessage(ctx context.Context, sender, receiver, plaintext string) (*models.Message, error) {
	encrypted, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	id := uuid.New().String()

	var timestamp time.Time
	row := r.db.QueryRowContext(ctx,
		"INSERT INTO messages (id, sender, receiver, encrypted_message) VALUES ($1, $2, $3, $4) RETURNING timestamp",
		id, sender, receiver, encrypted)
	if err := row.Scan(&timestamp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return &models.Message{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Message:   plaintext,
		Timestamp: timestamp,
	}, nil
}

// GetConversation returns all messages between the unordered pair {userA,
// userB}, oldest first. Rows that fail decryption are logged and skipped so a
// single corrupted record cannot take down the whole history.
func (r *MessageRepository) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender, receiver, encrypted_message, timestamp
		 FROM messages
		 WHERE (sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1)
		 ORDER BY timestamp ASC`,
		userA, userB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		var encrypted string

		err = rows.Scan(&message.ID, &message.Sender, &message.Receiver, &encrypted, &message.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		message.Message, err = r.cipher.Decrypt(encrypted)
		if err != nil {
			if errors.Is(err, cipher.ErrCorruptedMessage) {
				r.logger.Warn("skipping corrupted message", "id", message.ID)
				continue
			}
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return messages, nil
}

// DeleteMessage removes one record permanently. Deleting an id that does not
// exist reports ErrNotFound.
func (r *MessageRepository) DeleteMessage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
