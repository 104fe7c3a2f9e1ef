package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prakasham-om/jbnet/app/config"
	"github.com/prakasham-om/jbnet/internal/cipher"

	_ "github.com/lib/pq"
)

type RepositoryAdapter struct {
	Message *MessageRepository

	db *sql.DB
}

func NewRepositoryAdapter(cfg config.DatabaseConfig, msgCipher *cipher.Cipher, logger *slog.Logger) (*RepositoryAdapter, error) {
	connection := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
	var db, e = sql.Open("postgres", connection)
	if e != nil {
		return nil, e
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	logger.Info("adapter initialization: stage 1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	messageRepo, err := NewMessageRepository(db, msgCipher, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("adapter initialization: stage 2")

	return &RepositoryAdapter{Message: messageRepo, db: db}, nil
}

func (r *RepositoryAdapter) Close(logger *slog.Logger) error {
	if err := r.db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return err
	}

	return nil
}

func (r *RepositoryAdapter) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
