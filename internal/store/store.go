//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package store

import (
	"context"

	"msgboard/internal/model"
)

// MessageStore mediates all reads and writes of the messages table.
type MessageStore interface {
	// ListAll returns every message. The order is whatever the database yields.
	ListAll(ctx context.Context) ([]model.Message, error)
	// GetByID returns the single message with the given id.
	GetByID(ctx context.Context, id string) (model.Message, error)
	// Create persists a new message under a server-generated id.
	Create(ctx context.Context, text, author string) (model.Message, error)
}
