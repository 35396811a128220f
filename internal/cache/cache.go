package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"msgboard/internal/model"
	"msgboard/internal/store"
)

const keyPrefix = "message:"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Store is a read-through cache in front of another MessageStore.
// Messages never change once created, so entries only expire by TTL.
type Store struct {
	next   store.MessageStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ store.MessageStore = (*Store)(nil)

// New wraps next with a Redis cache.
func New(next store.MessageStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}
}

func key(id string) string {
	return keyPrefix + id
}

// ListAll is not cached.
func (s *Store) ListAll(ctx context.Context) ([]model.Message, error) {
	return s.next.ListAll(ctx)
}

// GetByID serves from Redis when possible. Redis failures fall through to
// the wrapped store.
func (s *Store) GetByID(ctx context.Context, id string) (model.Message, error) {
	if msg, ok := s.lookup(ctx, id); ok {
		return msg, nil
	}

	msg, err := s.next.GetByID(ctx, id)
	if err != nil {
		return model.Message{}, err
	}
	s.put(ctx, msg)
	return msg, nil
}

// Create writes through.
func (s *Store) Create(ctx context.Context, text, author string) (model.Message, error) {
	msg, err := s.next.Create(ctx, text, author)
	if err != nil {
		return model.Message{}, err
	}
	s.put(ctx, msg)
	return msg, nil
}

func (s *Store) lookup(ctx context.Context, id string) (model.Message, bool) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache get failed", zap.String("id", id), zap.Error(err))
		}
		return model.Message{}, false
	}

	var msg model.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("cache entry undecodable", zap.String("id", id), zap.Error(err))
		return model.Message{}, false
	}
	return msg, true
}

func (s *Store) put(ctx context.Context, msg model.Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key(msg.ID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("id", msg.ID), zap.Error(err))
	}
}
