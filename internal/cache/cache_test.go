package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"msgboard/internal/mocks"
	"msgboard/internal/model"
	"msgboard/internal/store"
)

// setupTestRedis REDIS_ADDR が無ければスキップ
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping: REDIS_ADDR not set")
	}

	client, err := NewClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Skipf("Skipping: could not connect to redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// unreachableClient 接続できない Redis クライアント
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetByID_RedisDownFallsThrough(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	want := model.Message{ID: "m1", Text: "hello", Author: "alice"}
	next := mocks.NewMockMessageStore(ctrl)
	next.EXPECT().GetByID(gomock.Any(), "m1").Return(want, nil).Times(2)

	s := New(next, unreachableClient(t), time.Minute, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		got, err := s.GetByID(context.Background(), "m1")
		req.NoError(err)
		req.Equal(want, got)
	}
}

func TestGetByID_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)

	next := mocks.NewMockMessageStore(ctrl)
	next.EXPECT().GetByID(gomock.Any(), "missing").Return(model.Message{}, store.ErrNotFound)

	s := New(next, unreachableClient(t), time.Minute, zaptest.NewLogger(t))

	_, err := s.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListAll_PassesThrough(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	want := []model.Message{{ID: "a", Text: "x", Author: "y"}}
	next := mocks.NewMockMessageStore(ctrl)
	next.EXPECT().ListAll(gomock.Any()).Return(want, nil)

	s := New(next, unreachableClient(t), time.Minute, zaptest.NewLogger(t))

	got, err := s.ListAll(context.Background())
	req.NoError(err)
	req.Equal(want, got)
}

// TestCreate_ThenGetServedFromCache Create 後の取得はストアに到達しない
func TestCreate_ThenGetServedFromCache(t *testing.T) {
	req := require.New(t)
	client := setupTestRedis(t)
	ctrl := gomock.NewController(t)

	created := model.Message{ID: uuid.NewString(), Text: "cached", Author: "erin"}
	t.Cleanup(func() { client.Del(context.Background(), key(created.ID)) })

	next := mocks.NewMockMessageStore(ctrl)
	next.EXPECT().Create(gomock.Any(), "cached", "erin").Return(created, nil)
	next.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	s := New(next, client, time.Minute, zaptest.NewLogger(t))

	_, err := s.Create(context.Background(), "cached", "erin")
	req.NoError(err)

	got, err := s.GetByID(context.Background(), created.ID)
	req.NoError(err)
	req.Equal(created, got)
}

func TestGetByID_PopulatesCache(t *testing.T) {
	req := require.New(t)
	client := setupTestRedis(t)
	ctrl := gomock.NewController(t)

	want := model.Message{ID: uuid.NewString(), Text: "read", Author: "frank"}
	t.Cleanup(func() { client.Del(context.Background(), key(want.ID)) })

	next := mocks.NewMockMessageStore(ctrl)
	next.EXPECT().GetByID(gomock.Any(), want.ID).Return(want, nil).Times(1)

	s := New(next, client, time.Minute, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		got, err := s.GetByID(context.Background(), want.ID)
		req.NoError(err)
		req.Equal(want, got)
	}

	ttl, err := client.TTL(context.Background(), key(want.ID)).Result()
	req.NoError(err)
	req.Greater(ttl, time.Duration(0))
}
