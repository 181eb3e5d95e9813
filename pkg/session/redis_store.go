package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andrew/llm-rag-poc/pkg/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore backs the session window with Redis lists, so history
// survives a process restart. Anonymous sessions are never written here:
// Append returns an error for them and Recent returns no history.
type RedisStore struct {
	client *redis.Client
	window int
}

// NewRedisStore builds a RedisStore against a redis:// URL, keeping the
// last `window` messages per session key.
func NewRedisStore(redisURL string, window int) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if window <= 0 {
		window = models.HistoryWindow
	}
	return &RedisStore{client: redis.NewClient(opts), window: window}, nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID + ":history"
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, msg models.SessionMessage) error {
	if IsAnonymous(sessionID) {
		return fmt.Errorf("refusing to persist anonymous session to redis")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal session message: %w", err)
	}

	key := sessionKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session message: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, sessionID string, n int) ([]models.SessionMessage, error) {
	if IsAnonymous(sessionID) {
		return nil, nil
	}
	if n <= 0 || n > s.window {
		n = s.window
	}

	raw, err := s.client.LRange(ctx, sessionKey(sessionID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session history: %w", err)
	}

	out := make([]models.SessionMessage, 0, len(raw))
	for _, item := range raw {
		var msg models.SessionMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal session message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
