package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"polychat/internal/core"
)

// redisStore keeps each conversation as a JSON blob under its own key and
// tracks ids in a set for listing. Fine for transcript-sized payloads;
// messages are always read and rewritten whole.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const redisIndexKey = "conversations"

func redisConversationKey(id string) string {
	return "conversation:" + id
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &redisStore{client: client, ttl: cfg.TTL}, nil
}

func (s *redisStore) Create(ctx context.Context, provider string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Provider:  provider,
		Messages:  []core.HistoryMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}
	if err := s.client.SAdd(ctx, redisIndexKey, conv.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index conversation: %w", err)
	}
	return conv, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*Conversation, error) {
	data, err := s.client.Get(ctx, redisConversationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

func (s *redisStore) AppendMessage(ctx context.Context, id string, msg core.HistoryMessage) error {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()
	return s.save(ctx, conv)
}

func (s *redisStore) List(ctx context.Context) ([]Conversation, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation ids: %w", err)
	}

	out := []Conversation{}
	for _, id := range ids {
		conv, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired blob still referenced from the index.
			s.client.SRem(ctx, redisIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Conversation{
			ID:        conv.ID,
			Provider:  conv.Provider,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisConversationKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.client.SRem(ctx, redisIndexKey, id).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) save(ctx context.Context, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.client.Set(ctx, redisConversationKey(conv.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}
