package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/visionary/runtime/logger"
)

const defaultRedisPrefix = "visionary:canvas"

// RedisStore keeps the canvas in Redis so several studio processes can share
// a board. Items are JSON strings, insertion order is a list, the layout
// counter is an INCR key, and updates are published on a channel.
type RedisStore struct {
	client *redis.Client
	prefix string
	board  string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. Default is "visionary:canvas".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithBoard selects the board name. Default is "default".
func WithBoard(board string) RedisOption {
	return func(s *RedisStore) {
		s.board = board
	}
}

// NewRedisStore creates a Redis-backed canvas.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithBoard("studio-1"),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix, board: "default", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(parts ...string) string {
	k := s.prefix + ":" + s.board
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *RedisStore) itemKey(id string) string { return s.key("item", id) }
func (s *RedisStore) orderKey() string         { return s.key("order") }
func (s *RedisStore) seqKey() string           { return s.key("seq") }
func (s *RedisStore) channel() string          { return s.key("updates") }

// AddPending implements Store.
func (s *RedisStore) AddPending(ctx context.Context, prompt string) (*Item, error) {
	n, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis incr failed: %w", err)
	}
	item := newPendingItem(uuid.NewString(), prompt, n-1, s.now())

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.itemKey(item.ID), data, 0)
	pipe.RPush(ctx, s.orderKey(), item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	s.publish(ctx, Update{Kind: UpdateAdded, Item: item})
	return &item, nil
}

// Finalize implements Store.
func (s *RedisStore) Finalize(ctx context.Context, id, url string) error {
	if id == "" {
		return ErrInvalidID
	}
	item, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	item.URL = url
	item.Pending = false
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := s.client.Set(ctx, s.itemKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	s.publish(ctx, Update{Kind: UpdateFinalized, Item: *item})
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	data, err := s.client.Get(ctx, s.itemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// List implements Store. Ids whose item key has vanished are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Item, error) {
	ids, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	if len(ids) == 0 {
		return []Item{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	out := make([]Item, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Subscribe implements Store. The subscription is confirmed before it returns.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Update, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan Update, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var u Update
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					logger.Warn("Dropping malformed canvas update", "error", err)
					continue
				}
				select {
				case out <- u:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) publish(ctx context.Context, u Update) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel(), data).Err(); err != nil {
		logger.WarnContext(ctx, "Canvas update publish failed", "item_id", u.Item.ID, "error", err)
	}
}
