package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store persists sessions between turns. Entries are TTL-bounded; an
// expired session simply starts over with an empty transcript.
type Store interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// NewStore selects a driver by name: "memory" (default) or "redis".
func NewStore(driver string, rdb *redis.Client, ttl time.Duration) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("session store driver %q requires a redis client", driver)
		}
		return &redisStore{client: rdb, ttl: ttl}, nil
	default:
		return nil, fmt.Errorf("unknown session store driver %q", driver)
	}
}

// memoryStore keeps sessions in-process with automatic expiry.
type memoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &memoryStore{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func (s *memoryStore) Save(_ context.Context, session *Session) error {
	s.cache.Set(session.ID, session, gocache.DefaultExpiration)
	return nil
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (*Session, bool, error) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*Session), true, nil
	}
	return nil, false, nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

// redisStore shares sessions across instances as JSON blobs.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) key(sessionID string) string {
	return "chat:session:" + sessionID
}

func (s *redisStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	return s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*Session, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &session, true, nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
