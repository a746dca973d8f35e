package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyFmt = "session:%d"

var ErrNoSession = errors.New("no active session")

// SessionStore keeps at most one live token per user.
type SessionStore interface {
	Set(ctx context.Context, userId uint, token string, ttl time.Duration) error
	Get(ctx context.Context, userId uint) (string, error)
	Delete(ctx context.Context, userId uint) error
	// Count returns the number of users with an active session.
	Count(ctx context.Context) (int, error)
}

type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Set(ctx context.Context, userId uint, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, fmt.Sprintf(sessionKeyFmt, userId), token, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, userId uint) (string, error) {
	token, err := s.rdb.Get(ctx, fmt.Sprintf(sessionKeyFmt, userId)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return token, err
}

func (s *RedisSessionStore) Delete(ctx context.Context, userId uint) error {
	return s.rdb.Del(ctx, fmt.Sprintf(sessionKeyFmt, userId)).Err()
}

func (s *RedisSessionStore) Count(ctx context.Context) (int, error) {
	var cursor uint64
	userIds := make(map[string]struct{})
	for {
		keys, newCursor, err := s.rdb.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return 0, err
		}
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) == 2 && parts[0] == "session" && parts[1] != "" {
				userIds[parts[1]] = struct{}{}
			}
		}
		if newCursor == 0 {
			break
		}
		cursor = newCursor
	}
	return len(userIds), nil
}

// MemorySessionStore is the in-process store used when no Redis address is
// configured. Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uint]memorySession
	now      func() time.Time
}

type memorySession struct {
	token   string
	expires time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uint]memorySession), now: time.Now}
}

func (s *MemorySessionStore) Set(_ context.Context, userId uint, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userId] = memorySession{token: token, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, userId uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userId]
	if !ok {
		return "", ErrNoSession
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, userId)
		return "", ErrNoSession
	}
	return sess.token, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, userId uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userId)
	return nil
}

func (s *MemorySessionStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.Before(sess.expires) {
			n++
		} else {
			delete(s.sessions, id)
		}
	}
	return n, nil
}
