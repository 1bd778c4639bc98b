package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Chat roles as understood by the Gemini API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one message of a chat session.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SessionStore keeps per-session chat history. Reading or appending a
// session refreshes its expiry; histories are trimmed to the newest turns.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]ChatTurn, error)
	Append(ctx context.Context, sessionID string, turns ...ChatTurn) error
	Delete(ctx context.Context, sessionID string) error
}

// SessionPolicy bounds chat session state.
type SessionPolicy struct {
	TTL         time.Duration
	MaxTurns    int
	MaxSessions int // in-memory store only
}

// DefaultSessionPolicy keeps two hours of idle history, forty turns deep.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{TTL: 2 * time.Hour, MaxTurns: 40, MaxSessions: 1000}
}

// RedisSessionStore stores each session as a Redis list of JSON turns.
type RedisSessionStore struct {
	client *redis.Client
	policy SessionPolicy
}

func NewRedisSessionStore(client *redis.Client, policy SessionPolicy) *RedisSessionStore {
	return &RedisSessionStore{client: client, policy: policy}
}

func sessionKey(id string) string {
	return fmt.Sprintf("chat:session:%s", id)
}

func (s *RedisSessionStore) History(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	key := sessionKey(sessionID)
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if err := s.client.Expire(ctx, key, s.policy.TTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to refresh chat session: %w", err)
	}

	turns := make([]ChatTurn, 0, len(raw))
	for _, item := range raw {
		var turn ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to decode chat turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, turns ...ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to encode chat turn: %w", err)
		}
		values = append(values, data)
	}

	key := sessionKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.policy.MaxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.policy.MaxTurns), -1)
		}
		pipe.Expire(ctx, key, s.policy.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

// MemorySessionStore keeps sessions in process memory. Expired sessions are
// dropped lazily; when MaxSessions is reached the least recently used session
// is evicted.
type MemorySessionStore struct {
	policy   SessionPolicy
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	turns      []ChatTurn
	expiresAt  time.Time
	lastAccess time.Time
}

func NewMemorySessionStore(policy SessionPolicy) *MemorySessionStore {
	return &MemorySessionStore{
		policy:   policy,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

func (s *MemorySessionStore) History(_ context.Context, sessionID string) ([]ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return nil, nil
	}
	s.touch(sess)
	out := make([]ChatTurn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

func (s *MemorySessionStore) Append(_ context.Context, sessionID string, turns ...ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		s.evictIfFull()
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turns...)
	if limit := s.policy.MaxTurns; limit > 0 && len(sess.turns) > limit {
		sess.turns = append([]ChatTurn(nil), sess.turns[len(sess.turns)-limit:]...)
	}
	s.touch(sess)
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// live returns the session if present and unexpired. Callers hold s.mu.
func (s *MemorySessionStore) live(id string) *memorySession {
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return sess
}

func (s *MemorySessionStore) touch(sess *memorySession) {
	now := s.now()
	sess.lastAccess = now
	sess.expiresAt = now.Add(s.policy.TTL)
}

func (s *MemorySessionStore) evictIfFull() {
	if s.policy.MaxSessions <= 0 || len(s.sessions) < s.policy.MaxSessions {
		return
	}
	now := s.now()
	var oldestKey string
	var oldestTime time.Time
	for k, v := range s.sessions {
		if now.After(v.expiresAt) {
			delete(s.sessions, k)
			continue
		}
		if oldestKey == "" || v.lastAccess.Before(oldestTime) {
			oldestKey, oldestTime = k, v.lastAccess
		}
	}
	if len(s.sessions) >= s.policy.MaxSessions && oldestKey != "" {
		delete(s.sessions, oldestKey)
	}
}
