package games

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Kind identifies which mini-game a state belongs to.
type Kind string

const (
	KindTrivia Kind = "trivia"
	KindRiddle Kind = "riddle"
	KindWord   Kind = "word"
)

// State is the single active-game slot for one user. Exactly one of the
// payload fields is set, matching Kind. HintIndex advances on each wrong
// riddle guess.
type State struct {
	Kind      Kind            `json:"kind"`
	Trivia    *TriviaQuestion `json:"trivia,omitempty"`
	Riddle    *Riddle         `json:"riddle,omitempty"`
	Word      *WordGame       `json:"word,omitempty"`
	HintIndex int             `json:"hintIndex"`
}

// StateStore keeps at most one active game per user.
type StateStore interface {
	Get(ctx context.Context, userID string) (*State, error)
	Set(ctx context.Context, userID string, state *State) error
	// Take atomically removes and returns the slot, or nil when unset. Two
	// concurrent takers cannot both receive the same state.
	Take(ctx context.Context, userID string) (*State, error)
	Clear(ctx context.Context, userID string) error
}

// MemoryStateStore keeps game state in process memory. State is lost on
// restart, which is acceptable for this feature; multi-process deployments
// should use the Redis store instead.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]*State)}
}

func (s *MemoryStateStore) Get(_ context.Context, userID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (s *MemoryStateStore) Set(_ context.Context, userID string, state *State) error {
	if state == nil {
		return errors.New("nil game state")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.states[userID] = &copied
	return nil
}

func (s *MemoryStateStore) Take(_ context.Context, userID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	delete(s.states, userID)
	copied := *state
	return &copied, nil
}

func (s *MemoryStateStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// Abandoned games expire rather than pinning a slot forever.
const redisStateTTL = 24 * time.Hour

// RedisStateStore keeps game state in Redis so multiple processes see the
// same slot.
type RedisStateStore struct {
	rdb *goredis.Client
}

func NewRedisStateStore(addr string) (*RedisStateStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStateStore{rdb: rdb}, nil
}

func stateKey(userID string) string {
	return "rubi:game:" + userID
}

func (s *RedisStateStore) Get(ctx context.Context, userID string) (*State, error) {
	raw, err := s.rdb.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &state, nil
}

func (s *RedisStateStore) Set(ctx context.Context, userID string, state *State) error {
	if state == nil {
		return errors.New("nil game state")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(userID), raw, redisStateTTL).Err()
}

// Take consumes the slot with GETDEL, so two processes answering the same
// game receive it at most once.
func (s *RedisStateStore) Take(ctx context.Context, userID string) (*State, error) {
	raw, err := s.rdb.GetDel(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &state, nil
}

func (s *RedisStateStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, stateKey(userID)).Err()
}

func (s *RedisStateStore) Close() error {
	return s.rdb.Close()
}
