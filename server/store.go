package server

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrChallengeNotFound = errors.New("captcha challenge not found or expired")
)

// ChallengeStore keeps issued CAPTCHA codes until they are answered or
// expire. Take removes the code so each challenge can be answered once.
type ChallengeStore interface {
	Put(id, code string, ttl time.Duration) error
	Take(id string) (string, error)
	Close()
}

const challengeKeyPrefix = "captcha:"

type redisStore struct {
	db *DB
}

func NewRedisStore(db *DB) ChallengeStore {
	return &redisStore{db: db}
}

func (s *redisStore) Put(id, code string, ttl time.Duration) error {
	return s.db.Set(challengeKeyPrefix+id, []byte(code), ttl)
}

func (s *redisStore) Take(id string) (string, error) {
	b, err := s.db.Take(challengeKeyPrefix + id)
	if err == ErrDBGetKey {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *redisStore) Close() {
	s.db.Close()
}

type memEntry struct {
	code    string
	expires time.Time
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemStore() ChallengeStore {
	return &memStore{entries: map[string]memEntry{}, now: time.Now}
}

func (s *memStore) Put(id, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.entries[id] = memEntry{code: code, expires: now.Add(ttl)}
	return nil
}

func (s *memStore) Take(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return "", ErrChallengeNotFound
	}
	delete(s.entries, id)
	if !s.now().Before(e.expires) {
		return "", ErrChallengeNotFound
	}
	return e.code, nil
}

func (s *memStore) Close() {}

// sweep drops expired entries; called with mu held.
func (s *memStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}
