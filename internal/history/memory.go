package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	max   int
	mu    sync.RWMutex
	users map[string]*userLog
	clock func() time.Time
}

// Logs for different users lock independently so one user's append never
// blocks another's.
type userLog struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemoryStore returns a process-lifetime in-memory store keeping at most
// max messages per user.
func NewMemoryStore(max int) Store {
	if max <= 0 {
		max = 100
	}
	return &memoryStore{
		max:   max,
		users: make(map[string]*userLog),
		clock: time.Now,
	}
}

func (s *memoryStore) logFor(userID string) *userLog {
	s.mu.RLock()
	log := s.users[userID]
	s.mu.RUnlock()
	if log != nil {
		return log
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if log = s.users[userID]; log == nil {
		log = &userLog{}
		s.users[userID] = log
	}
	return log
}

func (s *memoryStore) Append(_ context.Context, userID, role, content string) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}

	log := s.logFor(userID)
	log.mu.Lock()
	log.messages = append(log.messages, msg)
	if overflow := len(log.messages) - s.max; overflow > 0 {
		log.messages = append([]Message(nil), log.messages[overflow:]...)
	}
	log.mu.Unlock()

	return msg, nil
}

func (s *memoryStore) List(_ context.Context, userID string) ([]Message, error) {
	s.mu.RLock()
	log := s.users[userID]
	s.mu.RUnlock()
	if log == nil {
		return nil, nil
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	return append([]Message(nil), log.messages...), nil
}

func (s *memoryStore) Clear(_ context.Context, userID string) error {
	s.mu.RLock()
	log := s.users[userID]
	s.mu.RUnlock()
	if log == nil {
		return nil
	}

	log.mu.Lock()
	log.messages = nil
	log.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
