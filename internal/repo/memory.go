package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// MemoryStore is the default reservation store: a single process-owned map
// keyed by reservation id. Records live for the process lifetime unless
// Sweep is called.
//
// Every method copies records in and out, so callers cannot mutate the table
// except through the store's operations. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.Reservation
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*domain.Reservation),
		now:  time.Now,
	}
}

// Create inserts a pending reservation and never fails.
func (s *MemoryStore) Create(_ context.Context, query, creatorID string) (domain.Reservation, error) {
	r := &domain.Reservation{
		ID:        uuid.NewString(),
		Query:     query,
		CreatorID: creatorID,
		Status:    domain.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.byID[r.ID] = r
	s.mu.Unlock()
	return *r, nil
}

// Get returns a snapshot of the reservation or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return domain.Reservation{}, ErrNotFound
	}
	return snapshot(r), nil
}

// MarkReady sets status=ready with answer. Terminal records are overwritten.
func (s *MemoryStore) MarkReady(_ context.Context, id, answer string) (domain.Reservation, error) {
	return s.mutate(id, func(r *domain.Reservation) {
		r.Status = domain.StatusReady
		r.Answer = &answer
	})
}

// MarkFailed sets status=failed with the user-facing error text.
func (s *MemoryStore) MarkFailed(_ context.Context, id, errText string) (domain.Reservation, error) {
	return s.mutate(id, func(r *domain.Reservation) {
		r.Status = domain.StatusFailed
		r.Answer = &errText
	})
}

// AssignSelector overwrites the creator with the selecting identity.
func (s *MemoryStore) AssignSelector(_ context.Context, id, identity string) (domain.Reservation, error) {
	return s.mutate(id, func(r *domain.Reservation) {
		r.CreatorID = identity
	})
}

// AttachMessage records the placeholder message location.
func (s *MemoryStore) AttachMessage(_ context.Context, id string, ref domain.MessageRef) (domain.Reservation, error) {
	return s.mutate(id, func(r *domain.Reservation) {
		r.ChannelChatID = ref.ChatID
		r.ChannelMessageID = ref.MessageID
	})
}

// Sweep removes terminal reservations created before cutoff.
func (s *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.byID {
		if r.Status.Terminal() && r.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored reservations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) mutate(id string, fn func(*domain.Reservation)) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return domain.Reservation{}, ErrNotFound
	}
	fn(r)
	return snapshot(r), nil
}

// snapshot copies r including its answer so later mutations don't leak.
func snapshot(r *domain.Reservation) domain.Reservation {
	out := *r
	if r.Answer != nil {
		a := *r.Answer
		out.Answer = &a
	}
	return out
}
