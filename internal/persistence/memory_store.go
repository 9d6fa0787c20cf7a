package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/conduit/pkg/api"
)

// InMemoryClaimCheckStore is a goroutine-safe ClaimCheckStore backed by a map.
type InMemoryClaimCheckStore struct {
	mu       sync.RWMutex
	payloads map[string]any
}

var _ api.ClaimCheckStore = (*InMemoryClaimCheckStore)(nil)

// NewInMemoryClaimCheckStore creates an empty store.
func NewInMemoryClaimCheckStore() *InMemoryClaimCheckStore {
	return &InMemoryClaimCheckStore{payloads: make(map[string]any)}
}

func (s *InMemoryClaimCheckStore) Store(_ context.Context, payload any) (string, error) {
	ticket := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.payloads[ticket] = payload
	return ticket, nil
}

func (s *InMemoryClaimCheckStore) Retrieve(_ context.Context, ticket string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.payloads[ticket]
	if !ok {
		return nil, TicketNotFound(ticket)
	}
	return payload, nil
}

func (s *InMemoryClaimCheckStore) Delete(_ context.Context, ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.payloads, ticket)
	return nil
}

// Len returns the number of stored payloads.
func (s *InMemoryClaimCheckStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payloads)
}

// InMemoryDeadLetterStore keeps dead letters in insertion order.
type InMemoryDeadLetterStore struct {
	mu      sync.RWMutex
	letters []api.DeadLetter
}

var _ api.DeadLetterStore = (*InMemoryDeadLetterStore)(nil)

func NewInMemoryDeadLetterStore() *InMemoryDeadLetterStore {
	return &InMemoryDeadLetterStore{}
}

func (s *InMemoryDeadLetterStore) Send(_ context.Context, msg api.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.letters = append(s.letters, PrepareDeadLetter(msg))
	return nil
}

func (s *InMemoryDeadLetterStore) List(context.Context) ([]api.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.letters), nil
}

// PrepareDeadLetter fills in the ID and CreatedAt of msg when they are unset.
func PrepareDeadLetter(msg api.DeadLetter) api.DeadLetter {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return msg
}
