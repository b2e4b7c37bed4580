package mfa

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Records are deep-copied on the
// way in and out, and UpdateRecord holds a per-user lock for the whole
// read-modify-write, so it satisfies the Store atomicity contract.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	locks   map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) GetRecord(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) UpdateRecord(ctx context.Context, userID string, fn func(*Record) error) (*Record, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userLock := s.userLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	s.mu.Lock()
	current, ok := s.records[userID]
	s.mu.Unlock()

	working := &Record{UserID: userID}
	if ok {
		working = current.Clone()
	}

	if err := fn(working); err != nil {
		return nil, err
	}
	working.UserID = userID

	s.mu.Lock()
	s.records[userID] = working.Clone()
	s.mu.Unlock()

	return working, nil
}

// Delete removes a user's record, e.g. when the account is deleted.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}
