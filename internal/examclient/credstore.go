package examclient

import (
	"errors"
	"sync"
)

// ErrNoCredentials is returned by Load when nothing is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is everything a participant needs to resume an attempt after
// a reload: the exam token plus the serials it was minted for.
type Credentials struct {
	Token         string `json:"token"`
	ExamSerial    string `json:"exam_serial"`
	SessionSerial string `json:"session_serial"`
}

// CredentialStore persists attempt credentials across restarts. The runtime
// only ever holds one attempt at a time, so the store is single-slot.
type CredentialStore interface {
	Save(creds Credentials) error
	Load() (*Credentials, error)
	Clear() error
}

// MemoryCredentialStore is an in-process CredentialStore, used in tests and
// in embedders that handle persistence themselves.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds *Credentials
}

// NewMemoryCredentialStore creates an empty MemoryCredentialStore.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Save stores the credentials, replacing any previous attempt.
func (s *MemoryCredentialStore) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := creds
	s.creds = &c
	return nil
}

// Load returns the stored credentials or ErrNoCredentials.
func (s *MemoryCredentialStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, ErrNoCredentials
	}
	c := *s.creds
	return &c, nil
}

// Clear drops the stored credentials.
func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}
