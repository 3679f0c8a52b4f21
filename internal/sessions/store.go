// Package sessions implements the in-memory, idempotent SessionStore.
package sessions

import (
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// Status is the lifecycle state of a SessionRecord.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Record is an immutable snapshot of a session. Callers never observe a
// partially-updated Record: mutation always builds a new value and swaps
// it into the store under the store's mutex.
type Record struct {
	SessionID      string
	GuildID        string
	RequesterID    string
	ChannelID      string
	Status         Status
	Provider       string
	Model          string
	MCPEnabled     bool
	MCPProfileName string
	SubagentName   string
}

// Defaults seeds a freshly created Record. Only consulted on the create
// path; never applied to an existing record returned for a repeated
// idempotency key.
type Defaults struct {
	Provider       string
	Model          string
	MCPEnabled     bool
	MCPProfileName string
}

// Store is the single-mutex, copy-on-write session store.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]Record
	byIdempotency map[string]string
}

func NewStore() *Store {
	return &Store{
		sessions:      make(map[string]Record),
		byIdempotency: make(map[string]string),
	}
}

// Create returns the existing session for a known idempotency key without
// touching defaults, or mints a fresh one otherwise. Invariant: for a given
// key, Create always returns the same session id.
func (s *Store) Create(guildID, requesterID, idempotencyKey string, defaults Defaults) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byIdempotency[idempotencyKey]; ok {
		return s.sessions[existingID]
	}

	record := Record{
		SessionID:      uuid.NewString(),
		GuildID:        guildID,
		RequesterID:    requesterID,
		Status:         StatusActive,
		Provider:       defaults.Provider,
		Model:          defaults.Model,
		MCPEnabled:     defaults.MCPEnabled,
		MCPProfileName: defaults.MCPProfileName,
	}
	s.sessions[record.SessionID] = record
	s.byIdempotency[idempotencyKey] = record.SessionID
	return record
}

// Get returns the current record for a session id.
func (s *Store) Get(sessionID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return Record{}, errs.NotFound("session not found: %q", sessionID)
	}
	return record, nil
}

func (s *Store) mutate(sessionID string, fn func(Record) Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[sessionID]
	if !ok {
		return Record{}, errs.NotFound("session not found: %q", sessionID)
	}
	updated := fn(record)
	s.sessions[sessionID] = updated
	return updated, nil
}

func (s *Store) BindChannel(sessionID, channelID string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.ChannelID = channelID
		return r
	})
}

func (s *Store) EndSession(sessionID string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.Status = StatusEnded
		return r
	})
}

func (s *Store) SetProvider(sessionID, provider string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.Provider = provider
		return r
	})
}

func (s *Store) SetModel(sessionID, model string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.Model = model
		return r
	})
}

func (s *Store) SetMCP(sessionID string, enabled bool, profileName string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.MCPEnabled = enabled
		r.MCPProfileName = profileName
		return r
	})
}

func (s *Store) SetSubagent(sessionID, subagentName string) (Record, error) {
	return s.mutate(sessionID, func(r Record) Record {
		r.SubagentName = subagentName
		return r
	})
}
