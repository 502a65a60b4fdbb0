// Package session keeps per-session conversation history and the goal
// sequence counter. State is process-wide, keyed by session id, with one
// lock per session so unrelated sessions never serialize on each other.
package session

import (
	"sync"
	"time"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/ident"
)

// MessageKind separates conversational turns from world-event entries.
type MessageKind string

const (
	KindChat  MessageKind = "chat"
	KindEvent MessageKind = "event"
)

// Message is one history entry. WorldTimestamp is game clock hhmmss.
type Message struct {
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Kind           MessageKind    `json:"kind"`
	WorldTimestamp string         `json:"world_timestamp"`
	Payload        map[string]any `json:"payload,omitempty"`
	At             time.Time      `json:"at"`
}

// DefaultMaxHistory is the bound on entries returned to prompt assembly.
// The store keeps twice this many raw entries so interleaved chat and event
// appends do not thrash the trim.
const DefaultMaxHistory = 15

type state struct {
	mu           sync.Mutex
	id           string
	history      []Message
	goalSequence int
	lastActive   time.Time
}

// Store owns all session state. Operations on unknown ids create the
// session on demand; the store is forgiving of first-contact requests.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*state
	maxHistory int
}

// NewStore creates a Store keeping at most maxHistory recent entries per
// session (DefaultMaxHistory when <= 0).
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		sessions:   make(map[string]*state),
		maxHistory: maxHistory,
	}
}

// MaxHistory returns the configured per-session history bound.
func (s *Store) MaxHistory() int { return s.maxHistory }

// GetOrCreate resolves a session, minting a fresh id when none is supplied,
// and returns the effective session id.
func (s *Store) GetOrCreate(sessionID string) string {
	if sessionID == "" {
		sessionID = ident.NewSessionID()
	}
	s.lookup(sessionID)
	return sessionID
}

func (s *Store) lookup(sessionID string) *state {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st
	}
	st = &state{id: sessionID, lastActive: time.Now().UTC()}
	s.sessions[sessionID] = st
	return st
}

// Append adds one history entry and trims the raw history to 2x the bound.
// Trimming keeps the most recent entries in original relative order.
func (s *Store) Append(sessionID string, msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = KindChat
	}
	if msg.WorldTimestamp == "" {
		msg.WorldTimestamp = "000000"
	}

	st := s.lookup(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.history = append(st.history, msg)
	st.lastActive = msg.At
	if bound := s.maxHistory * 2; len(st.history) > bound {
		trimmed := make([]Message, bound)
		copy(trimmed, st.history[len(st.history)-bound:])
		st.history = trimmed
	}
}

// Recent returns up to limit most recent entries, optionally filtered by
// kind, oldest first.
func (s *Store) Recent(sessionID string, limit int, kind MessageKind) []Message {
	if limit <= 0 {
		limit = s.maxHistory
	}

	st := s.lookup(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	src := st.history
	if kind != "" {
		filtered := make([]Message, 0, len(src))
		for _, m := range src {
			if m.Kind == kind {
				filtered = append(filtered, m)
			}
		}
		src = filtered
	}
	if len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// NextGoalSequence advances and returns the session's goal counter.
// Sequences start at 1 and never repeat within a session's lifetime.
func (s *Store) NextGoalSequence(sessionID string) int {
	st := s.lookup(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.goalSequence++
	return st.goalSequence
}

// Clear drops one session entirely. Its counters reset only because the
// session itself is gone.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ClearAll drops every session.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*state)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
