// Package state owns all mutable alert-tracking state: per-signal records
// and the processed-message de-duplication set. Both maps are time-windowed
// so memory stays bounded no matter how long the process runs.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// Store is the process-wide alert state store. Safe for concurrent use;
// no other component mutates signal state directly.
type Store struct {
	mu      sync.Mutex
	signals map[string]*signalEntry
	seen    map[string]time.Time // messageID -> first processed at
	ttl     time.Duration
	now     func() time.Time
}

type signalEntry struct {
	state     models.SignalState
	touchedAt time.Time
}

// New creates a Store whose entries expire ttl after their last touch.
func New(ttl time.Duration) *Store {
	return &Store{
		signals: make(map[string]*signalEntry),
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Signal returns a copy of the tracking state for key. A key never seen
// before yields the zero state with only SignalKey set.
func (s *Store) Signal(key string) models.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.signals[key]; ok {
		return e.state
	}
	return models.SignalState{SignalKey: key}
}

// SetSignal stores the updated tracking state for key and refreshes its TTL.
func (s *Store) SetSignal(key string, st models.SignalState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.SignalKey = key
	s.signals[key] = &signalEntry{state: st, touchedAt: s.now()}
}

// MarkProcessed records a message identity and reports whether it was new.
// A false return means the message was already processed and must be
// dropped without any state change or outward call.
func (s *Store) MarkProcessed(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[messageID]; ok {
		return false
	}
	s.seen[messageID] = s.now()
	return true
}

// Len returns the number of tracked signals, for observability.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.signals)
}

// Sweep evicts signal entries untouched for longer than the TTL and
// message IDs older than the TTL.
func (s *Store) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.signals {
		if now.Sub(e.touchedAt) > s.ttl {
			delete(s.signals, key)
		}
	}
	for id, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, id)
		}
	}
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
