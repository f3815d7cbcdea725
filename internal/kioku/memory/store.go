package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Sentinel errors returned by store operations. Callers match with errors.Is.
var (
	// ErrInvalidArgument marks a request that failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageFailure marks a backend failure. The in-memory store never
	// produces it; the sentinel types the contract for other backends and
	// for failure injection in tests.
	ErrStorageFailure = errors.New("storage failure")
)

// StoreConfig holds configuration for the Store.
type StoreConfig struct {
	// MaxMessages is the maximum number of messages kept per session.
	// When exceeded, the oldest messages are dropped (sliding window).
	// Default: 50.
	MaxMessages int

	// MaxSessions is the maximum number of concurrently tracked sessions.
	// At capacity, the next save triggers a synchronous emergency eviction.
	// Default: 1000.
	MaxSessions int

	// Expiration is the idle duration after which a session is eligible
	// for eviction. Default: 2 hours.
	Expiration time.Duration
}

// DefaultStoreConfig returns a StoreConfig with the documented defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxMessages: 50,
		MaxSessions: 1000,
		Expiration:  2 * time.Hour,
	}
}

// Store keeps every active conversation record in process memory.
// It is safe for concurrent use. Records are exclusively owned by the
// Store: reads return deep copies and saves store a copy of the input,
// so callers never alias internal state.
//
// The access map tracks when each session last touched the store, which
// is what eviction decisions are based on. It is deliberately separate
// from the record's own LastActivity: a plain read refreshes the
// bookkeeping without rewriting conversation state.
type Store struct {
	mu     sync.RWMutex
	config StoreConfig
	logger *slog.Logger

	records map[string]*ConversationRecord // key: session ID
	access  map[string]time.Time           // last store access per session
}

// NewStore creates a Store with the given configuration. Non-positive
// config fields fall back to their defaults. If logger is nil, the default
// slog logger is used.
func NewStore(cfg StoreConfig, logger *slog.Logger) *Store {
	def := DefaultStoreConfig()
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = def.Expiration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		config:  cfg,
		logger:  logger,
		records: make(map[string]*ConversationRecord),
		access:  make(map[string]time.Time),
	}
}

// GetOrCreate returns a snapshot of the session's record, creating an
// empty record when the session is new. The second return reports whether
// this call created the record.
func (s *Store) GetOrCreate(sessionID string) (*ConversationRecord, bool, error) {
	return s.GetOrCreateAt(sessionID, time.Now())
}

// GetOrCreateAt is the time-injectable core of GetOrCreate (for testing).
func (s *Store) GetOrCreateAt(sessionID string, now time.Time) (*ConversationRecord, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, false, fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[sessionID]; ok {
		s.access[sessionID] = now
		return rec.Clone(), false, nil
	}

	rec, err := NewRecordAt(sessionID, now)
	if err != nil {
		return nil, false, err
	}
	s.evictIfAtCapacity(now)
	s.records[sessionID] = rec
	s.access[sessionID] = now

	s.logger.Debug("conversation record created",
		"session_id", sessionID,
		"record_id", rec.ID,
		"active_sessions", len(s.records),
	)
	return rec.Clone(), true, nil
}

// Get returns a snapshot of the session's record, or nil when the session
// is unknown. A hit refreshes the eviction bookkeeping but not the
// record's own activity timestamp.
func (s *Store) Get(sessionID string) (*ConversationRecord, error) {
	return s.GetAt(sessionID, time.Now())
}

// GetAt is the time-injectable core of Get (for testing).
func (s *Store) GetAt(sessionID string, now time.Time) (*ConversationRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	s.access[sessionID] = now
	return rec.Clone(), nil
}

// Save stores a copy of rec under sessionID, replacing any previous record
// wholesale. Retention truncation runs before the record is stored; when
// the store is at session capacity an emergency eviction runs first.
// Save is last-write-wins. Use Update for atomic read-modify-write.
func (s *Store) Save(sessionID string, rec *ConversationRecord) error {
	return s.SaveAt(sessionID, rec, time.Now())
}

// SaveAt is the time-injectable core of Save (for testing).
func (s *Store) SaveAt(sessionID string, rec *ConversationRecord, now time.Time) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(sessionID, rec.Clone(), now)
	return nil
}

// Update applies fn to the session's record under the store lock: the
// record is cloned (or created when absent), mutated by fn, truncated, and
// stored back as one atomic step, so concurrent updates to the same session
// serialize instead of overwriting each other. An error from fn aborts the
// update and leaves the stored record untouched.
//
// The returned record is the caller's own copy of the stored state. The
// second return reports whether this call created the record.
func (s *Store) Update(sessionID string, fn func(*ConversationRecord) error) (*ConversationRecord, bool, error) {
	return s.UpdateAt(sessionID, fn, time.Now())
}

// UpdateAt is the time-injectable core of Update (for testing).
func (s *Store) UpdateAt(sessionID string, fn func(*ConversationRecord) error, now time.Time) (*ConversationRecord, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, false, fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}
	if fn == nil {
		return nil, false, fmt.Errorf("%w: update function is nil", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	var rec *ConversationRecord
	if existing, ok := s.records[sessionID]; ok {
		rec = existing.Clone()
	} else {
		var err error
		rec, err = NewRecordAt(sessionID, now)
		if err != nil {
			return nil, false, err
		}
		created = true
	}

	if err := fn(rec); err != nil {
		return nil, false, err
	}

	s.putLocked(sessionID, rec, now)
	if created {
		s.logger.Debug("conversation record created",
			"session_id", sessionID,
			"record_id", rec.ID,
			"active_sessions", len(s.records),
		)
	}
	return rec.Clone(), created, nil
}

// Remove deletes the session and returns the removed record, or nil when
// the session was unknown. Ownership of the returned record passes to the
// caller.
func (s *Store) Remove(sessionID string) (*ConversationRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	delete(s.records, sessionID)
	delete(s.access, sessionID)
	return rec, nil
}

// Has reports whether the session is currently tracked.
func (s *Store) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[sessionID]
	return ok
}

// ActiveCount returns the number of tracked sessions.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Touch advances the session's activity timestamp and eviction bookkeeping.
// Returns false when the session is unknown.
func (s *Store) Touch(sessionID string) bool {
	return s.TouchAt(sessionID, time.Now())
}

// TouchAt is the time-injectable core of Touch (for testing).
func (s *Store) TouchAt(sessionID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return false
	}
	rec.TouchAt(now)
	s.access[sessionID] = now
	return true
}

// EvictInactive removes every session whose last store access is before
// cutoff. Returns the number of sessions removed.
func (s *Store) EvictInactive(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.evictBeforeLocked(cutoff)
}

// MemoryStats is a point-in-time snapshot of store occupancy and process
// heap usage.
type MemoryStats struct {
	ActiveSessions int
	MaxSessions    int
	HeapAllocMB    uint64
	HeapSysMB      uint64
}

// MemoryStats reports current occupancy and heap usage.
func (s *Store) MemoryStats() MemoryStats {
	s.mu.RLock()
	active := len(s.records)
	s.mu.RUnlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return MemoryStats{
		ActiveSessions: active,
		MaxSessions:    s.config.MaxSessions,
		HeapAllocMB:    ms.HeapAlloc / (1 << 20),
		HeapSysMB:      ms.HeapSys / (1 << 20),
	}
}

// putLocked truncates and stores a record the store now owns, running the
// capacity check first. Must be called with mu held.
func (s *Store) putLocked(sessionID string, rec *ConversationRecord, now time.Time) {
	s.evictIfAtCapacity(now)
	s.truncate(rec)
	s.records[sessionID] = rec
	s.access[sessionID] = now
}

// truncate drops the oldest messages when the record exceeds the
// per-session cap, keeping the most recent MaxMessages. When the kept
// count is odd and the window starts with an assistant turn, that first
// message is also dropped so the retained history opens on a user turn.
func (s *Store) truncate(rec *ConversationRecord) {
	if len(rec.Messages) <= s.config.MaxMessages {
		return
	}

	before := len(rec.Messages)
	rec.Messages = rec.Messages[before-s.config.MaxMessages:]
	if len(rec.Messages)%2 != 0 && rec.Messages[0].IsAssistant() {
		rec.Messages = rec.Messages[1:]
	}

	s.logger.Debug("conversation truncated",
		"session_id", rec.SessionID,
		"before", before,
		"after", len(rec.Messages),
	)
}

// evictIfAtCapacity frees room when the tracked-session count has reached
// the configured capacity: every session idle for half the expiration
// window is dropped first, then, if the store is still at capacity, the
// least recently accessed sessions are dropped until occupancy is back at
// 75% of capacity. Must be called with mu held.
func (s *Store) evictIfAtCapacity(now time.Time) {
	if len(s.access) < s.config.MaxSessions {
		return
	}

	idle := s.evictBeforeLocked(now.Add(-s.config.Expiration / 2))

	forced := 0
	if len(s.access) >= s.config.MaxSessions {
		target := s.config.MaxSessions * 3 / 4
		forced = s.evictOldestLocked(len(s.access) - target)
	}

	s.logger.Warn("session capacity reached, emergency eviction",
		"idle_evicted", idle,
		"forced_evicted", forced,
		"active_sessions", len(s.records),
	)
}

// evictBeforeLocked removes sessions whose last access is before cutoff.
// Must be called with mu held.
func (s *Store) evictBeforeLocked(cutoff time.Time) int {
	removed := 0
	for id, seen := range s.access {
		if seen.Before(cutoff) {
			delete(s.records, id)
			delete(s.access, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("evicted inactive sessions",
			"count", removed,
			"active_sessions", len(s.records),
		)
	}
	return removed
}

// evictOldestLocked removes the n least recently accessed sessions, oldest
// first, ties broken by session ID so eviction order is deterministic.
// Must be called with mu held.
func (s *Store) evictOldestLocked(n int) int {
	if n <= 0 {
		return 0
	}

	type entry struct {
		id   string
		seen time.Time
	}
	entries := make([]entry, 0, len(s.access))
	for id, seen := range s.access {
		entries = append(entries, entry{id: id, seen: seen})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].seen.Equal(entries[j].seen) {
			return entries[i].id < entries[j].id
		}
		return entries[i].seen.Before(entries[j].seen)
	})

	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(s.records, e.id)
		delete(s.access, e.id)
	}
	return n
}
