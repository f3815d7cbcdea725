// Package conversation coordinates Kioku's session memory with context
// extraction, reference resolution, and prompt composition. The Service is
// the single entry point chat frontends use: record turns as they happen,
// compose the context-enriched prompt for the next model call, inspect or
// clear sessions.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/Kioku/common/redact"
	"github.com/bdobrica/Kioku/common/trace"
	"github.com/bdobrica/Kioku/internal/kioku/memory"
	"github.com/bdobrica/Kioku/internal/kioku/nlp"
)

// RecordStore is the persistence surface the Service depends on. It is the
// time-injectable subset of *memory.Store; test doubles inject failures to
// exercise the degradation paths.
//
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// GetOrCreateAt returns a snapshot of the session's record, creating it
	// when absent. The bool reports whether this call created the record.
	GetOrCreateAt(sessionID string, now time.Time) (*memory.ConversationRecord, bool, error)

	// GetAt returns a snapshot of the session's record, or nil when unknown.
	GetAt(sessionID string, now time.Time) (*memory.ConversationRecord, error)

	// UpdateAt applies fn to the session's record as one atomic step,
	// creating the record when absent. The bool reports record creation.
	UpdateAt(sessionID string, fn func(*memory.ConversationRecord) error, now time.Time) (*memory.ConversationRecord, bool, error)

	// TouchAt advances the session's activity timestamp. False when unknown.
	TouchAt(sessionID string, now time.Time) bool

	// Remove deletes the session and returns the removed record, or nil.
	Remove(sessionID string) (*memory.ConversationRecord, error)

	// Has reports whether the session is currently tracked.
	Has(sessionID string) bool

	// ActiveCount returns the number of tracked sessions.
	ActiveCount() int
}

// Compile-time interface satisfaction check.
var _ RecordStore = (*memory.Store)(nil)

// DefaultContextWindow is how many recent messages feed reference
// resolution and prompt composition when the config leaves it unset.
const DefaultContextWindow = 10

// ServiceConfig holds configuration for the Service.
type ServiceConfig struct {
	// ContextWindow is the number of recent messages consulted when
	// resolving references and composing prompts. Default: 10.
	ContextWindow int
}

// Service is the conversation engine facade. All methods are safe for
// concurrent use as long as the underlying RecordStore is.
type Service struct {
	store   RecordStore
	config  ServiceConfig
	monitor Monitor
	logger  *slog.Logger

	resolver *nlp.Resolver
}

// NewService creates a Service over store. A non-positive ContextWindow
// falls back to the default. If monitor is nil, signals are discarded; if
// logger is nil, the default slog logger is used. The store must not be nil.
func NewService(store RecordStore, cfg ServiceConfig, monitor Monitor, logger *slog.Logger) *Service {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if monitor == nil {
		monitor = NopMonitor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		config:   cfg,
		monitor:  monitor,
		logger:   logger,
		resolver: nlp.NewResolver(cfg.ContextWindow),
	}
}

// RecordUserTurn appends a user message to the session and mines it for
// context metadata. The session is created on first use.
func (s *Service) RecordUserTurn(ctx context.Context, sessionID, content string) (memory.Message, error) {
	return s.RecordTurnAt(ctx, sessionID, memory.RoleUser, content, nil, time.Now())
}

// RecordAssistantTurn appends an assistant message to the session.
// Assistant turns are stored as-is, extraction only runs on user input.
func (s *Service) RecordAssistantTurn(ctx context.Context, sessionID, content string) (memory.Message, error) {
	return s.RecordTurnAt(ctx, sessionID, memory.RoleAssistant, content, nil, time.Now())
}

// RecordTurn appends a message with an explicit role and optional
// per-message metadata.
func (s *Service) RecordTurn(ctx context.Context, sessionID string, role memory.Role, content string, meta map[string]any) (memory.Message, error) {
	return s.RecordTurnAt(ctx, sessionID, role, content, meta, time.Now())
}

// RecordTurnAt is the time-injectable core of the turn recorders (for
// testing). The append, the context extraction, and the retention trim all
// happen inside one store update, so concurrent turns on the same session
// serialize instead of clobbering each other.
func (s *Service) RecordTurnAt(ctx context.Context, sessionID string, role memory.Role, content string, meta map[string]any, now time.Time) (memory.Message, error) {
	msg, err := memory.NewMessageAt(role, content, now)
	if err != nil {
		s.monitor.RecordError("record_turn")
		return memory.Message{}, err
	}
	for k, v := range meta {
		msg.SetMeta(k, v)
	}

	rec, created, err := s.store.UpdateAt(sessionID, func(r *memory.ConversationRecord) error {
		r.AddMessage(msg)
		if msg.IsUser() {
			nlp.ExtractContext(content, r)
		}
		return nil
	}, now)
	if err != nil {
		s.monitor.RecordError("record_turn")
		return memory.Message{}, fmt.Errorf("record %s turn: %w", role, err)
	}

	if created {
		s.monitor.RecordCreated()
	}
	s.monitor.RecordStored()
	s.log(ctx).Debug("turn recorded",
		"session_id", sessionID,
		"role", role,
		"chars", len(content),
		"preview", redact.Snippet(content, 48),
		"messages", rec.MessageCount(),
	)
	if len(meta) > 0 {
		s.log(ctx).Debug("turn metadata attached",
			"session_id", sessionID,
			"meta", redact.Map(meta),
		)
	}
	return msg, nil
}

// ComposePrompt builds the context-enriched prompt for the user's next
// message. It never fails: when the session is unknown, the store read
// errors, or composition itself breaks, the message comes back verbatim so
// the caller can always proceed with an un-enriched prompt.
func (s *Service) ComposePrompt(ctx context.Context, sessionID, message string) string {
	return s.ComposePromptAt(ctx, sessionID, message, time.Now())
}

// ComposePromptAt is the time-injectable core of ComposePrompt (for testing).
func (s *Service) ComposePromptAt(ctx context.Context, sessionID, message string, now time.Time) (prompt string) {
	defer func() {
		if r := recover(); r != nil {
			s.monitor.RecordError("compose_prompt")
			s.log(ctx).Warn("prompt composition panicked, returning message verbatim",
				"session_id", sessionID,
				"panic", r,
			)
			prompt = message
		}
	}()

	start := time.Now()

	rec, err := s.store.GetAt(sessionID, now)
	if err != nil {
		s.monitor.RecordError("compose_prompt")
		s.log(ctx).Warn("context lookup failed, returning message verbatim",
			"session_id", sessionID,
			"err", err,
		)
		return message
	}
	if rec == nil {
		return message
	}

	resolutions := s.resolver.Resolve(message, rec)
	prompt = nlp.ComposePrompt(rec, message, s.config.ContextWindow, resolutions)

	s.store.TouchAt(sessionID, now)

	elapsed := time.Since(start)
	s.monitor.RecordContextBuild(elapsed)
	s.log(ctx).Debug("context prompt composed",
		"session_id", sessionID,
		"window", s.config.ContextWindow,
		"resolutions", len(resolutions),
		"prompt_chars", len(prompt),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return prompt
}

// Record returns a snapshot of the session's record, or nil when the
// session is unknown or the lookup fails.
func (s *Service) Record(sessionID string) *memory.ConversationRecord {
	rec, err := s.store.GetAt(sessionID, time.Now())
	if err != nil {
		s.monitor.RecordError("get_record")
		s.logger.Warn("record lookup failed", "session_id", sessionID, "err", err)
		return nil
	}
	return rec
}

// GetOrCreate returns the session's record, creating it when absent.
func (s *Service) GetOrCreate(sessionID string) (*memory.ConversationRecord, error) {
	rec, created, err := s.store.GetOrCreateAt(sessionID, time.Now())
	if err != nil {
		s.monitor.RecordError("get_or_create")
		return nil, err
	}
	if created {
		s.monitor.RecordCreated()
	}
	return rec, nil
}

// Exists reports whether the session is currently tracked.
func (s *Service) Exists(sessionID string) bool {
	return s.store.Has(sessionID)
}

// Clear removes the session and returns the removed record, or nil when
// the session was unknown or the removal failed.
func (s *Service) Clear(sessionID string) *memory.ConversationRecord {
	rec, err := s.store.Remove(sessionID)
	if err != nil {
		s.monitor.RecordError("clear")
		s.logger.Warn("session clear failed", "session_id", sessionID, "err", err)
		return nil
	}
	if rec != nil {
		s.logger.Info("session cleared",
			"session_id", sessionID,
			"messages", rec.MessageCount(),
		)
	}
	return rec
}

// History returns the session's messages oldest first, or nil when the
// session is unknown.
func (s *Service) History(sessionID string) []memory.Message {
	rec := s.Record(sessionID)
	if rec == nil {
		return nil
	}
	return rec.Messages
}

// MessageCount returns how many messages the session holds.
func (s *Service) MessageCount(sessionID string) int {
	rec := s.Record(sessionID)
	if rec == nil {
		return 0
	}
	return rec.MessageCount()
}

// ContextMetadata returns the session's extracted context keyed by
// category, or nil when the session is unknown.
func (s *Service) ContextMetadata(sessionID string) map[string][]string {
	rec := s.Record(sessionID)
	if rec == nil {
		return nil
	}
	return rec.ContextMetadata
}

// LastActivity returns the session's last activity timestamp, or the zero
// time when the session is unknown.
func (s *Service) LastActivity(sessionID string) time.Time {
	rec := s.Record(sessionID)
	if rec == nil {
		return time.Time{}
	}
	return rec.LastActivity
}

// TouchActivity marks the session active now. Unknown sessions are a no-op.
func (s *Service) TouchActivity(sessionID string) {
	s.store.TouchAt(sessionID, time.Now())
}

// IsInactive reports whether the session has been idle for longer than
// window. Unknown sessions count as inactive.
func (s *Service) IsInactive(sessionID string, window time.Duration) bool {
	return s.IsInactiveAt(sessionID, window, time.Now())
}

// IsInactiveAt is the time-injectable core of IsInactive (for testing).
func (s *Service) IsInactiveAt(sessionID string, window time.Duration, now time.Time) bool {
	rec, err := s.store.GetAt(sessionID, now)
	if err != nil || rec == nil {
		return true
	}
	return rec.InactiveSince(now, window)
}

// ActiveSessions returns the number of tracked sessions.
func (s *Service) ActiveSessions() int {
	return s.store.ActiveCount()
}

// ContainsReferences reports whether text carries a pronoun, demonstrative,
// or back-reference expression.
func (s *Service) ContainsReferences(text string) bool {
	return nlp.ContainsReference(text)
}

// ContainsPronouns reports whether text carries a bare referring pronoun.
func (s *Service) ContainsPronouns(text string) bool {
	return nlp.ContainsPronoun(text)
}

// log returns the service logger, tagged with the trace id from ctx when
// one is present.
func (s *Service) log(ctx context.Context) *slog.Logger {
	if id := trace.FromContext(ctx); id != "" {
		return s.logger.With("trace_id", id)
	}
	return s.logger
}
