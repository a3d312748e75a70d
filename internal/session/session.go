// Package session owns the per-connection gaze state: one fixation detector
// and the language/calibration settings of one connected stream. The fixation
// detector itself is single-writer and lock-free; the session provides the
// serialization the detector contract requires, so a transport can deliver
// samples from whatever goroutine its connection loop runs on.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fennwick/glossa-api/internal/domain"
	"github.com/fennwick/glossa-api/internal/domain/fixation"
	"github.com/fennwick/glossa-api/internal/langdetect"
	"github.com/fennwick/glossa-api/internal/lookup"
	"github.com/fennwick/glossa-api/internal/metrics"
)

// Common session errors
var (
	// ErrSessionNotFound indicates an operation on an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyOwner indicates a session open request without an owner.
	ErrEmptyOwner = errors.New("session owner cannot be empty")

	// ErrEmptyTargetLang indicates a session open request without a target
	// language and no configured default.
	ErrEmptyTargetLang = errors.New("session target language cannot be empty")
)

// Session binds one connected gaze stream to its detector and language pair.
type Session struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	createdAt time.Time

	mu         sync.Mutex
	detector   *fixation.Detector
	sourceLang string
	targetLang string
}

// newSession wires a session around a fresh detector.
func newSession(ownerID uuid.UUID, sourceLang, targetLang string, cfg domain.FixationConfig) (*Session, error) {
	detector, err := fixation.NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:         uuid.New(),
		ownerID:    ownerID,
		createdAt:  time.Now().UTC(),
		detector:   detector,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}, nil
}

// ID returns the session's identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// OwnerID returns the owner whose memory gates this session's lookups.
func (s *Session) OwnerID() uuid.UUID {
	return s.ownerID
}

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// ProcessSample feeds one gaze sample to the session's detector and returns
// a trigger event if the sample completed a fixation. Calls are serialized;
// transports may invoke this from any goroutine.
func (s *Session) ProcessSample(sample domain.GazeSample) (*domain.TriggerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trigger, err := s.detector.ProcessSample(sample)
	if err != nil {
		return nil, err
	}

	if trigger != nil {
		metrics.FixationTriggers.Inc()
	}
	return trigger, nil
}

// UpdateConfig replaces the session's fixation thresholds at runtime, for
// per-user calibration. Returns a validation error on bad thresholds; the
// previous config stays in effect.
func (s *Session) UpdateConfig(cfg domain.FixationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.detector.UpdateConfig(cfg)
}

// Config returns the fixation thresholds currently in effect.
func (s *Session) Config() domain.FixationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.detector.Config()
}

// Reset discards any fixation window in progress. The lookup service calls
// this through the Resetter it receives, once a trigger has been handled.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detector.Reset()
}

// SetLanguages updates the session's language pair. Empty values keep the
// current setting.
func (s *Session) SetLanguages(sourceLang, targetLang string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sourceLang != "" {
		s.sourceLang = sourceLang
	}
	if targetLang != "" {
		s.targetLang = targetLang
	}
}

// Languages returns the session's current language pair.
func (s *Session) Languages() (sourceLang, targetLang string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sourceLang, s.targetLang
}

// LookupRequest assembles the lookup request for a trigger fired by this
// session, carrying its owner and language settings. A session configured
// with langdetect.Auto has no concrete fallback of its own; the detection
// outcome decides.
func (s *Session) LookupRequest(trigger domain.TriggerEvent, screenshot []byte) lookup.Request {
	sourceLang, targetLang := s.Languages()

	req := lookup.Request{
		OwnerID:    s.ownerID,
		Trigger:    trigger,
		Screenshot: screenshot,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
	if sourceLang != langdetect.Auto {
		req.FallbackSourceLang = sourceLang
	}
	return req
}

// Manager tracks the open sessions of all connected streams.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	defaultConfig     domain.FixationConfig
	defaultTargetLang string
	logger            *slog.Logger
}

// NewManager creates a session manager. New sessions that supply no
// calibration start from defaultConfig; sessions without a target language
// fall back to defaultTargetLang.
func NewManager(defaultConfig domain.FixationConfig, defaultTargetLang string, log *slog.Logger) (*Manager, error) {
	if err := defaultConfig.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		sessions:          make(map[uuid.UUID]*Session),
		defaultConfig:     defaultConfig,
		defaultTargetLang: defaultTargetLang,
		logger:            log.With(slog.String("component", "session_manager")),
	}, nil
}

// Open creates and registers a session for one connected gaze stream.
// cfg may be nil to use the manager's default fixation thresholds; an empty
// source language requests auto-detection and an empty target language falls
// back to the manager's default.
func (m *Manager) Open(
	ownerID uuid.UUID,
	sourceLang, targetLang string,
	cfg *domain.FixationConfig,
) (*Session, error) {
	if ownerID == uuid.Nil {
		return nil, ErrEmptyOwner
	}

	if sourceLang == "" {
		sourceLang = langdetect.Auto
	}
	if targetLang == "" {
		targetLang = m.defaultTargetLang
	}
	if targetLang == "" {
		return nil, ErrEmptyTargetLang
	}

	fixationCfg := m.defaultConfig
	if cfg != nil {
		fixationCfg = *cfg
	}

	sess, err := newSession(ownerID, sourceLang, targetLang, fixationCfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session opened",
		slog.String("session_id", sess.id.String()),
		slog.String("owner_id", ownerID.String()),
		slog.String("source_lang", sourceLang),
		slog.String("target_lang", targetLang),
		slog.Int("active", count))
	return sess, nil
}

// Get returns the session with the given ID.
// Returns ErrSessionNotFound if no such session is open.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close discards the session with the given ID. The detector goes with it;
// in-flight lookups for the session may finish but their results target a
// dead stream.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session closed",
		slog.String("session_id", id.String()),
		slog.String("owner_id", sess.ownerID.String()),
		slog.Int("active", count))
	return nil
}

// CloseAll discards every open session, used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	count := len(m.sessions)
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(0)
	if count > 0 {
		m.logger.Info("closed all sessions", slog.Int("count", count))
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
