package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/histochat/backend/ai"
	"github.com/histochat/backend/internal/models"
	"github.com/histochat/backend/pkg/cache"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/resilience"
)

// FallbackMessage is appended in place of a reply when every attempt against
// the completion upstream has failed. The failure itself is never surfaced to
// the end user.
const FallbackMessage = "I apologize, but I encountered an error. Please try again."

// Session errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrCharacterUnknown = errors.New("unknown character")
	ErrSessionBusy      = errors.New("a message is already in flight for this session")
	ErrEmptyMessage     = errors.New("message content is required")
	ErrSessionFull      = errors.New("session has reached its message limit")
	ErrStaleResponse    = errors.New("session changed while the reply was in flight")
)

// ChatClient is the outbound completion dependency of the session controller
type ChatClient interface {
	Send(ctx context.Context, message, systemContext string) (string, error)
}

// Session owns one user's conversation with one character. Messages are
// append-only and insertion-ordered; Clear and character switches reset the
// transcript and bump the generation counter so replies still in flight for
// the old transcript are discarded instead of appended.
type Session struct {
	ID          string
	CharacterID string
	Tone        models.ToneType
	CreatedAt   time.Time

	mu         sync.Mutex
	messages   []models.ChatMessage
	busy       bool
	generation uint64
}

// SessionView is the wire representation of a session
type SessionView struct {
	ID          string               `json:"id"`
	CharacterID string               `json:"character_id"`
	Tone        models.ToneType      `json:"tone"`
	CreatedAt   time.Time            `json:"created_at"`
	Messages    []models.ChatMessage `json:"messages"`
}

// Snapshot returns a copy of the session safe to serialize
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]models.ChatMessage, len(s.messages))
	copy(messages, s.messages)

	return SessionView{
		ID:          s.ID,
		CharacterID: s.CharacterID,
		Tone:        s.Tone,
		CreatedAt:   s.CreatedAt,
		Messages:    messages,
	}
}

// SessionConfig tunes the session controller
type SessionConfig struct {
	TTL                   time.Duration
	PurgeWindow           time.Duration
	MaxSessions           int
	MaxMessagesPerSession int
	RetryCount            int
	RetryDelay            time.Duration
}

// DefaultSessionConfig returns the standard controller settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:                   time.Hour,
		PurgeWindow:           10 * time.Minute,
		MaxSessions:           1000,
		MaxMessagesPerSession: 1000,
		RetryCount:            3,
		RetryDelay:            time.Second,
	}
}

// SessionService mediates every conversation: it serializes sends per
// session, calls the completion upstream under a bounded retry policy, and
// reconciles results into ordered message state.
type SessionService struct {
	characters *CharacterService
	chat       ChatClient
	sessions   *cache.Cache
	retrier    *resilience.Retrier
	breaker    *resilience.CircuitBreaker
	metrics    *Metrics
	log        *logger.Logger
	config     SessionConfig
}

// NewSessionService creates a session controller
func NewSessionService(
	characters *CharacterService,
	chat ChatClient,
	metrics *Metrics,
	log *logger.Logger,
	config SessionConfig,
) *SessionService {
	sessions := cache.New(cache.Options{
		DefaultExpiration: config.TTL,
		CleanupInterval:   config.PurgeWindow,
		MaxItems:          config.MaxSessions,
	})

	retryCfg := resilience.RetryConfig{
		Name:     "gemini",
		Attempts: config.RetryCount,
		Delay:    config.RetryDelay,
	}

	return &SessionService{
		characters: characters,
		chat:       chat,
		sessions:   sessions,
		retrier:    resilience.NewRetrier(retryCfg, log),
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("gemini"), log),
		metrics:    metrics,
		log:        log,
		config:     config,
	}
}

// Create starts a fresh session for a character. The tone defaults to the
// persona's unmodified voice.
func (s *SessionService) Create(characterID string, tone models.ToneType) (*Session, error) {
	if _, ok := s.characters.Get(characterID); !ok {
		return nil, ErrCharacterUnknown
	}
	if tone == "" {
		tone = models.ToneOriginal
	}

	session := &Session{
		ID:          uuid.New().String(),
		CharacterID: characterID,
		Tone:        tone,
		CreatedAt:   time.Now(),
	}
	s.sessions.Set(session.ID, session)
	return session, nil
}

// Get returns a live session by id
func (s *SessionService) Get(id string) (*Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.sessions.Touch(id)
	return v.(*Session), nil
}

// SendMessage appends the user's message, calls the completion upstream with
// bounded retry, and appends exactly one terminal assistant message: the
// reply on success, or the fixed fallback text when every attempt failed.
// The returned bool reports whether the assistant message is the fallback.
func (s *SessionService) SendMessage(ctx context.Context, sessionID, content string) (*models.ChatMessage, bool, error) {
	if content == "" {
		return nil, false, ErrEmptyMessage
	}

	session, err := s.Get(sessionID)
	if err != nil {
		return nil, false, err
	}

	// Claim the session and append the user message in one critical section
	session.mu.Lock()
	if session.busy {
		session.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ObserveSend(OutcomeBusy, 0)
		}
		return nil, false, ErrSessionBusy
	}
	if len(session.messages) >= s.config.MaxMessagesPerSession {
		session.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ObserveSend(OutcomeRejected, 0)
		}
		return nil, false, ErrSessionFull
	}
	session.busy = true
	generation := session.generation
	characterID := session.CharacterID
	tone := session.Tone
	session.messages = append(session.messages, models.ChatMessage{
		ID:        fmt.Sprintf("user-%s", uuid.New().String()),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	})
	session.mu.Unlock()

	character, ok := s.characters.Get(characterID)
	if !ok {
		// Character set changed under us; treat like an unknown session
		session.mu.Lock()
		session.busy = false
		session.mu.Unlock()
		return nil, false, ErrCharacterUnknown
	}
	effectiveContext := character.ContextForTone(tone)

	start := time.Now()
	var reply string
	attempts, sendErr := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.breaker.Execute(func() error {
			text, err := s.chat.Send(ctx, content, effectiveContext)
			if err != nil {
				return err
			}
			reply = text
			return nil
		})
	})
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveAttempts(attempts)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.busy = false

	// The transcript was reset while we were waiting; the result belongs to
	// a conversation that no longer exists
	if session.generation != generation {
		if sendErr == nil && s.metrics != nil {
			s.metrics.ObserveSend(OutcomeRejected, elapsed.Seconds())
		}
		return nil, false, ErrStaleResponse
	}

	if sendErr != nil {
		s.log.WithSession(sessionID).LogError(sendErr, "chat send exhausted retries",
			"character_id", characterID,
			"error_kind", errorKind(sendErr),
			"attempts", attempts,
			"latency_ms", elapsed.Milliseconds(),
		)
		if s.metrics != nil {
			s.metrics.ObserveUpstreamError(errorKind(sendErr))
			s.metrics.ObserveSend(OutcomeFallback, elapsed.Seconds())
		}

		fallback := models.ChatMessage{
			ID:        fmt.Sprintf("assistant-%s", uuid.New().String()),
			Role:      models.RoleAssistant,
			Content:   FallbackMessage,
			Timestamp: time.Now(),
		}
		session.messages = append(session.messages, fallback)
		return &fallback, true, nil
	}

	if s.metrics != nil {
		s.metrics.ObserveSend(OutcomeSuccess, elapsed.Seconds())
	}

	assistant := models.ChatMessage{
		ID:        fmt.Sprintf("assistant-%s", uuid.New().String()),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}
	session.messages = append(session.messages, assistant)
	return &assistant, false, nil
}

// Clear resets the transcript for a fresh conversation and invalidates any
// reply still in flight
func (s *SessionService) Clear(sessionID string) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.messages = nil
	session.generation++
	return nil
}

// SetTone changes the tone for subsequent sends only; the transcript and any
// context already sent are untouched
func (s *SessionService) SetTone(sessionID string, tone models.ToneType) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.Tone = tone
	return nil
}

// SwitchCharacter points the session at a different persona. Prior history
// is discarded, not persisted, and in-flight replies are invalidated.
func (s *SessionService) SwitchCharacter(sessionID, characterID string) error {
	if _, ok := s.characters.Get(characterID); !ok {
		return ErrCharacterUnknown
	}

	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.CharacterID = characterID
	session.messages = nil
	session.generation++
	return nil
}

// BreakerState exposes the upstream circuit state for health reporting
func (s *SessionService) BreakerState() string {
	return string(s.breaker.GetState())
}

// SessionCount reports how many sessions are live
func (s *SessionService) SessionCount() int {
	return s.sessions.Count()
}

// errorKind maps a send error to a stable label for logs and metrics
func errorKind(err error) string {
	var (
		configErr    *ai.ConfigurationError
		upstreamErr  *ai.UpstreamError
		malformedErr *ai.MalformedResponse
	)
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &upstreamErr):
		return fmt.Sprintf("upstream_%d", upstreamErr.Status)
	case errors.As(err, &malformedErr):
		return "malformed_response"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "network"
	}
}
