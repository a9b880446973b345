package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
)

var (
	// ErrBusy is returned when a session already has a turn in flight.
	ErrBusy = errors.New("a request is already running for this session")
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("message is empty")
)

// Asker answers one question. *agentrun.Runner implements it.
type Asker interface {
	Ask(ctx context.Context, q agentrun.Question) (agentrun.Answer, error)
}

// DefaultIdleTTL is how long a session without turns is kept.
const DefaultIdleTTL = 24 * time.Hour

type chatSession struct {
	transcript Transcript
	busy       bool
	lastUsed   time.Time
}

// Service owns the transcripts of all live sessions. A session exists once
// it has submitted a turn; sessions idle for longer than IdleTTL are
// dropped when a new session is created.
type Service struct {
	asker  Asker
	source string

	// IdleTTL defaults to DefaultIdleTTL.
	IdleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*chatSession
}

// NewService creates a Service. source tags journaled turns, e.g. "web".
func NewService(asker Asker, source string) *Service {
	return &Service{
		asker:    asker,
		source:   source,
		IdleTTL:  DefaultIdleTTL,
		now:      time.Now,
		sessions: make(map[string]*chatSession),
	}
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// lookup returns session id, or nil if it does not exist.
func (s *Service) lookup(id string) *chatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// acquire returns session id, creating it if needed, and marks it busy.
// Callers hold s.mu.
func (s *Service) acquire(id string) (*chatSession, error) {
	now := s.now()
	cs, ok := s.sessions[id]
	if !ok {
		s.evictIdle(now)
		cs = &chatSession{}
		s.sessions[id] = cs
	}
	if cs.busy {
		return nil, ErrBusy
	}
	cs.busy = true
	cs.lastUsed = now
	return cs, nil
}

// evictIdle drops sessions unused for longer than IdleTTL. Callers hold s.mu.
func (s *Service) evictIdle(now time.Time) {
	ttl := s.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	for id, cs := range s.sessions {
		if !cs.busy && now.Sub(cs.lastUsed) > ttl {
			delete(s.sessions, id)
		}
	}
}

// Sessions reports how many sessions are held.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Messages returns the transcript of session id. Unknown sessions have an
// empty transcript.
func (s *Service) Messages(id string) []Message {
	cs := s.lookup(id)
	if cs == nil {
		return []Message{}
	}
	return cs.transcript.Snapshot()
}

// Clear empties the transcript of session id. It returns ErrBusy while a
// turn is in flight, so a late reply cannot land in a cleared transcript.
func (s *Service) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if cs.busy {
		return ErrBusy
	}
	cs.transcript.Clear()
	return nil
}

// Submit runs one turn for session id and returns the assistant message
// that was appended. A failed turn is still a turn: the error is rendered
// with apperr.UserMessage and stored with Error set, and Submit returns it
// without an error. Only ErrEmpty and ErrBusy are returned as errors, and
// in both cases the transcript is left untouched.
func (s *Service) Submit(ctx context.Context, id, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmpty
	}

	s.mu.Lock()
	cs, err := s.acquire(id)
	s.mu.Unlock()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		s.mu.Lock()
		cs.busy = false
		cs.lastUsed = s.now()
		s.mu.Unlock()
	}()

	cs.transcript.Append(Message{Role: RoleUser, Content: text})

	answer, err := s.asker.Ask(ctx, agentrun.Question{Text: text, SessionID: id, Source: s.source})
	reply := Message{Role: RoleAssistant, Content: answer.Text}
	if err != nil {
		slog.Debug("chat turn failed", "session", id, "kind", apperr.KindOf(err))
		reply = Message{Role: RoleAssistant, Content: apperr.UserMessage(err), Error: true}
	}
	reply.At = time.Now()
	cs.transcript.Append(reply)
	return reply, nil
}
