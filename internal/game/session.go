package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scribble-rush/internal/config"

	"github.com/rs/zerolog"
)

// Rules holds the fixed phase durations and prices shared by every room.
type Rules struct {
	SelectDrawer time.Duration
	ChooseWord   time.Duration
	Reveal       time.Duration
	Interval     time.Duration
	FinishLobby  time.Duration
	Tick         time.Duration
	// OperationTimeout bounds the persistence work of one timer callback.
	OperationTimeout time.Duration
	VoiceCost        int
	MaxGuessLength   int
}

func DefaultRules() Rules {
	return RulesFromConfig(config.Default())
}

func RulesFromConfig(cfg config.Config) Rules {
	return Rules{
		SelectDrawer:     time.Duration(cfg.SelectDrawerSeconds) * time.Second,
		ChooseWord:       time.Duration(cfg.ChooseWordSeconds) * time.Second,
		Reveal:           time.Duration(cfg.RevealDurationSeconds) * time.Second,
		Interval:         time.Duration(cfg.IntervalSeconds) * time.Second,
		FinishLobby:      time.Duration(cfg.FinishLobbySeconds) * time.Second,
		Tick:             time.Second,
		OperationTimeout: 5 * time.Second,
		VoiceCost:        cfg.VoiceCost,
		MaxGuessLength:   60,
	}
}

// RoomDefaultsFromConfig fills the per-room settings a creation request may
// leave out.
func RoomDefaultsFromConfig(cfg config.Config) RoomSpec {
	return RoomSpec{
		Mode:              ModeFFA,
		TargetPoints:      cfg.TargetPoints,
		MaxPointsPerRound: cfg.MaxPointsPerRound,
		EntryPoints:       cfg.EntryPoints,
		DrawSeconds:       cfg.DrawDurationSeconds,
		MaxPlayers:        cfg.MaxPlayers,
		Language:          BaseLanguage,
		Script:            ScriptPhonetic,
	}
}

// Deps are the collaborators shared by every session of a Registry.
type Deps struct {
	Repo        Repository
	Words       *WordGateway
	Ledger      Ledger
	Broadcaster Broadcaster
	Scheduler   Scheduler
	Rules       Rules
	Defaults    RoomSpec
	Now         func() time.Time
	Logger      zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Scheduler == nil {
		d.Scheduler = RealScheduler()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Rules == (Rules{}) {
		d.Rules = DefaultRules()
	}
	if d.Defaults == (RoomSpec{}) {
		d.Defaults = RoomDefaultsFromConfig(config.Default())
	}
	if d.Rules.Tick <= 0 {
		d.Rules.Tick = time.Second
	}
	if d.Rules.OperationTimeout <= 0 {
		d.Rules.OperationTimeout = 5 * time.Second
	}
	if d.Words == nil {
		d.Words = NewWordGateway(nil, d.Logger)
	}
	if d.Ledger == nil {
		d.Ledger = NewMemoryLedger(0)
	}
	return d
}

// Session owns one room's timers and serializes every command and timer
// callback touching that room.
type Session struct {
	code    string
	deps    Deps
	rules   Rules
	log     zerolog.Logger
	onClose func(code string)

	mu         sync.Mutex
	closed     bool
	phaseTimer Timer
	phaseSeq   uint64
	tickTimer  Timer
	tickSeq    uint64
}

func newSession(code string, deps Deps, onClose func(string)) *Session {
	return &Session{
		code:    code,
		deps:    deps,
		rules:   deps.Rules,
		log:     deps.Logger.With().Str("room", code).Logger(),
		onClose: onClose,
	}
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) now() time.Time {
	return s.deps.Now().UTC().Truncate(time.Millisecond)
}

// Close stops the session's timers without touching persisted state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimers()
}

// do runs fn with the room lock held.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn(ctx)
}

// fire is the boundary of every timer callback: failures are logged and
// swallowed so the room keeps running.
func (s *Session) fire(operation string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.rules.OperationTimeout)
	defer cancel()
	defer func() {
		if recovered := recover(); recovered != nil {
			s.log.Error().Str("operation", operation).Interface("panic", recovered).Msg("timer callback panicked")
		}
	}()
	if err := fn(ctx); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			s.log.Warn().Str("operation", operation).Msg("room vanished; stopping timers")
			s.stopTimers()
			return
		}
		s.log.Error().Err(err).Str("operation", operation).Msg("timer callback failed")
	}
}

func (s *Session) load(ctx context.Context) (*Room, error) {
	return s.deps.Repo.LoadRoom(ctx, s.code)
}

func (s *Session) save(ctx context.Context, room *Room) error {
	if err := s.deps.Repo.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("save room %s: %w", room.Code, err)
	}
	return nil
}

func (s *Session) broadcast(eventType string, data any) {
	if s.deps.Broadcaster == nil {
		return
	}
	s.deps.Broadcaster.Broadcast(s.code, Event{Type: eventType, Data: data})
}

func (s *Session) sendTo(userID, eventType string, data any) {
	if s.deps.Broadcaster == nil || userID == "" {
		return
	}
	s.deps.Broadcaster.SendTo(s.code, userID, Event{Type: eventType, Data: data})
}

func (s *Session) broadcastParticipants(room *Room) {
	s.broadcast(EventParticipantsUpdated, ParticipantsPayload{Participants: participantViews(room)})
}

// journal appends to the event log; failures only cost history.
func (s *Session) journal(ctx context.Context, room *Room, userID, eventType string, payload EventPayload) {
	if err := s.deps.Repo.RecordEvent(ctx, room.Code, room.CurrentRound, userID, eventType, payload); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("journal write failed")
	}
}
