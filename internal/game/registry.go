package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const createAttempts = 5

// Registry maps room codes to live sessions. Sessions are opened lazily on
// the first command for a room and dropped when the room closes.
type Registry struct {
	deps Deps
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	newCode  func() string
}

func NewRegistry(deps Deps) *Registry {
	deps = deps.withDefaults()
	return &Registry{
		deps:     deps,
		log:      deps.Logger,
		sessions: make(map[string]*Session),
		newCode:  newJoinCode,
	}
}

func newJoinCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

// CreateRoom persists a new lobby room with its owner as the first member.
func (r *Registry) CreateRoom(ctx context.Context, spec RoomSpec) (*Room, error) {
	if strings.TrimSpace(spec.OwnerID) == "" {
		return nil, validationError(codeNotOwner, "owner is required")
	}
	room := r.roomFromSpec(spec)
	for attempt := 0; attempt < createAttempts; attempt++ {
		if spec.Code == "" {
			room.Code = r.newCode()
		}
		err := r.deps.Repo.CreateRoom(ctx, room)
		if err == nil {
			if journalErr := r.deps.Repo.RecordEvent(ctx, room.Code, 0, room.OwnerID, "room_created", EventPayload{Status: room.Status}); journalErr != nil {
				r.log.Warn().Err(journalErr).Str("room", room.Code).Msg("journal write failed")
			}
			r.log.Info().Str("room", room.Code).Str("owner", room.OwnerID).Str("mode", string(room.Mode)).Msg("room created")
			return room.Clone(), nil
		}
		if !errors.Is(err, ErrRoomExists) || spec.Code != "" {
			return nil, err
		}
	}
	return nil, fmt.Errorf("create room: %w", ErrRoomExists)
}

func (r *Registry) roomFromSpec(spec RoomSpec) *Room {
	defaults := r.deps.Defaults
	room := &Room{
		Code:              normalizeCode(spec.Code),
		OwnerID:           spec.OwnerID,
		Mode:              spec.Mode,
		Status:            StatusLobby,
		Phase:             PhaseNone,
		TargetPoints:      spec.TargetPoints,
		MaxPointsPerRound: spec.MaxPointsPerRound,
		EntryPoints:       spec.EntryPoints,
		DrawSeconds:       spec.DrawSeconds,
		MaxPlayers:        spec.MaxPlayers,
		ThemeID:           spec.ThemeID,
		Language:          NormalizeLanguage(spec.Language),
		Script:            NormalizeScript(spec.Script),
	}
	if room.Mode != ModeTeam {
		room.Mode = ModeFFA
	}
	if room.TargetPoints <= 0 {
		room.TargetPoints = defaults.TargetPoints
	}
	if room.MaxPointsPerRound <= 0 {
		room.MaxPointsPerRound = defaults.MaxPointsPerRound
	}
	if room.EntryPoints < 0 {
		room.EntryPoints = 0
	}
	if room.DrawSeconds <= 0 {
		room.DrawSeconds = defaults.DrawSeconds
	}
	if room.MaxPlayers <= 0 {
		room.MaxPlayers = defaults.MaxPlayers
	}
	owner := Participant{
		UserID:      spec.OwnerID,
		DisplayName: spec.OwnerName,
		IsActive:    true,
		JoinedAt:    r.deps.Now().UTC().Truncate(time.Millisecond),
	}
	if owner.DisplayName == "" {
		owner.DisplayName = spec.OwnerID
	}
	if room.Mode == ModeTeam {
		owner.Team = TeamA
	}
	room.Participants = []Participant{owner}
	return room
}

// Open returns the live session for code, creating it when the room exists
// in the repository.
func (r *Registry) Open(ctx context.Context, code string) (*Session, error) {
	code = normalizeCode(code)
	if session, ok := r.Get(code); ok {
		return session, nil
	}
	if _, err := r.deps.Repo.LoadRoom(ctx, code); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[code]; ok {
		return session, nil
	}
	session := newSession(code, r.deps, r.remove)
	r.sessions[code] = session
	return session, nil
}

func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[normalizeCode(code)]
	return session, ok
}

// Close stops the session's timers and forgets it. The persisted room is
// left untouched.
func (r *Registry) Close(code string) {
	code = normalizeCode(code)
	r.mu.Lock()
	session, ok := r.sessions[code]
	delete(r.sessions, code)
	r.mu.Unlock()
	if ok {
		session.Close()
	}
}

// remove runs with the session lock held and must not call back into it.
func (r *Registry) remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Codes lists the live session codes in order.
func (r *Registry) Codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Dispatch routes cmd to the room's session. Rejections are reported to the
// sender (or the whole room for shared toggles) and returned.
func (r *Registry) Dispatch(ctx context.Context, code string, cmd Command) error {
	code = normalizeCode(code)
	session, err := r.Open(ctx, code)
	if errors.Is(err, ErrRoomNotFound) {
		err = preconditionError(codeRoomNotFound, "room does not exist", err)
	}
	if err == nil {
		err = session.Handle(ctx, cmd)
		if errors.Is(err, ErrSessionClosed) {
			err = preconditionError(codeRoomUnavailable, "room is closed", err)
		}
	}
	if err != nil {
		r.report(code, cmd, err)
	}
	return err
}

func (r *Registry) report(code string, cmd Command, err error) {
	if r.deps.Broadcaster == nil {
		return
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		event := Event{Type: EventError, Data: ErrorPayload{Kind: cmdErr.Kind, Code: cmdErr.Code, Message: cmdErr.Message}}
		if cmdErr.Broadcast {
			r.deps.Broadcaster.Broadcast(code, event)
			return
		}
		r.deps.Broadcaster.SendTo(code, cmd.UserID, event)
		return
	}
	r.log.Error().Err(err).Str("room", code).Str("user", cmd.UserID).Str("command", string(cmd.Type)).Msg("command failed")
	r.deps.Broadcaster.SendTo(code, cmd.UserID, Event{Type: EventError, Data: ErrorPayload{Kind: KindInternal, Code: "internal", Message: "something went wrong"}})
}

// State returns the room as seen by userID.
func (r *Registry) State(ctx context.Context, code, userID string) (RoomState, error) {
	room, err := r.deps.Repo.LoadRoom(ctx, normalizeCode(code))
	if err != nil {
		return RoomState{}, err
	}
	return StateFor(room, userID, r.deps.Now().UTC()), nil
}

// Restore reopens every room that was mid-game or finishing when the process
// stopped and re-arms its timers from the persisted deadlines.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	rooms, err := r.deps.Repo.ListRoomsByStatus(ctx, StatusPlaying, StatusFinished)
	if err != nil {
		return 0, fmt.Errorf("list live rooms: %w", err)
	}
	restored := 0
	for _, room := range rooms {
		session, err := r.Open(ctx, room.Code)
		if err != nil {
			r.log.Warn().Err(err).Str("room", room.Code).Msg("restore open failed")
			continue
		}
		if err := session.Resume(ctx); err != nil {
			r.log.Error().Err(err).Str("room", room.Code).Msg("restore failed")
			continue
		}
		restored++
	}
	r.log.Info().Int("rooms", restored).Msg("sessions restored")
	return restored, nil
}

// Shutdown stops every session's timers.
func (r *Registry) Shutdown() {
	codes := r.Codes()
	r.log.Info().Strs("rooms", codes).Msg("closing sessions")
	for _, code := range codes {
		r.Close(code)
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
