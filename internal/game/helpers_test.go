package game

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	sched   *manualScheduler
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler is a fake clock. Timers only fire inside Advance, on the
// calling goroutine, in deadline order.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	timer := &manualTimer{sched: s, at: s.now.Add(d), seq: s.seq, fn: f}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()
	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.fired = true
		s.mu.Unlock()
		next.fn()
	}
}

func (s *manualScheduler) nextDueLocked(target time.Time) *manualTimer {
	pending := make([]*manualTimer, 0)
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(target) {
			pending = append(pending, timer)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].at.Equal(pending[j].at) {
			return pending[i].at.Before(pending[j].at)
		}
		return pending[i].seq < pending[j].seq
	})
	return pending[0]
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

type sentEvent struct {
	Room  string
	To    string
	Event Event
}

type recorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recorder) Broadcast(roomCode string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{Room: roomCode, Event: event})
}

func (r *recorder) SendTo(roomCode, userID string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{Room: roomCode, To: userID, Event: event})
}

func (r *recorder) ofType(eventType string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentEvent, 0)
	for _, sent := range r.events {
		if sent.Event.Type == eventType {
			out = append(out, sent)
		}
	}
	return out
}

func (r *recorder) last(t *testing.T, eventType string) sentEvent {
	t.Helper()
	events := r.ofType(eventType)
	require.NotEmpty(t, events, "no %s event recorded", eventType)
	return events[len(events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	store  *Store
	sched  *manualScheduler
	rec    *recorder
	ledger *MemoryLedger
	words  *MemoryTranslationSource
	reg    *Registry
}

func newHarness(t *testing.T, configure ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		store:  NewStore(),
		sched:  newManualScheduler(),
		rec:    &recorder{},
		ledger: NewMemoryLedger(100),
		words:  NewMemoryTranslationSource(),
	}
	gateway := NewWordGateway(h.words, zerolog.Nop())
	gateway.shuffle = func(int, func(int, int)) {}
	deps := Deps{
		Repo:        h.store,
		Words:       gateway,
		Ledger:      h.ledger,
		Broadcaster: h.rec,
		Scheduler:   h.sched,
		Rules:       DefaultRules(),
		Now:         h.sched.Now,
		Logger:      zerolog.Nop(),
	}
	for _, fn := range configure {
		fn(&deps)
	}
	h.reg = NewRegistry(deps)
	return h
}

// createRoom opens a room owned by olivia and seats the given members.
func (h *harness) createRoom(mutate func(*RoomSpec), members ...string) string {
	h.t.Helper()
	spec := RoomSpec{OwnerID: "olivia", OwnerName: "Olivia", TargetPoints: 100}
	if mutate != nil {
		mutate(&spec)
	}
	room, err := h.reg.CreateRoom(h.ctx, spec)
	require.NoError(h.t, err)
	for _, member := range members {
		h.join(room.Code, member)
	}
	return room.Code
}

func (h *harness) join(code, userID string) {
	h.t.Helper()
	require.NoError(h.t, h.dispatch(code, userID, Command{Type: CommandJoinRoom, ConnectionID: "conn-" + userID}))
}

func (h *harness) dispatch(code, userID string, cmd Command) error {
	cmd.UserID = userID
	if cmd.DisplayName == "" {
		cmd.DisplayName = userID
	}
	return h.reg.Dispatch(h.ctx, code, cmd)
}

func (h *harness) room(code string) *Room {
	h.t.Helper()
	room, err := h.store.LoadRoom(h.ctx, code)
	require.NoError(h.t, err)
	return room
}

func (h *harness) score(code, userID string) int {
	h.t.Helper()
	p, ok := h.room(code).Participant(userID)
	require.True(h.t, ok)
	return p.Score
}

// startDrawing starts a game and advances it to drawing with word chosen by
// the first drawer.
func (h *harness) startDrawing(code, word string) string {
	h.t.Helper()
	require.NoError(h.t, h.dispatch(code, "olivia", Command{Type: CommandStartGame}))
	h.sched.Advance(h.reg.deps.Rules.SelectDrawer)
	room := h.room(code)
	require.Equal(h.t, PhaseChoosingWord, room.Phase)
	drawer := room.CurrentDrawerID
	require.NoError(h.t, h.dispatch(code, drawer, Command{Type: CommandChooseWord, Word: word}))
	require.Equal(h.t, PhaseDrawing, h.room(code).Phase)
	return drawer
}
