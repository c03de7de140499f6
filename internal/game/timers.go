package game

import (
	"context"
	"time"
)

type Timer interface {
	Stop() bool
}

// Scheduler arms one-shot callbacks. The drawing countdown re-arms a one-shot
// per tick so every room holds at most one phase timer and one tick timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timer heap.
func RealScheduler() Scheduler {
	return wallClock{}
}

// schedulePhase arms the timer that ends the room's current phase. The callback
// is bound to the phase and deadline it was armed for.
func (s *Session) schedulePhase(room *Room, d time.Duration) {
	s.cancelPhaseTimer()
	if d < 0 {
		d = 0
	}
	expected := room.Phase
	deadline := room.PhaseEndTime
	s.phaseSeq++
	seq := s.phaseSeq
	s.phaseTimer = s.deps.Scheduler.AfterFunc(d, func() {
		s.onPhaseTimeout(seq, expected, deadline)
	})
}

func (s *Session) cancelPhaseTimer() {
	if s.phaseTimer != nil {
		s.phaseTimer.Stop()
		s.phaseTimer = nil
	}
	s.phaseSeq++
}

// scheduleTick arms the next one-second drawing countdown step.
func (s *Session) scheduleTick(room *Room) {
	s.cancelTick()
	round := room.CurrentRound
	drawer := room.CurrentDrawerID
	s.tickSeq++
	seq := s.tickSeq
	s.tickTimer = s.deps.Scheduler.AfterFunc(s.rules.Tick, func() {
		s.onTick(seq, round, drawer)
	})
}

func (s *Session) cancelTick() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
	s.tickSeq++
}

func (s *Session) stopTimers() {
	s.cancelPhaseTimer()
	s.cancelTick()
}

// remaining converts a persisted deadline into a timer duration.
func (s *Session) remaining(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return 0
	}
	d := deadline.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

// Resume re-arms the timers of a room restored after a restart. A playing room
// that lost its players is parked as inactive until someone joins again.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		room, err := s.load(ctx)
		if err != nil {
			return err
		}
		switch room.Status {
		case StatusFinished:
			s.scheduleLobbyReturn(room, s.remaining(room.PhaseEndTime))
			return nil
		case StatusPlaying:
		default:
			return nil
		}
		if room.ActiveCount() < minPlayers {
			room.Status = StatusInactive
			room.Phase = PhaseNone
			room.PhaseEndTime = time.Time{}
			room.clearRoundState()
			s.log.Info().Int("active", room.ActiveCount()).Msg("restored room parked as inactive")
			return s.save(ctx, room)
		}
		s.log.Info().Str("phase", string(room.Phase)).Int("round", room.CurrentRound).Msg("resuming room")
		switch room.Phase {
		case PhaseDrawing:
			if room.RemainingSeconds <= 0 {
				return s.enterReveal(ctx, room)
			}
			s.scheduleTick(room)
		case PhaseSelectingDrawer, PhaseChoosingWord, PhaseReveal, PhaseInterval:
			s.schedulePhase(room, s.remaining(room.PhaseEndTime))
		default:
			return s.enterSelectingDrawer(ctx, room)
		}
		return nil
	})
}
