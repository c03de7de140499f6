package game

import (
	"context"
	"fmt"
	"time"
)

const (
	reasonTimeout          = "timeout"
	reasonSkipped          = "skipped"
	reasonDrawerLeft       = "drawer_left"
	reasonOwnerLeft        = "owner_left"
	reasonRoomEmpty        = "room_empty"
	reasonNotEnoughPlayers = "not_enough_players"
)

func (s *Session) drawDuration(room *Room) time.Duration {
	if room.DrawSeconds > 0 {
		return secondsDuration(room.DrawSeconds)
	}
	return 80 * time.Second
}

func (s *Session) setPhase(room *Room, phase Phase, d time.Duration) {
	room.Phase = phase
	room.PhaseEndTime = s.now().Add(d)
}

func (s *Session) broadcastPhase(room *Room, d time.Duration, drawer string) {
	s.broadcast(EventPhaseChange, PhaseChangePayload{
		Phase:    room.Phase,
		Duration: seconds(d),
		Round:    room.CurrentRound,
		Drawer:   drawer,
	})
}

// enterSelectingDrawer runs rotation and prefetches the word candidates for the
// selected drawer.
func (s *Session) enterSelectingDrawer(ctx context.Context, room *Room) error {
	s.stopTimers()
	if room.ActiveCount() < minPlayers {
		return s.teardown(ctx, room, reasonNotEnoughPlayers)
	}
	room.clearRoundState()
	room.resetGuesses()
	drawer, ok := SelectDrawer(room)
	if !ok {
		return s.teardown(ctx, room, reasonRoomEmpty)
	}
	room.CurrentDrawerID = drawer
	room.WordOptions = s.deps.Words.WordOptions(ctx, room.ThemeID, room.Language, room.Script)
	d := s.rules.SelectDrawer
	s.setPhase(room, PhaseSelectingDrawer, d)
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastPhase(room, d, drawer)
	s.broadcast(EventDrawerSelected, DrawerSelectedPayload{
		Drawer:          drawer,
		PreviewDuration: seconds(d),
	})
	s.journal(ctx, room, drawer, "drawer_selected", EventPayload{Phase: room.Phase, Drawer: drawer})
	s.log.Info().Int("round", room.CurrentRound).Str("drawer", drawer).Int("pointer", room.DrawerPointer).Msg("drawer selected")
	s.schedulePhase(room, d)
	return nil
}

// enterChoosingWord hands the candidates privately to the drawer.
func (s *Session) enterChoosingWord(ctx context.Context, room *Room) error {
	drawer, ok := room.Drawer()
	if !ok || !drawer.IsActive {
		return s.skipDrawer(ctx, room, reasonDrawerLeft)
	}
	room.clearDrawerFlags()
	drawer.IsDrawer = true
	if len(room.WordOptions) < wordChoiceCount {
		room.WordOptions = s.deps.Words.WordOptions(ctx, room.ThemeID, room.Language, room.Script)
	}
	d := s.rules.ChooseWord
	s.setPhase(room, PhaseChoosingWord, d)
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastPhase(room, d, drawer.UserID)
	s.sendTo(drawer.UserID, EventWordOptions, WordOptionsPayload{
		Words:    room.WordOptions,
		Duration: seconds(d),
	})
	s.schedulePhase(room, d)
	return nil
}

func (s *Session) enterDrawing(ctx context.Context, room *Room, word string) error {
	s.cancelPhaseTimer()
	room.CurrentWord = word
	room.WordOptions = nil
	room.resetGuesses()
	d := s.drawDuration(room)
	s.setPhase(room, PhaseDrawing, d)
	room.RemainingSeconds = seconds(d)
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastPhase(room, d, room.CurrentDrawerID)
	s.sendTo(room.CurrentDrawerID, EventWordChosen, WordChosenPayload{Word: word})
	s.journal(ctx, room, room.CurrentDrawerID, "word_chosen", EventPayload{Word: word, Duration: room.RemainingSeconds})
	s.scheduleTick(room)
	return nil
}

// enterReveal closes a drawing round: drawer reward, word disclosure and the
// single win-detection pass of this round.
func (s *Session) enterReveal(ctx context.Context, room *Room) error {
	if room.Phase != PhaseDrawing {
		return fmt.Errorf("reveal from phase %s", room.Phase)
	}
	s.stopTimers()
	drawerID := room.CurrentDrawerID
	word := room.CurrentWord
	guessed := GuessedCount(room)
	reward := DrawerReward(guessed, room.MaxPointsPerRound)
	if drawer, ok := room.Drawer(); ok && reward > 0 {
		drawer.Score += reward
	}
	room.clearDrawerFlags()
	room.RemainingSeconds = 0
	d := s.rules.Reveal
	s.setPhase(room, PhaseReveal, d)
	winner, won := DetectWinner(room)
	if !won {
		if err := s.save(ctx, room); err != nil {
			return err
		}
	}
	s.broadcastPhase(room, d, drawerID)
	s.broadcast(EventRoundRevealed, RoundRevealedPayload{
		Word:         word,
		Drawer:       drawerID,
		DrawerReward: reward,
		GuessedCount: guessed,
		Participants: participantViews(room),
	})
	s.journal(ctx, room, drawerID, "round_revealed", EventPayload{Word: word, Drawer: drawerID, Points: reward, Count: guessed})
	if won {
		return s.finishGame(ctx, room, winner)
	}
	s.schedulePhase(room, d)
	return nil
}

// enterInterval clears the transient round fields. An abandoned round comes
// straight here without a reveal.
func (s *Session) enterInterval(ctx context.Context, room *Room) error {
	s.stopTimers()
	room.clearRoundState()
	room.resetGuesses()
	d := s.rules.Interval
	s.setPhase(room, PhaseInterval, d)
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastPhase(room, d, "")
	s.schedulePhase(room, d)
	return nil
}

// skipDrawer drops the current drawer without a reveal and reruns rotation
// from the already advanced pointer.
func (s *Session) skipDrawer(ctx context.Context, room *Room, reason string) error {
	s.stopTimers()
	skipped := room.CurrentDrawerID
	room.clearRoundState()
	s.broadcast(EventDrawerSkipped, DrawerSkippedPayload{Drawer: skipped, Reason: reason})
	s.journal(ctx, room, skipped, "drawer_skipped", EventPayload{Drawer: skipped, Reason: reason})
	s.log.Info().Str("drawer", skipped).Str("reason", reason).Msg("drawer skipped")
	return s.enterSelectingDrawer(ctx, room)
}

// finishGame pays out the top three and schedules the return to the lobby.
func (s *Session) finishGame(ctx context.Context, room *Room, winner Participant) error {
	s.stopTimers()
	rankings := Rankings(room)
	for _, ranking := range rankings {
		if ranking.Payout <= 0 {
			continue
		}
		if err := s.deps.Ledger.Credit(ctx, ranking.UserID, ranking.Payout, ranking.Reason); err != nil {
			s.log.Error().Err(err).Str("user", ranking.UserID).Int("amount", ranking.Payout).Msg("payout credit failed")
		}
	}
	room.Status = StatusFinished
	room.Phase = PhaseNone
	room.clearRoundState()
	room.PhaseEndTime = s.now().Add(s.rules.FinishLobby)
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcast(EventGameEnded, GameEndedPayload{
		Winner:    winner.UserID,
		Team:      winner.Team,
		Rankings:  rankings,
		EntryCost: room.EntryPoints,
	})
	s.journal(ctx, room, winner.UserID, "game_ended", EventPayload{Winner: winner.UserID, Points: winner.Score, Status: room.Status})
	s.log.Info().Str("winner", winner.UserID).Int("score", winner.Score).Int("round", room.CurrentRound).Msg("game finished")
	s.scheduleLobbyReturn(room, s.rules.FinishLobby)
	return nil
}

func (s *Session) scheduleLobbyReturn(room *Room, d time.Duration) {
	s.cancelPhaseTimer()
	deadline := room.PhaseEndTime
	s.phaseSeq++
	seq := s.phaseSeq
	s.phaseTimer = s.deps.Scheduler.AfterFunc(d, func() {
		s.onLobbyReturn(seq, deadline)
	})
}

func (s *Session) onLobbyReturn(seq uint64, deadline time.Time) {
	s.fire("lobby_return", func(ctx context.Context) error {
		if seq != s.phaseSeq {
			return nil
		}
		room, err := s.load(ctx)
		if err != nil {
			return err
		}
		if room.Status != StatusFinished || !room.PhaseEndTime.Equal(deadline) {
			s.log.Debug().Str("status", string(room.Status)).Msg("stale lobby timer ignored")
			return nil
		}
		room.Status = StatusLobby
		room.Phase = PhaseNone
		room.PhaseEndTime = time.Time{}
		room.CurrentRound = 0
		room.DrawerPointer = 0
		room.DrawnUserIDs = nil
		room.clearRoundState()
		for i := range room.Participants {
			p := &room.Participants[i]
			p.HasDrawn = false
			p.HasGuessedThisRound = false
			p.HasPaidEntry = false
		}
		room.refreshLobbyStatus()
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.broadcast(EventStatusChange, StatusChangePayload{Status: room.Status})
		s.broadcastParticipants(room)
		return nil
	})
}

// onPhaseTimeout handles natural expiry of a phase. The snapshot is reloaded
// and the callback does nothing unless the room is still in the phase and
// deadline it was armed for.
func (s *Session) onPhaseTimeout(seq uint64, expected Phase, deadline time.Time) {
	s.fire("phase_timeout", func(ctx context.Context) error {
		if seq != s.phaseSeq {
			return nil
		}
		room, err := s.load(ctx)
		if err != nil {
			return err
		}
		if room.Status != StatusPlaying || room.Phase != expected || !room.PhaseEndTime.Equal(deadline) {
			s.log.Debug().Str("expected", string(expected)).Str("phase", string(room.Phase)).Msg("stale phase timer ignored")
			return nil
		}
		switch expected {
		case PhaseSelectingDrawer:
			return s.enterChoosingWord(ctx, room)
		case PhaseChoosingWord:
			return s.skipDrawer(ctx, room, reasonTimeout)
		case PhaseDrawing:
			return s.enterReveal(ctx, room)
		case PhaseReveal:
			return s.enterInterval(ctx, room)
		case PhaseInterval:
			room.CurrentRound++
			return s.enterSelectingDrawer(ctx, room)
		}
		return nil
	})
}

// onTick advances the drawing countdown by one second.
func (s *Session) onTick(seq uint64, round int, drawer string) {
	s.fire("tick", func(ctx context.Context) error {
		if seq != s.tickSeq {
			return nil
		}
		room, err := s.load(ctx)
		if err != nil {
			return err
		}
		if room.Status != StatusPlaying || room.Phase != PhaseDrawing || room.CurrentRound != round || room.CurrentDrawerID != drawer {
			s.log.Debug().Str("phase", string(room.Phase)).Msg("stale tick ignored")
			return nil
		}
		room.RemainingSeconds = max(0, room.RemainingSeconds-1)
		if room.RemainingSeconds == 0 {
			return s.enterReveal(ctx, room)
		}
		room.PhaseEndTime = s.now().Add(secondsDuration(room.RemainingSeconds))
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.broadcast(EventTimeUpdate, TimeUpdatePayload{RemainingSeconds: room.RemainingSeconds})
		s.scheduleTick(room)
		return nil
	})
}

// teardown closes the room for good: timers stop, everyone is deactivated and
// the record is deleted.
func (s *Session) teardown(ctx context.Context, room *Room, reason string) error {
	s.stopTimers()
	for i := range room.Participants {
		room.Participants[i].IsActive = false
		room.Participants[i].IsDrawer = false
	}
	room.Status = StatusClosed
	room.Phase = PhaseNone
	s.closed = true
	if err := s.deps.Repo.DeleteRoom(ctx, room.Code); err != nil {
		s.log.Error().Err(err).Msg("delete room failed")
	}
	s.broadcast(EventRoomClosed, RoomClosedPayload{Reason: reason})
	s.log.Info().Str("reason", reason).Msg("room closed")
	if s.onClose != nil {
		s.onClose(s.code)
	}
	return nil
}
