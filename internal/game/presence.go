package game

import (
	"context"
	"fmt"
	"time"
)

func (s *Session) join(ctx context.Context, room *Room, cmd Command) error {
	if cmd.UserID == "" {
		return validationError(codeNotInRoom, "missing user identity")
	}
	if room.Status == StatusClosed {
		return preconditionError(codeRoomUnavailable, "room is closed", nil)
	}
	p, existing := room.Participant(cmd.UserID)
	if !(existing && p.IsActive) && room.MaxPlayers > 0 && room.ActiveCount() >= room.MaxPlayers {
		return preconditionError(codeRoomFull, fmt.Sprintf("room is limited to %d players", room.MaxPlayers), nil)
	}

	sequence := rotationSequence(room)
	if room.Status == StatusInactive {
		room.Status = StatusLobby
		room.Phase = PhaseNone
		room.PhaseEndTime = time.Time{}
		room.clearRoundState()
	}

	if !existing {
		room.Participants = append(room.Participants, Participant{
			UserID:   cmd.UserID,
			JoinedAt: s.now(),
		})
		p = &room.Participants[len(room.Participants)-1]
	}
	rejoin := existing && !p.IsActive
	p.IsActive = true
	p.ConnectionID = cmd.ConnectionID
	if cmd.DisplayName != "" {
		p.DisplayName = cmd.DisplayName
	}
	if p.DisplayName == "" {
		p.DisplayName = p.UserID
	}
	if room.Mode == ModeTeam && p.Team == TeamNone {
		p.Team = UnderRepresentedTeam(room)
	}
	if room.Status == StatusPlaying {
		RebaseDrawerPointer(room, sequence)
	}
	room.refreshLobbyStatus()
	if err := s.save(ctx, room); err != nil {
		return err
	}

	s.broadcastParticipants(room)
	s.sendTo(cmd.UserID, EventRoomState, StateFor(room, cmd.UserID, s.now()))
	if room.Status == StatusPlaying && room.Phase == PhaseDrawing && room.CurrentDrawerID != cmd.UserID {
		s.sendTo(room.CurrentDrawerID, EventCanvasSnapshotRequest, CanvasSnapshotRequestPayload{Requester: cmd.UserID})
	}
	if !existing || rejoin {
		s.journal(ctx, room, cmd.UserID, "joined", EventPayload{Status: room.Status, Count: room.ActiveCount()})
		s.log.Info().Str("user", cmd.UserID).Bool("rejoin", rejoin).Int("active", room.ActiveCount()).Msg("participant joined")
	}
	return nil
}

func (s *Session) leave(ctx context.Context, room *Room, userID string) error {
	p, ok := room.Participant(userID)
	if !ok || !p.IsActive {
		return validationError(codeNotInRoom, "you are not in this room")
	}
	return s.depart(ctx, room, p, "left")
}

// disconnect is ignored when the participant already reconnected on another
// connection.
func (s *Session) disconnect(ctx context.Context, room *Room, cmd Command) error {
	p, ok := room.Participant(cmd.UserID)
	if !ok || !p.IsActive {
		return nil
	}
	if cmd.ConnectionID != "" && p.ConnectionID != cmd.ConnectionID {
		return nil
	}
	return s.depart(ctx, room, p, "disconnected")
}

// depart deactivates p and keeps rotation and phase consistent with the
// remaining members.
func (s *Session) depart(ctx context.Context, room *Room, p *Participant, how string) error {
	userID := p.UserID
	s.log.Info().Str("user", userID).Str("how", how).Str("phase", string(room.Phase)).Msg("participant departing")
	if userID == room.OwnerID {
		return s.teardown(ctx, room, reasonOwnerLeft)
	}
	wasDrawer := userID == room.CurrentDrawerID
	sequence := rotationSequence(room)
	p.IsActive = false
	p.IsDrawer = false
	p.ConnectionID = ""
	s.journal(ctx, room, userID, how, EventPayload{Phase: room.Phase, Count: room.ActiveCount()})

	if room.ActiveCount() == 0 || !room.IsActiveMember(room.OwnerID) {
		return s.teardown(ctx, room, reasonRoomEmpty)
	}
	if room.Status != StatusPlaying {
		room.refreshLobbyStatus()
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.broadcastParticipants(room)
		return nil
	}
	if room.ActiveCount() < minPlayers {
		return s.teardown(ctx, room, reasonNotEnoughPlayers)
	}
	RebaseDrawerPointer(room, sequence)

	var err error
	switch {
	case wasDrawer && room.Phase == PhaseDrawing:
		err = s.enterInterval(ctx, room)
	case wasDrawer && (room.Phase == PhaseSelectingDrawer || room.Phase == PhaseChoosingWord):
		err = s.skipDrawer(ctx, room, reasonDrawerLeft)
	case room.Phase == PhaseDrawing && RoundComplete(room):
		err = s.enterReveal(ctx, room)
	default:
		err = s.save(ctx, room)
	}
	if err != nil {
		return err
	}
	if !s.closed {
		s.broadcastParticipants(room)
	}
	return nil
}
