package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"
)

type CommandType string

const (
	CommandStartGame      CommandType = "start_game"
	CommandChooseWord     CommandType = "choose_word"
	CommandSubmitGuess    CommandType = "submit_guess"
	CommandSkipTurn       CommandType = "skip_turn"
	CommandSelectTeam     CommandType = "select_team"
	CommandUpdateSettings CommandType = "update_settings"
	CommandLeaveRoom      CommandType = "leave_room"
	CommandJoinRoom       CommandType = "join_room"

	// Transport-originated commands.
	CommandDisconnect     CommandType = "disconnect"
	CommandCanvasSnapshot CommandType = "canvas_snapshot"
)

// Command is one room-scoped request. Identity fields are attached by the
// transport after authentication and never decoded from the client.
type Command struct {
	Type         CommandType     `json:"type"`
	UserID       string          `json:"-"`
	DisplayName  string          `json:"-"`
	ConnectionID string          `json:"-"`
	Word         string          `json:"word,omitempty"`
	Guess        string          `json:"guess,omitempty"`
	Team         Team            `json:"team,omitempty"`
	Settings     *SettingsPatch  `json:"settings,omitempty"`
	Target       string          `json:"target,omitempty"`
	Canvas       json.RawMessage `json:"canvas,omitempty"`
}

// Handle applies one command to the room under the session lock.
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	return s.do(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				s.log.Error().Str("command", string(cmd.Type)).Interface("panic", recovered).Msg("command panicked")
				err = fmt.Errorf("command %s panicked: %v", cmd.Type, recovered)
			}
		}()
		room, err := s.load(ctx)
		if errors.Is(err, ErrRoomNotFound) {
			return preconditionError(codeRoomNotFound, "room does not exist", err)
		}
		if err != nil {
			return err
		}
		switch cmd.Type {
		case CommandStartGame:
			return s.startGame(ctx, room, cmd)
		case CommandChooseWord:
			return s.chooseWord(ctx, room, cmd)
		case CommandSubmitGuess:
			return s.submitGuess(ctx, room, cmd)
		case CommandSkipTurn:
			return s.skipTurn(ctx, room, cmd)
		case CommandSelectTeam:
			return s.selectTeam(ctx, room, cmd)
		case CommandUpdateSettings:
			return s.updateSettings(ctx, room, cmd)
		case CommandJoinRoom:
			return s.join(ctx, room, cmd)
		case CommandLeaveRoom:
			return s.leave(ctx, room, cmd.UserID)
		case CommandDisconnect:
			return s.disconnect(ctx, room, cmd)
		case CommandCanvasSnapshot:
			return s.forwardCanvas(room, cmd)
		default:
			return validationError(codeUnknownCommand, fmt.Sprintf("unknown command %q", cmd.Type))
		}
	})
}

func requireMember(room *Room, userID string) (*Participant, error) {
	p, ok := room.Participant(userID)
	if !ok || !p.IsActive {
		return nil, validationError(codeNotInRoom, "you are not in this room")
	}
	return p, nil
}

func requirePlaying(room *Room, phases ...Phase) error {
	if room.Status != StatusPlaying || !slices.Contains(phases, room.Phase) {
		return validationError(codeWrongPhase, fmt.Sprintf("not allowed during %s", room.Phase))
	}
	return nil
}

func (s *Session) startGame(ctx context.Context, room *Room, cmd Command) error {
	if _, err := requireMember(room, cmd.UserID); err != nil {
		return err
	}
	if room.OwnerID != cmd.UserID {
		return validationError(codeNotOwner, "only the owner can start the game")
	}
	if room.Status == StatusPlaying {
		return validationError(codeGameInProgress, "game already running")
	}
	if room.ActiveCount() < minPlayers {
		return preconditionError(codeNotEnoughPlayers, fmt.Sprintf("need at least %d players", minPlayers), nil)
	}
	if room.Mode == ModeTeam {
		assignMissingTeams(room)
	}
	if err := s.collectEntryFees(ctx, room); err != nil {
		return err
	}
	for i := range room.Participants {
		p := &room.Participants[i]
		p.Score = 0
		p.HasDrawn = false
		p.HasGuessedThisRound = false
		p.IsDrawer = false
	}
	room.Status = StatusPlaying
	room.CurrentRound = 0
	room.DrawerPointer = 0
	room.DrawnUserIDs = nil
	room.clearRoundState()

	s.broadcast(EventStatusChange, StatusChangePayload{Status: room.Status})
	s.journal(ctx, room, cmd.UserID, "game_started", EventPayload{Status: room.Status, Count: room.ActiveCount(), Points: room.EntryPoints})
	s.log.Info().Str("mode", string(room.Mode)).Int("players", room.ActiveCount()).Int("entry", room.EntryPoints).Msg("game started")
	return s.enterSelectingDrawer(ctx, room)
}

// collectEntryFees debits every active participant. A failed debit refunds
// everyone already charged and aborts the start.
func (s *Session) collectEntryFees(ctx context.Context, room *Room) error {
	for i := range room.Participants {
		room.Participants[i].HasPaidEntry = false
	}
	if room.EntryPoints <= 0 {
		return nil
	}
	charged := make([]*Participant, 0, len(room.Participants))
	for _, p := range room.ActiveParticipants() {
		err := s.deps.Ledger.Debit(ctx, p.UserID, room.EntryPoints, reasonEntryFee)
		if err == nil {
			p.HasPaidEntry = true
			charged = append(charged, p)
			continue
		}
		s.refundEntryFees(ctx, room, charged)
		if errors.Is(err, ErrInsufficientFunds) {
			return preconditionError(codeInsufficientFunds, fmt.Sprintf("%s cannot cover the entry cost", p.DisplayName), err)
		}
		return fmt.Errorf("collect entry fee from %s: %w", p.UserID, err)
	}
	return nil
}

func (s *Session) refundEntryFees(ctx context.Context, room *Room, charged []*Participant) {
	for _, p := range charged {
		if err := s.deps.Ledger.Credit(ctx, p.UserID, room.EntryPoints, reasonEntryRefund); err != nil {
			s.log.Error().Err(err).Str("user", p.UserID).Msg("entry refund failed")
		}
		p.HasPaidEntry = false
	}
}

func (s *Session) chooseWord(ctx context.Context, room *Room, cmd Command) error {
	if err := requirePlaying(room, PhaseChoosingWord); err != nil {
		return err
	}
	if cmd.UserID != room.CurrentDrawerID {
		return validationError(codeNotYourTurn, "only the drawer can choose the word")
	}
	choice := normalizeGuess(cmd.Word)
	index := slices.IndexFunc(room.WordOptions, func(option string) bool {
		return normalizeGuess(option) == choice
	})
	if choice == "" || index < 0 {
		return validationError(codeInvalidWord, "word is not one of the offered options")
	}
	return s.enterDrawing(ctx, room, room.WordOptions[index])
}

func (s *Session) submitGuess(ctx context.Context, room *Room, cmd Command) error {
	guesser, err := requireMember(room, cmd.UserID)
	if err != nil {
		return err
	}
	if err := requirePlaying(room, PhaseDrawing); err != nil {
		return err
	}
	if cmd.UserID == room.CurrentDrawerID {
		return validationError(codeDrawerGuess, "the drawer cannot guess")
	}
	if normalizeGuess(cmd.Guess) == "" {
		return validationError(codeEmptyGuess, "guess is empty")
	}
	if s.rules.MaxGuessLength > 0 && utf8.RuneCountInString(cmd.Guess) > s.rules.MaxGuessLength {
		return validationError(codeGuessTooLong, "guess is too long")
	}
	if room.Mode == ModeTeam {
		if drawer, ok := room.Drawer(); ok && drawer.Team != guesser.Team {
			return validationError(codeWrongTeam, "only the drawer's team can guess")
		}
	}
	if guesser.HasGuessedThisRound {
		return validationError(codeAlreadyGuessed, "you already guessed the word")
	}

	if !MatchesWord(cmd.Guess, room.CurrentWord) {
		s.broadcast(EventIncorrectGuess, IncorrectGuessPayload{Guess: cmd.Guess, User: cmd.UserID})
		s.sendTo(cmd.UserID, EventGuessResult, GuessResultPayload{
			Correct: false,
			Close:   IsCloseGuess(cmd.Guess, room.CurrentWord),
		})
		return nil
	}

	eligible := len(EligibleGuessers(room))
	reward := GuessReward(room.RemainingSeconds, room.MaxPointsPerRound)
	guesser.HasGuessedThisRound = true
	AwardGuess(room, guesser, reward)
	room.RemainingSeconds = CompressTime(room.RemainingSeconds, eligible)
	room.PhaseEndTime = s.now().Add(secondsDuration(room.RemainingSeconds))
	if err := s.save(ctx, room); err != nil {
		return err
	}

	s.broadcast(EventCorrectGuess, CorrectGuessPayload{
		By:               cmd.UserID,
		Word:             room.CurrentWord,
		Points:           reward,
		Participant:      participantView(*guesser),
		RemainingSeconds: room.RemainingSeconds,
	})
	s.sendTo(cmd.UserID, EventGuessResult, GuessResultPayload{Correct: true, Points: reward})
	s.journal(ctx, room, cmd.UserID, "correct_guess", EventPayload{Guess: cmd.Guess, Points: reward, Duration: room.RemainingSeconds})

	if RoundComplete(room) || room.RemainingSeconds == 0 {
		return s.enterReveal(ctx, room)
	}
	return nil
}

func (s *Session) skipTurn(ctx context.Context, room *Room, cmd Command) error {
	if _, err := requireMember(room, cmd.UserID); err != nil {
		return err
	}
	if err := requirePlaying(room, PhaseChoosingWord, PhaseDrawing); err != nil {
		return err
	}
	if cmd.UserID != room.CurrentDrawerID && cmd.UserID != room.OwnerID {
		return validationError(codeNotYourTurn, "only the drawer or the owner can skip")
	}
	return s.skipDrawer(ctx, room, reasonSkipped)
}

func (s *Session) selectTeam(ctx context.Context, room *Room, cmd Command) error {
	p, err := requireMember(room, cmd.UserID)
	if err != nil {
		return err
	}
	if room.Mode != ModeTeam {
		return validationError(codeNotTeamMode, "room is not in team mode")
	}
	if room.Status != StatusLobby && room.Status != StatusWaiting {
		return validationError(codeGameInProgress, "teams are locked once the game starts")
	}
	if cmd.Team != TeamA && cmd.Team != TeamB {
		return validationError(codeInvalidTeam, "team must be A or B")
	}
	p.Team = cmd.Team
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastParticipants(room)
	return nil
}

// forwardCanvas relays the drawer's canvas to one rejoining member.
func (s *Session) forwardCanvas(room *Room, cmd Command) error {
	if cmd.UserID != room.CurrentDrawerID || room.Phase != PhaseDrawing {
		return validationError(codeNotYourTurn, "only the drawer can share the canvas")
	}
	if !room.IsActiveMember(cmd.Target) {
		return validationError(codeNotInRoom, "target is not in this room")
	}
	s.sendTo(cmd.Target, EventCanvasResume, CanvasResumePayload{From: cmd.UserID, Data: cmd.Canvas})
	return nil
}
