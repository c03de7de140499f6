package game

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room already exists")
	ErrSessionClosed     = errors.New("session closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindPrecondition ErrorKind = "precondition"
	KindInternal     ErrorKind = "internal"
)

// CommandError is a rejected command. It is reported to the sender and never
// mutates room state.
type CommandError struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Broadcast reports the error to the whole room instead of only the sender.
	Broadcast bool
	Err       error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func validationError(code, message string) *CommandError {
	return &CommandError{Kind: KindValidation, Code: code, Message: message}
}

func preconditionError(code, message string, err error) *CommandError {
	return &CommandError{Kind: KindPrecondition, Code: code, Message: message, Err: err}
}

const (
	codeWrongPhase        = "wrong_phase"
	codeNotYourTurn       = "not_your_turn"
	codeInvalidWord       = "invalid_word"
	codeAlreadyGuessed    = "already_guessed"
	codeWrongTeam         = "wrong_team"
	codeDrawerGuess       = "drawer_cannot_guess"
	codeEmptyGuess        = "empty_guess"
	codeGuessTooLong      = "guess_too_long"
	codeNotOwner          = "not_owner"
	codeNotInRoom         = "not_in_room"
	codeInvalidTeam       = "invalid_team"
	codeNotTeamMode       = "not_team_mode"
	codeInvalidSettings   = "invalid_settings"
	codeGameInProgress    = "game_in_progress"
	codeUnknownCommand    = "unknown_command"
	codeRoomNotFound      = "room_not_found"
	codeRoomFull          = "room_full"
	codeNotEnoughPlayers  = "not_enough_players"
	codeInsufficientFunds = "insufficient_funds"
	codeRoomUnavailable   = "room_unavailable"
)

// IsPrecondition reports whether err is a precondition rejection.
func IsPrecondition(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Kind == KindPrecondition
}
