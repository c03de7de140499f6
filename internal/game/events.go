package game

import (
	"encoding/json"
	"time"
)

const (
	EventPhaseChange           = "phase_change"
	EventDrawerSelected        = "drawer_selected"
	EventWordOptions           = "word_options"
	EventWordChosen            = "word_chosen"
	EventTimeUpdate            = "time_update"
	EventCorrectGuess          = "correct_guess"
	EventIncorrectGuess        = "incorrect_guess"
	EventGuessResult           = "guess_result"
	EventDrawerSkipped         = "drawer_skipped"
	EventRoundRevealed         = "round_revealed"
	EventGameEnded             = "game_ended"
	EventRoomClosed            = "room_closed"
	EventStatusChange          = "status_change"
	EventParticipantsUpdated   = "participants_updated"
	EventSettingsUpdated       = "settings_updated"
	EventRoomState             = "room_state"
	EventCanvasSnapshotRequest = "canvas_snapshot_request"
	EventCanvasResume          = "canvas_resume"
	EventError                 = "error"
)

// Event is one outbound message for room members.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Broadcaster delivers events to the connections of a room. Implementations must
// not call back into the Registry while delivering.
type Broadcaster interface {
	Broadcast(roomCode string, event Event)
	SendTo(roomCode, userID string, event Event)
}

type PhaseChangePayload struct {
	Phase    Phase  `json:"phase"`
	Duration int    `json:"duration"`
	Round    int    `json:"round"`
	Drawer   string `json:"drawer,omitempty"`
}

type DrawerSelectedPayload struct {
	Drawer          string `json:"drawer"`
	PreviewDuration int    `json:"previewDuration"`
}

type WordOptionsPayload struct {
	Words    []string `json:"words"`
	Duration int      `json:"duration"`
}

type WordChosenPayload struct {
	Word string `json:"word"`
}

type TimeUpdatePayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type CorrectGuessPayload struct {
	By               string          `json:"by"`
	Word             string          `json:"word"`
	Points           int             `json:"points"`
	Participant      ParticipantView `json:"participant"`
	RemainingSeconds int             `json:"remainingSeconds"`
}

type IncorrectGuessPayload struct {
	Guess string `json:"guess"`
	User  string `json:"user"`
}

type GuessResultPayload struct {
	Correct bool `json:"correct"`
	Close   bool `json:"close,omitempty"`
	Points  int  `json:"points,omitempty"`
}

type DrawerSkippedPayload struct {
	Drawer string `json:"drawer"`
	Reason string `json:"reason,omitempty"`
}

type RoundRevealedPayload struct {
	Word         string            `json:"word"`
	Drawer       string            `json:"drawer"`
	DrawerReward int               `json:"drawerReward"`
	GuessedCount int               `json:"guessedCount"`
	Participants []ParticipantView `json:"participants"`
}

type GameEndedPayload struct {
	Winner    string    `json:"winner,omitempty"`
	Team      Team      `json:"team,omitempty"`
	Rankings  []Ranking `json:"rankings"`
	EntryCost int       `json:"entryCost"`
}

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

type StatusChangePayload struct {
	Status Status `json:"status"`
}

type ParticipantsPayload struct {
	Participants []ParticipantView `json:"participants"`
}

type CanvasSnapshotRequestPayload struct {
	Requester string `json:"requester"`
}

type CanvasResumePayload struct {
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message,omitempty"`
}

// ParticipantView is the client-visible projection of a Participant.
type ParticipantView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Team        Team   `json:"team,omitempty"`
	Score       int    `json:"score"`
	IsDrawer    bool   `json:"isDrawer"`
	HasGuessed  bool   `json:"hasGuessed"`
	IsActive    bool   `json:"isActive"`
}

func participantView(p Participant) ParticipantView {
	return ParticipantView{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Team:        p.Team,
		Score:       p.Score,
		IsDrawer:    p.IsDrawer,
		HasGuessed:  p.HasGuessedThisRound,
		IsActive:    p.IsActive,
	}
}

func participantViews(room *Room) []ParticipantView {
	views := make([]ParticipantView, 0, len(room.Participants))
	for _, p := range room.Participants {
		views = append(views, participantView(p))
	}
	return views
}

// EventPayload is the journal record written for every transition.
type EventPayload struct {
	Phase    Phase  `json:"phase,omitempty"`
	Status   Status `json:"status,omitempty"`
	Drawer   string `json:"drawer,omitempty"`
	Word     string `json:"word,omitempty"`
	Guess    string `json:"guess,omitempty"`
	Points   int    `json:"points,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Winner   string `json:"winner,omitempty"`
	Count    int    `json:"count,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func secondsDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}
