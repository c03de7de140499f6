package game

import (
	"slices"
	"time"
)

type Phase string

const (
	PhaseNone            Phase = "none"
	PhaseSelectingDrawer Phase = "selecting_drawer"
	PhaseChoosingWord    Phase = "choosing_word"
	PhaseDrawing         Phase = "drawing"
	PhaseReveal          Phase = "reveal"
	PhaseInterval        Phase = "interval"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusInactive Status = "inactive"
	StatusClosed   Status = "closed"
)

type GameMode string

const (
	ModeFFA  GameMode = "ffa"
	ModeTeam GameMode = "team"
)

type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

const minPlayers = 2

// Room is the persisted snapshot of one game session. Sessions never keep a copy
// between operations; every command and timer reloads it from the Repository.
type Room struct {
	Code              string
	OwnerID           string
	Mode              GameMode
	Status            Status
	Phase             Phase
	PhaseEndTime      time.Time
	RemainingSeconds  int
	CurrentRound      int // 0 for the first cycle of a game
	CurrentDrawerID   string
	CurrentWord       string
	WordOptions       []string
	DrawerPointer     int // index of the next drawer in the rotation sequence
	DrawnUserIDs      []string
	TargetPoints      int
	MaxPointsPerRound int
	EntryPoints       int
	DrawSeconds       int
	MaxPlayers        int
	ThemeID           uint
	Language          string
	Script            string
	VoiceEnabled      bool
	Participants      []Participant
}

type Participant struct {
	UserID              string
	DisplayName         string
	Team                Team
	Score               int
	IsDrawer            bool
	HasDrawn            bool
	HasGuessedThisRound bool
	HasPaidEntry        bool
	IsActive            bool
	ConnectionID        string
	JoinedAt            time.Time
}

// RoomSpec carries the creation-time settings of a room.
type RoomSpec struct {
	Code              string
	OwnerID           string
	OwnerName         string
	Mode              GameMode
	TargetPoints      int
	MaxPointsPerRound int
	EntryPoints       int
	DrawSeconds       int
	MaxPlayers        int
	ThemeID           uint
	Language          string
	Script            string
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	clone := *r
	clone.WordOptions = slices.Clone(r.WordOptions)
	clone.DrawnUserIDs = slices.Clone(r.DrawnUserIDs)
	clone.Participants = slices.Clone(r.Participants)
	return &clone
}

func (r *Room) Participant(userID string) (*Participant, bool) {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i], true
		}
	}
	return nil, false
}

func (r *Room) ActiveParticipants() []*Participant {
	active := make([]*Participant, 0, len(r.Participants))
	for i := range r.Participants {
		if r.Participants[i].IsActive {
			active = append(active, &r.Participants[i])
		}
	}
	return active
}

func (r *Room) ActiveCount() int {
	count := 0
	for _, p := range r.Participants {
		if p.IsActive {
			count++
		}
	}
	return count
}

func (r *Room) IsActiveMember(userID string) bool {
	p, ok := r.Participant(userID)
	return ok && p.IsActive
}

func (r *Room) Drawer() (*Participant, bool) {
	if r.CurrentDrawerID == "" {
		return nil, false
	}
	return r.Participant(r.CurrentDrawerID)
}

func (r *Room) clearDrawerFlags() {
	for i := range r.Participants {
		r.Participants[i].IsDrawer = false
	}
}

func (r *Room) clearRoundState() {
	r.clearDrawerFlags()
	r.CurrentDrawerID = ""
	r.CurrentWord = ""
	r.WordOptions = nil
	r.RemainingSeconds = 0
}

func (r *Room) resetGuesses() {
	for i := range r.Participants {
		r.Participants[i].HasGuessedThisRound = false
	}
}

// refreshLobbyStatus flips between lobby and waiting depending on whether
// enough players are present to start.
func (r *Room) refreshLobbyStatus() {
	if r.Status != StatusLobby && r.Status != StatusWaiting {
		return
	}
	if r.ActiveCount() >= minPlayers {
		r.Status = StatusWaiting
		return
	}
	r.Status = StatusLobby
}
