package game

import (
	"strings"
	"time"
)

// RoomState is the full resume snapshot sent privately to a (re)joining
// member. The secret word is only visible to the drawer until reveal.
type RoomState struct {
	Code             string            `json:"code"`
	OwnerID          string            `json:"ownerId"`
	Status           Status            `json:"status"`
	Phase            Phase             `json:"phase"`
	Round            int               `json:"round"`
	Drawer           string            `json:"drawer,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	PhaseEndsAt      *time.Time        `json:"phaseEndsAt,omitempty"`
	Word             string            `json:"word,omitempty"`
	WordHint         string            `json:"wordHint,omitempty"`
	WordOptions      []string          `json:"wordOptions,omitempty"`
	Settings         RoomSettings      `json:"settings"`
	Participants     []ParticipantView `json:"participants"`
}

// StateFor builds the snapshot of room as seen by userID.
func StateFor(room *Room, userID string, now time.Time) RoomState {
	state := RoomState{
		Code:         room.Code,
		OwnerID:      room.OwnerID,
		Status:       room.Status,
		Phase:        room.Phase,
		Round:        room.CurrentRound,
		Drawer:       room.CurrentDrawerID,
		Settings:     settingsOf(room),
		Participants: participantViews(room),
	}
	if !room.PhaseEndTime.IsZero() {
		end := room.PhaseEndTime
		state.PhaseEndsAt = &end
	}
	switch room.Phase {
	case PhaseDrawing:
		state.RemainingSeconds = room.RemainingSeconds
	default:
		if !room.PhaseEndTime.IsZero() && room.PhaseEndTime.After(now) {
			state.RemainingSeconds = int(room.PhaseEndTime.Sub(now).Round(time.Second) / time.Second)
		}
	}

	isDrawer := userID != "" && userID == room.CurrentDrawerID
	switch {
	case room.CurrentWord == "":
	case isDrawer || room.Phase == PhaseReveal:
		state.Word = room.CurrentWord
	default:
		state.WordHint = maskWord(room.CurrentWord)
	}
	if isDrawer && room.Phase == PhaseChoosingWord {
		state.WordOptions = append([]string(nil), room.WordOptions...)
	}
	return state
}

// maskWord hides every letter but keeps spaces so the word shape shows.
func maskWord(word string) string {
	var b strings.Builder
	for _, r := range word {
		if r == ' ' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
