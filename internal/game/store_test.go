package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	room := &Room{Code: "ABC123", Status: StatusLobby, Participants: []Participant{{UserID: "u1", IsActive: true}}}
	require.NoError(t, store.CreateRoom(ctx, room))
	assert.ErrorIs(t, store.CreateRoom(ctx, room), ErrRoomExists)

	room.Participants[0].Score = 99
	loaded, err := store.LoadRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Participants[0].Score)

	loaded.Participants[0].Score = 5
	loaded.Status = StatusPlaying
	require.NoError(t, store.SaveRoom(ctx, loaded))
	again, err := store.LoadRoom(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Participants[0].Score)

	playing, err := store.ListRoomsByStatus(ctx, StatusPlaying)
	require.NoError(t, err)
	require.Len(t, playing, 1)

	require.NoError(t, store.DeleteRoom(ctx, "ABC123"))
	_, err = store.LoadRoom(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, store.SaveRoom(ctx, again), ErrRoomNotFound)
}

func TestStoreJournal(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.RecordEvent(ctx, "R1", 2, "u1", "correct_guess", EventPayload{Guess: "apple", Points: 7}))
	require.NoError(t, store.RecordEvent(ctx, "R2", 1, "u2", "joined", EventPayload{}))

	entries := store.Journal("R1")
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Round)
	var payload EventPayload
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, EventPayload{Guess: "apple", Points: 7}, payload)
}

func TestStateForHidesWord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	room := &Room{
		Code:             "ABC123",
		Status:           StatusPlaying,
		Phase:            PhaseDrawing,
		CurrentDrawerID:  "alice",
		CurrentWord:      "ice cream",
		RemainingSeconds: 42,
		PhaseEndTime:     now.Add(42 * time.Second),
		Participants: []Participant{
			{UserID: "alice", IsActive: true, IsDrawer: true},
			{UserID: "bob", IsActive: true},
		},
	}

	guesser := StateFor(room, "bob", now)
	assert.Empty(t, guesser.Word)
	assert.Equal(t, "___ _____", guesser.WordHint)
	assert.Equal(t, 42, guesser.RemainingSeconds)

	drawer := StateFor(room, "alice", now)
	assert.Equal(t, "ice cream", drawer.Word)
	assert.Empty(t, drawer.WordHint)

	room.Phase = PhaseReveal
	room.PhaseEndTime = now.Add(7 * time.Second)
	revealed := StateFor(room, "bob", now)
	assert.Equal(t, "ice cream", revealed.Word)
	assert.Equal(t, 7, revealed.RemainingSeconds)

	room.Phase = PhaseChoosingWord
	room.CurrentWord = ""
	room.WordOptions = []string{"a", "b", "c"}
	assert.Equal(t, []string{"a", "b", "c"}, StateFor(room, "alice", now).WordOptions)
	assert.Empty(t, StateFor(room, "bob", now).WordOptions)
}
