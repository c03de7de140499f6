package server

import (
	"encoding/json"
	"testing"

	"scribble-rush/internal/game"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(room, userID string) *client {
	return &client{id: userID + "-conn", room: room, userID: userID, send: make(chan []byte, sendBuffer)}
}

func drain(c *client) []string {
	var types []string
	for {
		select {
		case data := <-c.send:
			var f frame
			if err := json.Unmarshal(data, &f); err == nil {
				types = append(types, f.Type)
			}
		default:
			return types
		}
	}
}

func TestHubRelaysStrokesFromDrawerOnly(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	alice, bob, carol := testClient("ROOM01", "alice"), testClient("ROOM01", "bob"), testClient("ROOM01", "carol")
	for _, c := range []*client{alice, bob, carol} {
		hub.Add(c)
	}
	stroke := game.Event{Type: eventDraw, Data: json.RawMessage(`{"x":1}`)}

	assert.False(t, hub.RelayStroke(alice, stroke), "nobody is drawing yet")

	hub.Broadcast("ROOM01", game.Event{Type: game.EventPhaseChange, Data: game.PhaseChangePayload{Phase: game.PhaseChoosingWord, Drawer: "alice"}})
	assert.False(t, hub.RelayStroke(alice, stroke), "word not chosen")

	hub.Broadcast("ROOM01", game.Event{Type: game.EventPhaseChange, Data: game.PhaseChangePayload{Phase: game.PhaseDrawing, Drawer: "alice"}})
	drain(alice)
	drain(bob)
	drain(carol)

	assert.False(t, hub.RelayStroke(bob, stroke))
	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(carol))

	require.True(t, hub.RelayStroke(alice, stroke))
	assert.Empty(t, drain(alice))
	assert.Equal(t, []string{eventDraw}, drain(bob))
	assert.Equal(t, []string{eventDraw}, drain(carol))

	hub.Broadcast("ROOM01", game.Event{Type: game.EventPhaseChange, Data: game.PhaseChangePayload{Phase: game.PhaseReveal, Drawer: "alice"}})
	assert.False(t, hub.RelayStroke(alice, stroke), "round over")
}

func TestHubTracksDrawerFromRoomState(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	alice, bob := testClient("ROOM02", "alice"), testClient("ROOM02", "bob")
	hub.Add(alice)
	hub.Add(bob)
	stroke := game.Event{Type: eventDraw, Data: json.RawMessage(`{}`)}

	hub.SendTo("ROOM02", "bob", game.Event{Type: game.EventRoomState, Data: game.RoomState{Code: "ROOM02", Phase: game.PhaseDrawing, Drawer: "alice"}})
	assert.True(t, hub.RelayStroke(alice, stroke))

	hub.Broadcast("ROOM02", game.Event{Type: game.EventRoomClosed, Data: game.RoomClosedPayload{Reason: "owner_left"}})
	assert.False(t, hub.RelayStroke(alice, stroke))
}

func TestHubRemoveClosesSendChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	alice := testClient("ROOM03", "alice")
	hub.Add(alice)
	require.Equal(t, 1, hub.Count("ROOM03"))

	hub.Remove(alice)
	hub.Remove(alice)
	assert.Equal(t, 0, hub.Count("ROOM03"))
	_, open := <-alice.send
	assert.False(t, open)
}
