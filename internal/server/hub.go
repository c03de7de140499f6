package server

import (
	"encoding/json"
	"sync"

	"scribble-rush/internal/game"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const sendBuffer = 64

type client struct {
	id      string
	room    string
	userID  string
	name    string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// Hub fans room events out to websocket clients. It implements
// game.Broadcaster and never calls back into the registry, so it is safe to
// use while a session lock is held.
type Hub struct {
	mu     sync.Mutex
	groups map[string]map[*client]struct{}
	// drawers holds the user allowed to send strokes, per room in the
	// drawing phase, as last announced by the engine.
	drawers map[string]string
	log     zerolog.Logger
}

var _ game.Broadcaster = (*Hub)(nil)

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*client]struct{}),
		drawers: make(map[string]string),
		log:     log,
	}
}

func (h *Hub) Add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[c.room]
	if group == nil {
		group = make(map[*client]struct{})
		h.groups[c.room] = group
	}
	group[c] = struct{}{}
}

// Remove drops the client and closes its send channel. Safe to call twice.
func (h *Hub) Remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	group := h.groups[c.room]
	if group == nil {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	close(c.send)
	if len(group) == 0 {
		delete(h.groups, c.room)
		delete(h.drawers, c.room)
	}
}

func (h *Hub) Broadcast(roomCode string, event game.Event) {
	h.deliver(roomCode, event, func(*client) bool { return true })
}

func (h *Hub) SendTo(roomCode, userID string, event game.Event) {
	h.deliver(roomCode, event, func(c *client) bool { return c.userID == userID })
}

// RelayStroke sends drawing data to everyone in the sender's room except the
// sender. It reports false and sends nothing unless the sender is the drawer
// of a round in progress.
func (h *Hub) RelayStroke(from *client, event game.Event) bool {
	h.mu.Lock()
	drawer, ok := h.drawers[from.room]
	h.mu.Unlock()
	if !ok || drawer != from.userID {
		return false
	}
	h.deliver(from.room, event, func(c *client) bool { return c != from })
	return true
}

// track follows the engine's announcements of who is drawing. Caller holds mu.
func (h *Hub) track(roomCode string, event game.Event) {
	var phase game.Phase
	var drawer string
	switch data := event.Data.(type) {
	case game.PhaseChangePayload:
		phase, drawer = data.Phase, data.Drawer
	case game.RoomState:
		phase, drawer = data.Phase, data.Drawer
	default:
		if event.Type == game.EventRoomClosed {
			delete(h.drawers, roomCode)
		}
		return
	}
	if phase == game.PhaseDrawing && drawer != "" {
		h.drawers[roomCode] = drawer
		return
	}
	delete(h.drawers, roomCode)
}

func (h *Hub) send(c *client, event game.Event) {
	h.deliver(c.room, event, func(other *client) bool { return other == c })
}

// Count returns the number of open connections in a room.
func (h *Hub) Count(roomCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[roomCode])
}

func (h *Hub) deliver(roomCode string, event game.Event, match func(*client) bool) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomCode).Str("event", event.Type).Msg("encode event failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.track(roomCode, event)
	for c := range h.groups[roomCode] {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Warn().Str("room", roomCode).Str("user", c.userID).Msg("slow client dropped")
			h.removeLocked(c)
		}
	}
}
