package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"scribble-rush/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// eventDraw frames carry opaque stroke data from the drawer to the room.
	eventDraw = "draw"
)

type roomURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// identity reads the caller's user id and display name. Authentication
// happens upstream; the proxy forwards the result in headers, and the query
// string is accepted for browsers that cannot set websocket headers.
func identity(c *gin.Context) (string, string, error) {
	rawID := c.GetHeader("X-User-ID")
	if rawID == "" {
		rawID = c.Query("user_id")
	}
	userID, err := validateUserID(rawID)
	if err != nil {
		return "", "", err
	}
	rawName := c.GetHeader("X-User-Name")
	if rawName == "" {
		rawName = c.Query("name")
	}
	if strings.TrimSpace(rawName) == "" {
		return userID, userID, nil
	}
	name, err := validateName(rawName)
	if err != nil {
		return "", "", err
	}
	return userID, name, nil
}

func (s *Server) handleWebsocket(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	code, _ := validateRoomCode(uri.Code)
	userID, name, err := identity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.registry.State(c.Request.Context(), code, userID); err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		s.log.Error().Err(err).Str("room", code).Msg("load room for websocket failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &client{
		id:      uuid.NewString(),
		room:    code,
		userID:  userID,
		name:    name,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(s.cfg.GuessRatePerSecond), s.cfg.GuessBurst),
	}
	s.log.Info().Str("room", code).Str("user", userID).Str("conn", cl.id).Str("remote", c.Request.RemoteAddr).Msg("ws connected")
	s.hub.Add(cl)
	go s.writePump(cl)

	join := game.Command{Type: game.CommandJoinRoom, UserID: userID, DisplayName: name, ConnectionID: cl.id}
	if err := s.registry.Dispatch(context.Background(), code, join); err != nil {
		s.log.Info().Err(err).Str("room", code).Str("user", userID).Msg("ws join rejected")
		s.hub.Remove(cl)
		return
	}
	go s.readPump(cl)
}

func (s *Server) readPump(cl *client) {
	defer func() {
		s.hub.Remove(cl)
		leave := game.Command{Type: game.CommandDisconnect, UserID: cl.userID, ConnectionID: cl.id}
		_ = s.registry.Dispatch(context.Background(), cl.room, leave)
	}()
	cl.conn.SetReadLimit(maxFrameBytes)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Info().Err(err).Str("room", cl.room).Str("user", cl.userID).Msg("ws disconnected")
			}
			return
		}
		s.handleFrame(cl, payload)
	}
}

func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(cl *client, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Type == "" {
		s.hub.send(cl, transportError("bad_frame", "malformed message"))
		return
	}
	if frame.Type == eventDraw {
		if !s.hub.RelayStroke(cl, game.Event{Type: eventDraw, Data: frame.Data}) {
			s.log.Debug().Str("room", cl.room).Str("user", cl.userID).Msg("stroke from non-drawer dropped")
		}
		return
	}

	cmd := game.Command{}
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &cmd); err != nil {
			s.hub.send(cl, transportError("bad_frame", "malformed "+frame.Type+" payload"))
			return
		}
	}
	cmd.Type = game.CommandType(frame.Type)
	if cmd.Type == game.CommandDisconnect {
		s.hub.send(cl, transportError("unknown_command", "disconnect is not a client command"))
		return
	}
	if cmd.Type == game.CommandSubmitGuess && !cl.limiter.Allow() {
		s.hub.send(cl, transportError("rate_limited", "slow down"))
		return
	}
	cmd.UserID = cl.userID
	cmd.DisplayName = cl.name
	cmd.ConnectionID = cl.id
	_ = s.registry.Dispatch(context.Background(), cl.room, cmd)
}

func transportError(code, message string) game.Event {
	return game.Event{Type: game.EventError, Data: game.ErrorPayload{Kind: game.KindValidation, Code: code, Message: message}}
}
