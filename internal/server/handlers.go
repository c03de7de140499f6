package server

import (
	"errors"
	"net/http"

	"scribble-rush/internal/game"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Code              string `json:"code" binding:"omitempty,roomcode"`
	GameMode          string `json:"gameMode" binding:"omitempty,oneof=ffa team"`
	TargetPoints      int    `json:"targetPoints" binding:"omitempty,min=1,max=1000"`
	MaxPointsPerRound int    `json:"maxPointsPerRound" binding:"omitempty,min=1,max=100"`
	EntryPoints       int    `json:"entryPoints" binding:"omitempty,min=0,max=100000"`
	DrawSeconds       int    `json:"drawSeconds" binding:"omitempty,min=15,max=300"`
	MaxPlayers        int    `json:"maxPlayers" binding:"omitempty,min=2,max=50"`
	ThemeID           uint   `json:"themeId"`
	Language          string `json:"language" binding:"omitempty,max=32"`
	Script            string `json:"script" binding:"omitempty,max=32"`
}

var createRoomMessages = bindMessages{
	"Code":              {"roomcode": "room code must be 4 to 12 letters or digits"},
	"GameMode":          {"oneof": "gameMode must be ffa or team"},
	"TargetPoints":      {"min": "targetPoints must be at least 1", "max": "targetPoints must be at most 1000"},
	"MaxPointsPerRound": {"min": "maxPointsPerRound must be at least 1", "max": "maxPointsPerRound must be at most 100"},
	"EntryPoints":       {"min": "entryPoints cannot be negative", "max": "entryPoints must be at most 100000"},
	"DrawSeconds":       {"min": "drawSeconds must be at least 15", "max": "drawSeconds must be at most 300"},
	"MaxPlayers":        {"min": "maxPlayers must be at least 2", "max": "maxPlayers must be at most 50"},
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	userID, name, err := identity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	var req createRoomRequest
	if !bindJSON(c, &req, createRoomMessages, "invalid room settings") {
		return
	}
	code, _ := validateRoomCode(req.Code)
	spec := game.RoomSpec{
		Code:              code,
		OwnerID:           userID,
		OwnerName:         name,
		Mode:              game.GameMode(req.GameMode),
		TargetPoints:      req.TargetPoints,
		MaxPointsPerRound: req.MaxPointsPerRound,
		EntryPoints:       req.EntryPoints,
		DrawSeconds:       req.DrawSeconds,
		MaxPlayers:        req.MaxPlayers,
		ThemeID:           req.ThemeID,
		Language:          req.Language,
		Script:            req.Script,
	}
	room, err := s.registry.CreateRoom(c.Request.Context(), spec)
	if err != nil {
		if errors.Is(err, game.ErrRoomExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "room code is taken"})
			return
		}
		var cmdErr *game.CommandError
		if errors.As(err, &cmdErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": cmdErr.Message})
			return
		}
		s.log.Error().Err(err).Str("user", userID).Msg("create room failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	state, err := s.registry.State(c.Request.Context(), room.Code, userID)
	if err != nil {
		s.log.Error().Err(err).Str("room", room.Code).Msg("load created room failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) handleRoomState(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	code, _ := validateRoomCode(uri.Code)
	userID, _, err := identity(c)
	if err != nil {
		userID = ""
	}
	state, err := s.registry.State(c.Request.Context(), code, userID)
	if errors.Is(err, game.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("room", code).Msg("load room failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleThemes(c *gin.Context) {
	if s.themes == nil {
		c.JSON(http.StatusOK, gin.H{"themes": []game.ThemeInfo{}})
		return
	}
	themes, err := s.themes.Themes(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list themes failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load themes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"themes": themes})
}
