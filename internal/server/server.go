package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"scribble-rush/internal/config"
	"scribble-rush/internal/game"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ThemeLister reports the themes rooms can pick words from.
type ThemeLister interface {
	Themes(ctx context.Context) ([]game.ThemeInfo, error)
}

type Server struct {
	registry *game.Registry
	hub      *Hub
	themes   ThemeLister
	cfg      config.Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// New wires the HTTP surface. hub must be the Broadcaster the registry was
// built with. themes may be nil.
func New(registry *game.Registry, hub *Hub, themes ThemeLister, cfg config.Config, log zerolog.Logger) *Server {
	s := &Server{
		registry: registry,
		hub:      hub,
		themes:   themes,
		cfg:      cfg,
		log:      log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.registry.Len()})
	})
	api := router.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:code", s.handleRoomState)
	api.GET("/themes", s.handleThemes)
	router.GET("/ws/rooms/:code", s.handleWebsocket)
	return router
}

func (s *Server) allowAllOrigins() bool {
	return len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*")
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "X-User-ID", "X-User-Name"},
		MaxAge:       12 * time.Hour,
	}
	if s.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		event := s.log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
