package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	LogLevel                 string
	AllowedOrigins           []string
	SelectDrawerSeconds      int
	ChooseWordSeconds        int
	DrawDurationSeconds      int
	RevealDurationSeconds    int
	IntervalSeconds          int
	FinishLobbySeconds       int
	TargetPoints             int
	MaxPointsPerRound        int
	EntryPoints              int
	VoiceCost                int
	MaxPlayers               int
	StartingCoins            int
	GuessRatePerSecond       float64
	GuessBurst               int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		LogLevel:                 "info",
		AllowedOrigins:           []string{"*"},
		SelectDrawerSeconds:      5,
		ChooseWordSeconds:        10,
		DrawDurationSeconds:      80,
		RevealDurationSeconds:    7,
		IntervalSeconds:          4,
		FinishLobbySeconds:       5,
		TargetPoints:             50,
		MaxPointsPerRound:        10,
		EntryPoints:              0,
		VoiceCost:                100,
		MaxPlayers:               12,
		StartingCoins:            1000,
		GuessRatePerSecond:       2,
		GuessBurst:               4,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	positiveInt("SELECT_DRAWER_SECONDS", &cfg.SelectDrawerSeconds)
	positiveInt("CHOOSE_WORD_SECONDS", &cfg.ChooseWordSeconds)
	positiveInt("DRAW_SECONDS", &cfg.DrawDurationSeconds)
	positiveInt("REVEAL_SECONDS", &cfg.RevealDurationSeconds)
	positiveInt("INTERVAL_SECONDS", &cfg.IntervalSeconds)
	positiveInt("FINISH_LOBBY_SECONDS", &cfg.FinishLobbySeconds)
	positiveInt("TARGET_POINTS", &cfg.TargetPoints)
	positiveInt("MAX_POINTS_PER_ROUND", &cfg.MaxPointsPerRound)
	if raw := os.Getenv("ENTRY_POINTS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.EntryPoints = value
		}
	}
	positiveInt("VOICE_COST", &cfg.VoiceCost)
	positiveInt("MAX_PLAYERS", &cfg.MaxPlayers)
	positiveInt("STARTING_COINS", &cfg.StartingCoins)
	if raw := os.Getenv("GUESS_RATE_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.GuessRatePerSecond = value
		}
	}
	positiveInt("GUESS_BURST", &cfg.GuessBurst)
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	return cfg
}

func positiveInt(key string, dest *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
