package main

import (
	"flag"

	"scribble-rush/internal/config"
	"scribble-rush/internal/db"
	"scribble-rush/internal/logger"
)

func main() {
	filePath := flag.String("file", "words.csv", "path to theme,key,language,script,text csv")
	flag.Parse()

	envErr := config.LoadDotEnv(".env")
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load .env")
	}

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	written, err := db.LoadWordLibrary(conn, *filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("failed to load words")
	}
	log.Info().Int("translations", written).Str("file", *filePath).Msg("word library loaded")
}
