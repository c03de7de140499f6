package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribble-rush/internal/config"
	"scribble-rush/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

const migrationsDir = "db/migrations"

func main() {
	envErr := config.LoadDotEnv(".env")
	log := logger.Setup(config.Load().LogLevel)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load .env")
	}

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: migrate up|down|create -name <name>")
	}
	switch os.Args[1] {
	case "up":
		m := mustMigrator(log)
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		log.Info().Msg("database migrations applied")
	case "down":
		flags := flag.NewFlagSet("down", flag.ExitOnError)
		steps := flags.Int("steps", 1, "number of migrations to roll back")
		_ = flags.Parse(os.Args[2:])
		m := mustMigrator(log)
		if err := m.Steps(-*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Int("steps", *steps).Msg("migrations rolled back")
	case "create":
		flags := flag.NewFlagSet("create", flag.ExitOnError)
		name := flags.String("name", "", "migration name")
		_ = flags.Parse(os.Args[2:])
		upPath, downPath, err := createMigration(migrationsDir, *name, time.Now().UTC())
		if err != nil {
			log.Fatal().Err(err).Msg("create migration failed")
		}
		log.Info().Str("up", upPath).Str("down", downPath).Msg("migration created")
	default:
		log.Fatal().Str("command", os.Args[1]).Msg("unknown command")
	}
}

func mustMigrator(log zerolog.Logger) *migrate.Migrate {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}
	m, err := migrate.New("file://"+migrationsDir, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("migration setup failed")
	}
	return m
}

func createMigration(dir, name string, now time.Time) (string, string, error) {
	if name == "" {
		return "", "", errors.New("migration name is required")
	}
	if strings.ContainsAny(name, " ") {
		return "", "", errors.New("migration name must not contain spaces")
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102150405"), name)
	upPath := filepath.Join(dir, base+".up.sql")
	downPath := filepath.Join(dir, base+".down.sql")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations dir: %w", err)
	}
	if err := writeFile(upPath, "-- up migration\n"); err != nil {
		return "", "", err
	}
	if err := writeFile(downPath, "-- down migration\n"); err != nil {
		return "", "", err
	}
	return upPath, downPath, nil
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
