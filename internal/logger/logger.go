package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console logger at the given level as the global logger
// and returns it. Unknown levels fall back to info.
func Setup(level string) zerolog.Logger {
	return setup(os.Stdout, level)
}

func setup(out io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	logger := zerolog.New(output).Level(parsed).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
