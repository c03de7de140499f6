package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "warn")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	logger.Warn().Str("room", "ABC123").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "ABC123")

	assert.Equal(t, zerolog.InfoLevel, setup(&buf, "loud").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, setup(&buf, "").GetLevel())
}
