package obs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	fallback := newLogger(&buf, "json", "bogus")
	fallback.Debug().Msg("debug")
	fallback.Info().Msg("info")
	require.NotContains(t, buf.String(), `"debug"`)
	require.Contains(t, buf.String(), `"info"`)
}
