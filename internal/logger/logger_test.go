package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	defer l.Close()

	assert.NotNil(t, l)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "not-a-level", Console: true})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "info", l.GetZerolog().GetLevel().String())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "recallkit.log")
	l, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	log := l.GetZerolog()
	log.Info().Str("event", "started").Msg("hello")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"event":"started"`))
}

func TestComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recallkit.log")
	l, err := New(Config{Level: "info", File: path})
	require.NoError(t, err)

	log := l.Component("searcher")
	log.Info().Msg("ready")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"searcher"`))
}
