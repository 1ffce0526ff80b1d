package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "todo.log")
	logger, closer, err := New(p, "debug")
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	logger.WithField("op", "GetTodos").Info("fetched todos")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "fetched todos")
	assert.Contains(t, string(b), "op=GetTodos")
}

func TestNewStderr(t *testing.T) {
	logger, closer, err := New("-", "warn")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, logger.Out)
	assert.NoError(t, closer.Close())
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New("-", "loud")
	assert.Error(t, err)
}
