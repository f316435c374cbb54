package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umgeo/coursesync/pkg/config"
)

func TestNewWritesMainLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := &config.Config{
		Env: config.EnvProduction,
		Log: config.LogConfig{Level: "info", Format: "json", Dir: dir, MainBasename: "main"},
	}

	log, err := New(cfg)
	require.NoError(t, err)

	log.Info("run started")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "run started")
}

func TestNewWithoutLogDirStaysOnStderr(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "debug", Format: "console"}}

	log, err := New(cfg)
	require.NoError(t, err)
	log.Debug("no file sink configured")
}
