package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validation and default filling.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	require.Error(t, Validate(nil))

	// Missing alarm file.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad listen address.
	cfg = &Config{
		ListenAddress: "bad:address",
		AlarmFile:     "alarm.mp3",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Auth enabled without credentials.
	cfg = &Config{
		AlarmFile:   "alarm.mp3",
		AuthEnabled: true,
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults filled.
	cfg = &Config{
		AlarmFile: "alarm.mp3",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.InEpsilon(t, DefaultLoopHours, cfg.DefaultLoopHours, 0.0001)
	require.Equal(t, DefaultStopDelay, cfg.DefaultStopDelay)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		ListenAddress:    "127.0.0.1:5000",
		AlarmFile:        "sounds/alarm.mp3",
		AuthEnabled:      true,
		Username:         "admin",
		Password:         "secret",
		DefaultLoopHours: 2,
		DefaultStopDelay: 30 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, loaded.ListenAddress)
	require.Equal(t, cfg.AlarmFile, loaded.AlarmFile)
	require.Equal(t, cfg.Username, loaded.Username)
	require.Equal(t, cfg.DefaultStopDelay, loaded.DefaultStopDelay)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
