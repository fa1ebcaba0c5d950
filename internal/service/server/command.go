package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akarpushin/remote-alarm/internal/api/web"
	"github.com/akarpushin/remote-alarm/internal/audio"
	"github.com/akarpushin/remote-alarm/internal/config"
	"github.com/akarpushin/remote-alarm/internal/logger"
	alarmsvc "github.com/akarpushin/remote-alarm/internal/service/alarm"
)

// Options controls the remote-alarm process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
	// LogLevel provides an optional log level override.
	LogLevel string
}

const (
	// readHeaderTimeout bounds slow-header attacks on the control API.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server stops.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "remote-alarm")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(ctx, settings.LogLevel, opts.LogLevel)

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	// A missing alarm file is not fatal at startup: it can be dropped in
	// place later, and every play request re-checks it.
	if _, err := os.Stat(settings.AlarmFile); err != nil {
		logger.WarnKV(ctx, "Alarm file not found, playback will fail until it exists",
			"path", settings.AlarmFile)
	} else {
		logger.InfoKV(ctx, "Alarm file resolved", "path", settings.AlarmFile)
	}

	player := audio.NewSpeakerPlayer()
	defer player.Close()

	controller := alarmsvc.NewController(player, settings.AlarmFile)

	handler := web.NewServer(controller, web.Options{
		AuthEnabled:      settings.AuthEnabled,
		Username:         settings.Username,
		Password:         settings.Password,
		DefaultLoopHours: settings.DefaultLoopHours,
		DefaultStopDelay: settings.DefaultStopDelay,
	}).Handler()

	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", listenAddress,
		"auth_enabled", settings.AuthEnabled)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Shutdown error: %v", err)
		}

		close(done)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done

	// Leave the speaker quiet on the way out.
	if _, err := controller.StopAll(ctx); err != nil {
		logger.Errorf(ctx, "Final stop failed: %v", err)
	}

	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// applyLogLevel sets the global log level from the override or config value.
func applyLogLevel(ctx context.Context, configured, override string) {
	name := configured
	if override != "" {
		name = override
	}

	if name == "" {
		return
	}

	level, ok := logger.ParseLogLevel(name)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", name)

		return
	}

	logger.SetLevel(level)
}
