package alarm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akarpushin/remote-alarm/internal/audio"
	domain "github.com/akarpushin/remote-alarm/internal/domain/alarm"
	"github.com/akarpushin/remote-alarm/internal/logger"
)

var (
	// ErrResourceUnavailable is returned when the alarm audio file is missing or unreadable.
	ErrResourceUnavailable = errors.New("alarm file is missing or unreadable")
	// ErrNothingToStop is returned when a delayed stop is requested while the alarm is idle.
	ErrNothingToStop = errors.New("nothing is playing")
)

// DefaultPollInterval is how often background tasks check for cancellation
// and elapsed time. It bounds worst-case cancellation latency.
const DefaultPollInterval = 200 * time.Millisecond

// Controller owns the alarm state machine. It is the sole mutator of the
// alarm status and the only component allowed to drive the audio player.
//
// At most one background timed task (loop timer or delayed-stop timer) is
// alive at any instant; operations that start a new one first cancel and
// join the previous one.
type Controller struct {
	// player is the audio backend the controller drives.
	player audio.Player
	// alarmFile is the path to the alarm audio resource.
	alarmFile string
	// pollInterval is the sleep granularity of background tasks.
	pollInterval time.Duration

	// opMu serializes the operations that retire and start background
	// tasks, so two concurrent control requests cannot interleave a
	// half-completed transition. Never held while a task sleeps.
	opMu sync.Mutex

	// mu guards the fields below. Background tasks re-acquire it to
	// observe or change state; it is never held across joins or sleeps.
	mu sync.Mutex
	// status is the current lifecycle phase.
	status domain.Status
	// volume is the output gain in [0.0, 1.0].
	volume float64
	// loopEnd is the nominal end of the current loop, for reporting only.
	// The loop timer computes its own deadline from the duration.
	loopEnd time.Time
	// bg is the ownership handle of the single background timed task.
	bg *task
	// playGen increments for every single-shot playback so a stale
	// monitor cannot clobber the status of a newer one.
	playGen uint64

	// timerCount tracks live background timed tasks.
	timerCount atomic.Int32
}

// Option customises a Controller.
type Option func(*Controller)

// WithPollInterval overrides the background task polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewController returns an idle controller at full volume.
func NewController(player audio.Player, alarmFile string, opts ...Option) *Controller {
	c := &Controller{
		player:       player,
		alarmFile:    alarmFile,
		pollInterval: DefaultPollInterval,
		status:       domain.StatusIdle,
		volume:       1.0,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetInfo returns a snapshot of the alarm state for reporting.
func (c *Controller) GetInfo(_ context.Context) *domain.Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := &domain.Info{
		Status:        c.status,
		VolumePercent: int(math.Round(c.volume * 100)),
	}

	if c.status == domain.StatusLooping && !c.loopEnd.IsZero() {
		info.Remaining = domain.FormatRemaining(time.Now(), c.loopEnd)
	}

	return info
}

// PlayOnce cold-stops any current activity and starts single-shot playback.
// A monitor goroutine returns the status to idle when playback drains.
func (c *Controller) PlayOnce(ctx context.Context) (string, error) {
	path, err := c.resolveAlarmFile(ctx)
	if err != nil {
		return "", err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.coldStop(ctx)

	c.mu.Lock()

	if err := c.player.Load(path); err != nil {
		c.mu.Unlock()
		logger.ErrorKV(ctx, "Failed to load alarm file", "path", path, "error", err)

		return "", fmt.Errorf("load alarm: %w", err)
	}

	if err := c.player.PlayOnce(c.volume); err != nil {
		c.setStatusLocked(ctx, domain.StatusIdle)
		c.mu.Unlock()
		logger.ErrorKV(ctx, "Failed to start playback", "error", err)

		return "", fmt.Errorf("start playback: %w", err)
	}

	c.setStatusLocked(ctx, domain.StatusPlaying)
	c.playGen++
	gen := c.playGen
	c.mu.Unlock()

	go c.monitorPlayback(context.WithoutCancel(ctx), gen)

	logger.Info(ctx, "Playing alarm once")

	return "Playing alarm once", nil
}

// PlayLoop cold-stops any current activity, starts repeating playback and
// spawns a loop timer that stops it once the duration elapses. Returns
// immediately; the loop runs in the background.
func (c *Controller) PlayLoop(ctx context.Context, hours float64) (string, error) {
	path, err := c.resolveAlarmFile(ctx)
	if err != nil {
		return "", err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.coldStop(ctx)

	duration := time.Duration(hours * float64(time.Hour))

	c.mu.Lock()

	if err := c.player.Load(path); err != nil {
		c.mu.Unlock()
		logger.ErrorKV(ctx, "Failed to load alarm file", "path", path, "error", err)

		return "", fmt.Errorf("load alarm: %w", err)
	}

	if err := c.player.PlayRepeating(c.volume); err != nil {
		c.setStatusLocked(ctx, domain.StatusIdle)
		c.mu.Unlock()
		logger.ErrorKV(ctx, "Failed to start looping playback", "error", err)

		return "", fmt.Errorf("start playback: %w", err)
	}

	c.loopEnd = time.Now().Add(duration)
	c.setStatusLocked(ctx, domain.StatusLooping)

	t := c.startTaskLocked(ctx)
	c.mu.Unlock()

	go c.runLoopTimer(t, duration)

	logger.InfoKV(ctx, "Started looping", "hours", hours)

	return fmt.Sprintf("Looping alarm for %g hours", hours), nil
}

// StopAll cancels any background task, force-stops playback and returns the
// alarm to idle. Idempotent: stopping an idle alarm is a successful no-op.
func (c *Controller) StopAll(ctx context.Context) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.coldStop(ctx)

	logger.Info(ctx, "Stopped all playback")

	return "Stopped", nil
}

// StopDelayed schedules a full stop after the given delay. The current
// playback keeps running until then. Fails when the alarm is already idle.
func (c *Controller) StopDelayed(ctx context.Context, delay time.Duration) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()

	if c.status == domain.StatusIdle {
		c.mu.Unlock()

		return "", ErrNothingToStop
	}

	// Retire any loop timer without touching playback; the delayed-stop
	// task takes over as the single background task.
	prev := c.bg
	c.bg = nil

	if prev != nil {
		prev.cancel()
	}

	c.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	c.mu.Lock()
	c.setStatusLocked(ctx, domain.StatusStoppingSoon)

	t := c.startTaskLocked(ctx)
	c.mu.Unlock()

	go c.runDelayedStop(t, delay)

	seconds := int(delay.Seconds())
	logger.InfoKV(ctx, "Delayed stop scheduled", "delay_seconds", seconds)

	return fmt.Sprintf("Stopping in %d seconds", seconds), nil
}

// SetVolume clamps the requested percentage to [0, 100], stores it and
// applies it to the live player output. Affects current and future playback.
func (c *Controller) SetVolume(ctx context.Context, percent int) (int, string, error) {
	clamped := min(100, max(0, percent))

	c.mu.Lock()
	c.volume = float64(clamped) / 100
	c.player.SetGain(c.volume)
	c.mu.Unlock()

	logger.InfoKV(ctx, "Volume set", "percent", clamped)

	return clamped, fmt.Sprintf("Volume set to %d%%", clamped), nil
}

// coldStop cancels and joins any background task, force-stops playback and
// resets the state to idle. Caller holds opMu.
func (c *Controller) coldStop(ctx context.Context) {
	c.mu.Lock()

	t := c.bg
	c.bg = nil

	if t != nil {
		t.cancel()
	}

	c.player.Stop()
	c.loopEnd = time.Time{}
	c.setStatusLocked(ctx, domain.StatusIdle)
	c.mu.Unlock()

	// Join outside the state lock; the task re-acquires it on exit.
	if t != nil {
		<-t.done
	}
}

// resolveAlarmFile checks the alarm resource is readable.
func (c *Controller) resolveAlarmFile(ctx context.Context) (string, error) {
	if _, err := os.Stat(c.alarmFile); err != nil {
		logger.WarnKV(ctx, "Alarm file is not available", "path", c.alarmFile, "error", err)

		return "", fmt.Errorf("%w: %s", ErrResourceUnavailable, c.alarmFile)
	}

	return c.alarmFile, nil
}

// setStatusLocked records a status transition. Caller holds mu.
func (c *Controller) setStatusLocked(ctx context.Context, status domain.Status) {
	if c.status == status {
		return
	}

	c.status = status
	logger.InfoKV(ctx, "Alarm status changed", "status", status.String())
}

// backgroundTimers reports how many background timed tasks are alive.
func (c *Controller) backgroundTimers() int {
	return int(c.timerCount.Load())
}
