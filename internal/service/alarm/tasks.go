package alarm

import (
	"context"
	"time"

	domain "github.com/akarpushin/remote-alarm/internal/domain/alarm"
	"github.com/akarpushin/remote-alarm/internal/logger"
)

// task is the ownership handle for the single background timed task.
// cancel tells the task to abandon its wait; done is closed when the task
// has fully retired.
type task struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// startTaskLocked creates a fresh task handle and installs it as the active
// background task. Caller holds mu and must have retired the previous task.
func (c *Controller) startTaskLocked(ctx context.Context) *task {
	// Detach from the request context so an early client disconnect does
	// not cancel the timer, while keeping logger attribution.
	tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t := &task{
		ctx:    tctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.bg = t

	return t
}

// runLoopTimer waits out the loop duration in poll-interval steps. On
// cancellation it exits with no side effects: whoever canceled owns the
// stop and the status transition, and joins this task before starting a new
// one. On natural expiry it force-stops playback and returns the alarm to
// idle, unless a newer transition superseded it.
func (c *Controller) runLoopTimer(t *task, duration time.Duration) {
	c.timerCount.Add(1)

	retired := false

	defer func() {
		// Self-retiring exits already decremented under the lock; all
		// other exits are joined by a canceller before a new task starts.
		if !retired {
			c.timerCount.Add(-1)
		}

		close(t.done)
	}()

	// Deadline is computed here, independently of the reported loop end.
	deadline := time.Now().Add(duration)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}
	}

	c.mu.Lock()

	if c.bg != t {
		// Superseded between the last poll and acquiring the lock.
		c.mu.Unlock()

		return
	}

	c.bg = nil
	c.player.Stop()
	c.loopEnd = time.Time{}
	c.setStatusLocked(t.ctx, domain.StatusIdle)
	c.timerCount.Add(-1)

	retired = true

	c.mu.Unlock()

	logger.Info(t.ctx, "Loop duration completed")
}

// runDelayedStop waits out the delay in poll-interval steps, aborting early
// on cancellation or if the alarm independently went idle. On natural
// timeout it performs the full stop itself.
func (c *Controller) runDelayedStop(t *task, delay time.Duration) {
	c.timerCount.Add(1)

	retired := false

	defer func() {
		if !retired {
			c.timerCount.Add(-1)
		}

		close(t.done)
	}()

	deadline := time.Now().Add(delay)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}

		if c.abandonDelayedStop(t) {
			retired = true

			return
		}
	}

	c.mu.Lock()

	if c.bg != t {
		c.mu.Unlock()

		return
	}

	c.bg = nil
	c.player.Stop()
	c.loopEnd = time.Time{}
	c.setStatusLocked(t.ctx, domain.StatusIdle)
	c.timerCount.Add(-1)

	retired = true

	c.mu.Unlock()

	logger.Info(t.ctx, "Delayed stop executed")
}

// abandonDelayedStop reports whether the delayed-stop task should exit
// because the alarm already went idle through some other path. When it
// returns true the task has been retired under the lock.
func (c *Controller) abandonDelayedStop(t *task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusIdle {
		return false
	}

	if c.bg == t {
		c.bg = nil
	}

	c.timerCount.Add(-1)

	return true
}

// monitorPlayback polls the player until single-shot playback drains, then
// returns the status to idle. The generation check guards against clobbering
// the status of any transition that happened after this playback started.
func (c *Controller) monitorPlayback(ctx context.Context, gen uint64) {
	for c.player.IsActive() {
		time.Sleep(c.pollInterval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusPlaying || c.playGen != gen {
		return
	}

	c.setStatusLocked(ctx, domain.StatusIdle)
}
