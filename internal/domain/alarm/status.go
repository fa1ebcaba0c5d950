package alarm

import (
	"fmt"
	"time"
)

// Status is the lifecycle phase of the alarm.
type Status int

const (
	// StatusIdle means no playback and no pending background work.
	StatusIdle Status = iota
	// StatusPlaying means a single-shot playback is in progress.
	StatusPlaying
	// StatusLooping means repeating playback is running under a loop timer.
	StatusLooping
	// StatusStoppingSoon means a delayed stop has been scheduled.
	StatusStoppingSoon
)

// String returns the status name as reported to clients.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusLooping:
		return "looping"
	case StatusStoppingSoon:
		return "stopping_soon"
	default:
		return "unknown"
	}
}

// Info is a point-in-time snapshot of the alarm state for reporting.
type Info struct {
	// Status is the lifecycle phase at snapshot time.
	Status Status
	// VolumePercent is the output volume as an integer percentage.
	VolumePercent int
	// Remaining is the human-readable time left in the current loop.
	// Empty unless the alarm is looping.
	Remaining string
}

// RemainingEndingSentinel is reported when a loop is past its nominal end
// but the loop timer has not yet fired.
const RemainingEndingSentinel = "ending..."

// FormatRemaining renders the time left until end as "2h 13m 5s".
// Returns the ending sentinel when end is not after now.
func FormatRemaining(now, end time.Time) string {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return RemainingEndingSentinel
	}

	total := int(remaining.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
