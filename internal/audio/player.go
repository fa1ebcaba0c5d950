package audio

// Player is the playback capability the alarm controller drives.
//
// All methods are synchronous and cheap enough to call while the controller
// holds its lock, except IsActive, which is intended for polling from
// monitor goroutines outside the lock.
type Player interface {
	// Load prepares the audio resource at path for playback.
	Load(path string) error
	// PlayOnce starts single-shot playback of the loaded resource at the given gain.
	PlayOnce(gain float64) error
	// PlayRepeating starts infinitely repeating playback of the loaded resource
	// at the given gain. Playback continues until Stop is called.
	PlayRepeating(gain float64) error
	// Stop halts any playback immediately. Safe to call when nothing is playing.
	Stop()
	// SetGain adjusts the output gain of current and future playback.
	// Gain is expected to be in [0.0, 1.0].
	SetGain(gain float64)
	// IsActive reports whether playback is currently producing sound.
	IsActive() bool
}
