// Package server wires the remote-alarm process together: it loads
// configuration, builds the audio player and alarm controller, and runs the
// HTTP control server with graceful shutdown.
package server
