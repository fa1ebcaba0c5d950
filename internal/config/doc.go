// Package config defines the alarm server settings and provides helpers to
// load, validate and save them in YAML format.
//
// The Config type holds the HTTP listen address, the alarm audio file path,
// basic-auth credentials and the default loop/stop durations used by the
// request-handling layer.
package config
