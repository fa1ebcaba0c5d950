// Package alarm contains core domain types for the alarm business logic.
//
// It defines Status (the lifecycle phase of the alarm) and Info (a snapshot
// of the alarm state for reporting), plus remaining-time formatting helpers.
package alarm
