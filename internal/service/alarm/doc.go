// Package alarm implements the alarm controller: the state machine that
// decides what "stop", "loop" and "play once" mean when control requests
// arrive at arbitrary times and must safely interrupt or supersede
// background playback work.
//
// The controller owns at most one background timed task (a loop timer or a
// delayed-stop timer) at a time. Every operation that starts a new task
// first cancels and joins the previous one, so two timers can never race
// toward conflicting transitions.
package alarm
