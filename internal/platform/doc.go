// Package platform is the host-facing glue: restarting the agent, reading
// interface addresses and collecting runtime statistics.
package platform

// ExitRestart is the exit status used when the agent cannot restart itself.
const ExitRestart = 3
