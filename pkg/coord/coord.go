// Package coord exposes the coordination API over one project's event
// log: agent registration and liveness, inter-agent messaging, and the
// task cell forest. Every mutation is an event append; every read goes
// through the projections.
package coord

import (
	"time"

	"hive/pkg/eventlog"
	"hive/pkg/protocol"
)

// Coordinator is the coordination API for one project.
type Coordinator struct {
	log           *eventlog.Log
	clock         eventlog.Clock
	goneThreshold time.Duration
}

// New creates a Coordinator. A nil clock defaults to time.Now; a zero
// goneThreshold falls back to protocol.DefaultGoneThreshold.
func New(log *eventlog.Log, clock eventlog.Clock, goneThreshold time.Duration) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	if goneThreshold <= 0 {
		goneThreshold = protocol.DefaultGoneThreshold
	}
	return &Coordinator{log: log, clock: clock, goneThreshold: goneThreshold}
}

// Log returns the underlying event log.
func (c *Coordinator) Log() *eventlog.Log { return c.log }
