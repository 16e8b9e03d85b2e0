// Package reservation grants exclusive, time-bounded editing claims on
// file paths to agents. The state machine per path is
// Free -> Reserved(holder, expiry) -> Free, with same-holder renewal.
// Conflict checks run inside the append transaction (check-and-set on
// the event log), so two agents racing for one path cannot both win.
//
// Expiry is evaluated lazily at conflict-check time rather than by a
// background sweep: a technically-expired reservation keeps blocking
// reads until the next reserve attempt re-evaluates it. That bounded
// staleness is accepted in exchange for having no scheduler thread.
package reservation

import (
	"context"
	"database/sql"
	"time"

	"hive/pkg/eventlog"
	"hive/pkg/projection"
	"hive/pkg/protocol"
)

// Manager is the reservation API over one project's event log.
type Manager struct {
	log        *eventlog.Log
	clock      eventlog.Clock
	defaultTTL time.Duration
}

// NewManager creates a Manager. A nil clock defaults to time.Now; a
// zero defaultTTL falls back to protocol.DefaultReservationTTL.
func NewManager(log *eventlog.Log, clock eventlog.Clock, defaultTTL time.Duration) *Manager {
	if clock == nil {
		clock = time.Now
	}
	if defaultTTL <= 0 {
		defaultTTL = protocol.DefaultReservationTTL
	}
	return &Manager{log: log, clock: clock, defaultTTL: defaultTTL}
}

// Reserve claims path for agent until now+ttl. It fails fast with
// ConflictError naming the current holder when a different agent
// holds an active claim; it renews when agent already holds the path;
// and it auto-clears a lapsed claim. No caller ever waits on another
// agent's future action.
func (m *Manager) Reserve(ctx context.Context, path, agent string, ttl time.Duration) (protocol.Reservation, error) {
	if path == "" {
		return protocol.Reservation{}, &protocol.ValidationError{Field: "file path", Reason: "empty"}
	}
	if agent == "" {
		return protocol.Reservation{}, &protocol.ValidationError{Field: "agent", Reason: "empty"}
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := m.clock()
	expires := now.Add(ttl)

	check := func(ctx context.Context, tx *sql.Tx) error {
		current, found, err := projection.LookupReservation(ctx, tx, m.log.ProjectKey(), path)
		if err != nil {
			return err
		}
		if found && current.Active(now) && current.Holder != agent {
			return &protocol.ConflictError{
				FilePath:  path,
				Holder:    current.Holder,
				ExpiresAt: current.ExpiresAt,
			}
		}
		// Free, expired, released, or held by the same agent
		// (renewal): the append goes through.
		return nil
	}

	payload := protocol.FileReservedPayload{Path: path, Agent: agent, ExpiresAt: expires.UnixMilli()}
	if _, err := m.log.AppendCheck(ctx, protocol.EventFileReserved, payload, check); err != nil {
		return protocol.Reservation{}, err
	}

	return protocol.Reservation{
		FilePath:   path,
		Holder:     agent,
		AcquiredAt: now,
		ExpiresAt:  expires,
	}, nil
}

// Release ends agent's claim on path. Releasing a path with no active
// reservation is an idempotent success; releasing another agent's
// claim is NotHolderError.
func (m *Manager) Release(ctx context.Context, path, agent string) error {
	if path == "" {
		return &protocol.ValidationError{Field: "file path", Reason: "empty"}
	}
	if agent == "" {
		return &protocol.ValidationError{Field: "agent", Reason: "empty"}
	}

	now := m.clock()
	free := false

	check := func(ctx context.Context, tx *sql.Tx) error {
		current, found, err := projection.LookupReservation(ctx, tx, m.log.ProjectKey(), path)
		if err != nil {
			return err
		}
		if !found || !current.Active(now) {
			free = true
			return errAlreadyFree
		}
		if current.Holder != agent {
			return &protocol.NotHolderError{FilePath: path, Holder: current.Holder, Agent: agent}
		}
		return nil
	}

	payload := protocol.FileReleasedPayload{Path: path, Agent: agent}
	_, err := m.log.AppendCheck(ctx, protocol.EventFileReleased, payload, check)
	if err != nil && free {
		// Nothing to release; no event is recorded.
		return nil
	}
	return err
}

// Holder returns the active reservation on path at now, if any.
func (m *Manager) Holder(ctx context.Context, path string) (protocol.Reservation, bool, error) {
	current, found, err := projection.LookupReservation(ctx, m.log.Store().DB, m.log.ProjectKey(), path)
	if err != nil {
		return protocol.Reservation{}, false, err
	}
	if !found || !current.Active(m.clock()) {
		return protocol.Reservation{}, false, nil
	}
	return current, true, nil
}

// Active lists every reservation still active at now.
func (m *Manager) Active(ctx context.Context) ([]protocol.Reservation, error) {
	return projection.ActiveReservations(ctx, m.log.Store().DB, m.log.ProjectKey(), m.clock())
}

// errAlreadyFree aborts the append when a release finds nothing to
// release. Never escapes Release.
var errAlreadyFree = &protocol.ValidationError{Field: "release", Reason: "path already free"}
