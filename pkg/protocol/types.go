// Package protocol defines the shared types, event tags, and error
// taxonomy for the hive coordination substrate. Every component —
// event log, projections, reservations, memory — speaks these types.
package protocol

import "time"

// Event is an immutable coordination fact. Events are the only way
// state changes; Seq is assigned by the store, never by the caller,
// and is strictly increasing within a project key.
type Event struct {
	Seq        int64  `json:"seq"`
	Type       string `json:"type"`
	ProjectKey string `json:"project_key"`
	TS         int64  `json:"ts"` // milliseconds since epoch
	Payload    []byte `json:"payload"`
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.TS)
}

// Event type tags. Projectors switch on these; unknown tags are
// ignored so old logs replay cleanly under newer code.
const (
	EventAgentRegistered = "agent.registered"
	EventAgentHeartbeat  = "agent.heartbeat"
	EventMessageSent     = "message.sent"
	EventMessageAcked    = "message.acked"
	EventFileReserved    = "file.reserved"
	EventFileReleased    = "file.released"
	EventCellCreated     = "cell.created"
	EventCellUpdated     = "cell.updated"
	EventCellClosed      = "cell.closed"
)

// AgentStatus is the effective liveness of a registered agent.
type AgentStatus string

// Agent status constants. Gone is never stored — it is computed at
// read time once an agent's silence exceeds the configured threshold.
const (
	AgentActive AgentStatus = "active"
	AgentIdle   AgentStatus = "idle"
	AgentGone   AgentStatus = "gone"
)

// Agent is a registered worker process. Agents are never hard-deleted;
// a silent agent is reported as gone.
type Agent struct {
	Name         string
	RegisteredAt time.Time
	LastSeenAt   time.Time
	Status       AgentStatus
}

// Message is a note from one agent to one or more others. ReadBy grows
// via EventMessageAcked; nothing else mutates a sent message.
type Message struct {
	ID      string
	From    string
	To      []string
	Subject string
	Body    string
	SentAt  time.Time
	Seq     int64
	ReadBy  []string
}

// ReadByAgent reports whether name has acked the message.
func (m Message) ReadByAgent(name string) bool {
	for _, r := range m.ReadBy {
		if r == name {
			return true
		}
	}
	return false
}

// Reservation is a time-bounded exclusive claim on a file path.
// At most one active (non-released, non-expired) reservation exists
// per path at any instant.
type Reservation struct {
	FilePath   string
	Holder     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
	ReleasedAt *time.Time
}

// Active reports whether the reservation still holds at now.
func (r Reservation) Active(now time.Time) bool {
	return r.ReleasedAt == nil && r.ExpiresAt.After(now)
}

// CellStatus is the lifecycle state of a task cell.
type CellStatus string

// Cell status constants.
const (
	CellOpen       CellStatus = "open"
	CellInProgress CellStatus = "in_progress"
	CellBlocked    CellStatus = "blocked"
	CellClosed     CellStatus = "closed"
)

// ValidCellStatus reports whether s is a known cell status.
func ValidCellStatus(s CellStatus) bool {
	switch s {
	case CellOpen, CellInProgress, CellBlocked, CellClosed:
		return true
	}
	return false
}

// Cell is a task unit. Cells form a forest: an epic is a cell that
// other cells name as Parent. An epic closes only when all children
// are closed, or when explicitly force-closed.
type Cell struct {
	ID          string
	Title       string
	Description string
	Status      CellStatus
	Parent      string // empty for roots/epics
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// Memory is a stored learning with lexical and vector indexing and a
// confidence that decays with time since last validation.
type Memory struct {
	ID              string
	Collection      string
	Content         string
	Metadata        map[string]string
	Tags            []string
	Embedding       []float32
	Confidence      float64
	CreatedAt       time.Time
	LastValidatedAt time.Time
}
