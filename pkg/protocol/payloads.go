package protocol

// Event payload documents. These are the wire format persisted in the
// events table; fields are additive-only so old logs replay under
// newer code.

// AgentRegisteredPayload accompanies EventAgentRegistered.
type AgentRegisteredPayload struct {
	Name string `json:"name"`
}

// AgentHeartbeatPayload accompanies EventAgentHeartbeat. Status is
// optional; empty means active.
type AgentHeartbeatPayload struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// MessageSentPayload accompanies EventMessageSent.
type MessageSentPayload struct {
	ID      string   `json:"id"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject,omitempty"`
	Body    string   `json:"body"`
}

// MessageAckedPayload accompanies EventMessageAcked.
type MessageAckedPayload struct {
	ID    string `json:"id"`
	Agent string `json:"agent"`
}

// FileReservedPayload accompanies EventFileReserved. A renewal by the
// current holder is a fresh event with a new expiry, not a mutation.
type FileReservedPayload struct {
	Path      string `json:"path"`
	Agent     string `json:"agent"`
	ExpiresAt int64  `json:"expires_at"` // ms epoch
}

// FileReleasedPayload accompanies EventFileReleased.
type FileReleasedPayload struct {
	Path  string `json:"path"`
	Agent string `json:"agent"`
}

// CellCreatedPayload accompanies EventCellCreated.
type CellCreatedPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Parent      string `json:"parent,omitempty"`
}

// CellUpdatedPayload accompanies EventCellUpdated. Empty fields leave
// the prior value in place.
type CellUpdatedPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CellClosedPayload accompanies EventCellClosed.
type CellClosedPayload struct {
	ID    string `json:"id"`
	Force bool   `json:"force,omitempty"`
}
