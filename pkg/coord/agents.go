package coord

import (
	"context"
	"database/sql"
	"strings"

	"hive/pkg/projection"
	"hive/pkg/protocol"
)

// Register records an agent under a unique name. Re-registering an
// existing name is not an error: it refreshes the agent's liveness,
// which is what a restarted worker process needs.
func (c *Coordinator) Register(ctx context.Context, name string) error {
	if err := validateAgentName(name); err != nil {
		return err
	}
	_, err := c.log.Append(ctx, protocol.EventAgentRegistered,
		protocol.AgentRegisteredPayload{Name: name})
	return err
}

// Heartbeat advances an agent's last-seen time. Status may be "idle"
// to park an agent without it going gone; anything else records
// active. Unknown agents fail with close-match candidates.
func (c *Coordinator) Heartbeat(ctx context.Context, name, status string) error {
	if err := validateAgentName(name); err != nil {
		return err
	}
	check := func(ctx context.Context, tx *sql.Tx) error {
		_, err := projection.GetAgent(ctx, tx, c.log.ProjectKey(), name, c.clock(), 0)
		return err
	}
	_, err := c.log.AppendCheck(ctx, protocol.EventAgentHeartbeat,
		protocol.AgentHeartbeatPayload{Name: name, Status: status}, check)
	return err
}

// Agents lists every registered agent with its effective status at
// the current clock reading.
func (c *Coordinator) Agents(ctx context.Context) ([]protocol.Agent, error) {
	return projection.ListAgents(ctx, c.log.Store().DB, c.log.ProjectKey(), c.clock(), c.goneThreshold)
}

// Agent returns one agent by name.
func (c *Coordinator) Agent(ctx context.Context, name string) (protocol.Agent, error) {
	return projection.GetAgent(ctx, c.log.Store().DB, c.log.ProjectKey(), name, c.clock(), c.goneThreshold)
}

// validateAgentName rejects empty or whitespace-bearing names before
// anything touches the log.
func validateAgentName(name string) error {
	if name == "" {
		return &protocol.ValidationError{Field: "agent name", Reason: "empty"}
	}
	if strings.ContainsAny(name, " \t\n") {
		return &protocol.ValidationError{Field: "agent name", Reason: "contains whitespace"}
	}
	if len(name) > 64 {
		return &protocol.ValidationError{Field: "agent name", Reason: "longer than 64 characters"}
	}
	return nil
}
