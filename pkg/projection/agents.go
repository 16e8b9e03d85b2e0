package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hive/pkg/protocol"
)

// Agents projects agent liveness. Registration creates the row;
// heartbeats and any event that proves an agent is alive (sending,
// acking, reserving, releasing) advance last_seen_at. Agents are
// never deleted: gone is computed at read time.
type Agents struct{}

// Name implements eventlog.Projector.
func (Agents) Name() string { return "agents" }

// Reset implements eventlog.Projector.
func (Agents) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM agents`); err != nil {
		return &protocol.StorageError{Op: "reset agents", Err: err}
	}
	return nil
}

// Apply implements eventlog.Projector.
func (Agents) Apply(ctx context.Context, tx *sql.Tx, e protocol.Event) error {
	switch e.Type {
	case protocol.EventAgentRegistered:
		var p protocol.AgentRegisteredPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode agent.registered", Err: err}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO agents (project_key, name, registered_at, last_seen_at, status)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (project_key, name)
			DO UPDATE SET last_seen_at = excluded.last_seen_at, status = excluded.status`,
			e.ProjectKey, p.Name, e.TS, e.TS, string(protocol.AgentActive))
		if err != nil {
			return &protocol.StorageError{Op: "project agent.registered", Err: err}
		}
		return nil

	case protocol.EventAgentHeartbeat:
		var p protocol.AgentHeartbeatPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode agent.heartbeat", Err: err}
		}
		status := p.Status
		if status != string(protocol.AgentIdle) {
			status = string(protocol.AgentActive)
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE agents SET last_seen_at = ?, status = ? WHERE project_key = ? AND name = ?`,
			e.TS, status, e.ProjectKey, p.Name)
		if err != nil {
			return &protocol.StorageError{Op: "project agent.heartbeat", Err: err}
		}
		return nil

	case protocol.EventMessageSent:
		var p protocol.MessageSentPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode message.sent", Err: err}
		}
		return touch(ctx, tx, e, p.From)

	case protocol.EventMessageAcked:
		var p protocol.MessageAckedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode message.acked", Err: err}
		}
		return touch(ctx, tx, e, p.Agent)

	case protocol.EventFileReserved:
		var p protocol.FileReservedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode file.reserved", Err: err}
		}
		return touch(ctx, tx, e, p.Agent)

	case protocol.EventFileReleased:
		var p protocol.FileReleasedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode file.released", Err: err}
		}
		return touch(ctx, tx, e, p.Agent)
	}
	return nil
}

// touch advances last_seen_at for an agent proven alive by an event.
func touch(ctx context.Context, tx *sql.Tx, e protocol.Event, name string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE agents SET last_seen_at = ? WHERE project_key = ? AND name = ?`,
		e.TS, e.ProjectKey, name)
	if err != nil {
		return &protocol.StorageError{Op: "touch agent", Err: err}
	}
	return nil
}

// ListAgents returns every registered agent with its effective status:
// agents silent past goneThreshold report as gone regardless of the
// stored status.
func ListAgents(ctx context.Context, q Querier, projectKey string, now time.Time, goneThreshold time.Duration) ([]protocol.Agent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, registered_at, last_seen_at, status
		FROM agents WHERE project_key = ? ORDER BY name`, projectKey)
	if err != nil {
		return nil, &protocol.StorageError{Op: "list agents", Err: err}
	}
	defer rows.Close()

	var agents []protocol.Agent
	for rows.Next() {
		a, err := scanAgent(rows, now, goneThreshold)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate agents", Err: err}
	}
	return agents, nil
}

// GetAgent returns one agent by exact name, with close-match
// candidates in the NotFoundError when the name is unknown.
func GetAgent(ctx context.Context, q Querier, projectKey, name string, now time.Time, goneThreshold time.Duration) (protocol.Agent, error) {
	row := q.QueryRowContext(ctx, `
		SELECT name, registered_at, last_seen_at, status
		FROM agents WHERE project_key = ? AND name = ?`, projectKey, name)

	var a protocol.Agent
	var registered, lastSeen int64
	var status string
	err := row.Scan(&a.Name, &registered, &lastSeen, &status)
	if err == sql.ErrNoRows {
		candidates, _ := similarAgentNames(ctx, q, projectKey, name)
		return protocol.Agent{}, &protocol.NotFoundError{Kind: "agent", Ref: name, Candidates: candidates}
	}
	if err != nil {
		return protocol.Agent{}, &protocol.StorageError{Op: "get agent", Err: err}
	}
	a.RegisteredAt = time.UnixMilli(registered)
	a.LastSeenAt = time.UnixMilli(lastSeen)
	a.Status = effectiveStatus(protocol.AgentStatus(status), a.LastSeenAt, now, goneThreshold)
	return a, nil
}

// similarAgentNames returns registered names sharing a prefix or
// substring with ref, for self-correcting not-found errors.
func similarAgentNames(ctx context.Context, q Querier, projectKey, ref string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM agents
		WHERE project_key = ? AND (name LIKE ? OR ? LIKE '%' || name || '%')
		ORDER BY name LIMIT 3`,
		projectKey, fmt.Sprintf("%%%s%%", ref), ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// scanAgent reads one agents row and computes effective status.
func scanAgent(rows *sql.Rows, now time.Time, goneThreshold time.Duration) (protocol.Agent, error) {
	var a protocol.Agent
	var registered, lastSeen int64
	var status string
	if err := rows.Scan(&a.Name, &registered, &lastSeen, &status); err != nil {
		return protocol.Agent{}, &protocol.StorageError{Op: "scan agent", Err: err}
	}
	a.RegisteredAt = time.UnixMilli(registered)
	a.LastSeenAt = time.UnixMilli(lastSeen)
	a.Status = effectiveStatus(protocol.AgentStatus(status), a.LastSeenAt, now, goneThreshold)
	return a, nil
}

// effectiveStatus downgrades a silent agent to gone. Stored status is
// never rewritten; the absence threshold is evaluated lazily here,
// mirroring reservation expiry.
func effectiveStatus(stored protocol.AgentStatus, lastSeen, now time.Time, goneThreshold time.Duration) protocol.AgentStatus {
	if goneThreshold > 0 && now.Sub(lastSeen) > goneThreshold {
		return protocol.AgentGone
	}
	return stored
}
