package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"hive/pkg/protocol"
)

// Messages projects the inbox. A sent message is immutable except for
// its read_by set, which grows via message.acked.
type Messages struct{}

// Name implements eventlog.Projector.
func (Messages) Name() string { return "messages" }

// Reset implements eventlog.Projector.
func (Messages) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return &protocol.StorageError{Op: "reset messages", Err: err}
	}
	return nil
}

// Apply implements eventlog.Projector.
func (Messages) Apply(ctx context.Context, tx *sql.Tx, e protocol.Event) error {
	switch e.Type {
	case protocol.EventMessageSent:
		var p protocol.MessageSentPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode message.sent", Err: err}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, project_key, sender, recipients, subject, body, sent_at, seq, read_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, '[]')
			ON CONFLICT (id) DO NOTHING`,
			p.ID, e.ProjectKey, p.From, jsonList(p.To), p.Subject, p.Body, e.TS, e.Seq)
		if err != nil {
			return &protocol.StorageError{Op: "project message.sent", Err: err}
		}
		return nil

	case protocol.EventMessageAcked:
		var p protocol.MessageAckedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &protocol.StorageError{Op: "decode message.acked", Err: err}
		}
		var readBy string
		err := tx.QueryRowContext(ctx,
			`SELECT read_by FROM messages WHERE id = ?`, p.ID).Scan(&readBy)
		if err == sql.ErrNoRows {
			return nil // ack for an unknown message folds to nothing
		}
		if err != nil {
			return &protocol.StorageError{Op: "read message read_by", Err: err}
		}
		readers := listFromJSON(readBy)
		for _, r := range readers {
			if r == p.Agent {
				return nil
			}
		}
		readers = append(readers, p.Agent)
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET read_by = ? WHERE id = ?`, jsonList(readers), p.ID); err != nil {
			return &protocol.StorageError{Op: "project message.acked", Err: err}
		}
		return nil
	}
	return nil
}

// InboxOpts filters an inbox query.
type InboxOpts struct {
	UnreadOnly bool
	Limit      int // 0 = no cap
}

// Inbox returns messages addressed to agent, newest first by sent_at
// and tie-broken by sequence. Limit counts delivered messages, so it
// is applied after the recipient and unread filters: an unread message
// is never hidden by newer already-read ones.
func Inbox(ctx context.Context, q Querier, projectKey, agent string, opts InboxOpts) ([]protocol.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, sender, recipients, subject, body, sent_at, seq, read_by
		FROM messages
		WHERE project_key = ? AND recipients LIKE ?
		ORDER BY sent_at DESC, seq DESC`,
		projectKey, `%"`+agent+`"%`)
	if err != nil {
		return nil, &protocol.StorageError{Op: "inbox query", Err: err}
	}
	defer rows.Close()

	var msgs []protocol.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		// The LIKE filter is a coarse index probe; confirm membership
		// against the decoded recipient list.
		if !contains(m.To, agent) {
			continue
		}
		if opts.UnreadOnly && m.ReadByAgent(agent) {
			continue
		}
		msgs = append(msgs, m)
		if opts.Limit > 0 && len(msgs) == opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "iterate inbox", Err: err}
	}
	return msgs, nil
}

// GetMessage returns one message by id.
func GetMessage(ctx context.Context, q Querier, projectKey, id string) (protocol.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, sender, recipients, subject, body, sent_at, seq, read_by
		FROM messages WHERE project_key = ? AND id = ?`, projectKey, id)
	if err != nil {
		return protocol.Message{}, &protocol.StorageError{Op: "get message", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return protocol.Message{}, &protocol.StorageError{Op: "get message", Err: err}
		}
		return protocol.Message{}, &protocol.NotFoundError{Kind: "message", Ref: id}
	}
	return scanMessage(rows)
}

// scanMessage reads one messages row.
func scanMessage(rows *sql.Rows) (protocol.Message, error) {
	var m protocol.Message
	var recipients, readBy string
	var sentAt int64
	if err := rows.Scan(&m.ID, &m.From, &recipients, &m.Subject, &m.Body, &sentAt, &m.Seq, &readBy); err != nil {
		return protocol.Message{}, &protocol.StorageError{Op: "scan message", Err: err}
	}
	m.To = listFromJSON(recipients)
	m.ReadBy = listFromJSON(readBy)
	m.SentAt = time.UnixMilli(sentAt)
	return m, nil
}

func contains(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}
