package coord

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"hive/pkg/projection"
	"hive/pkg/protocol"
)

// Send records a message from one agent to one or more others. Sender
// and every recipient must be registered; an unknown recipient fails
// with close-match candidates before anything is written.
func (c *Coordinator) Send(ctx context.Context, from string, to []string, subject, body string) (protocol.Message, error) {
	if err := validateAgentName(from); err != nil {
		return protocol.Message{}, err
	}
	if len(to) == 0 {
		return protocol.Message{}, &protocol.ValidationError{Field: "recipients", Reason: "empty"}
	}
	for _, r := range to {
		if err := validateAgentName(r); err != nil {
			return protocol.Message{}, err
		}
	}
	if body == "" {
		return protocol.Message{}, &protocol.ValidationError{Field: "body", Reason: "empty"}
	}

	check := func(ctx context.Context, tx *sql.Tx) error {
		key := c.log.ProjectKey()
		now := c.clock()
		if _, err := projection.GetAgent(ctx, tx, key, from, now, 0); err != nil {
			return err
		}
		for _, r := range to {
			if _, err := projection.GetAgent(ctx, tx, key, r, now, 0); err != nil {
				return err
			}
		}
		return nil
	}

	payload := protocol.MessageSentPayload{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
	}
	seq, err := c.log.AppendCheck(ctx, protocol.EventMessageSent, payload, check)
	if err != nil {
		return protocol.Message{}, err
	}

	return protocol.Message{
		ID:      payload.ID,
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
		SentAt:  c.clock(),
		Seq:     seq,
	}, nil
}

// Inbox returns messages addressed to agent, newest first.
func (c *Coordinator) Inbox(ctx context.Context, agent string, opts projection.InboxOpts) ([]protocol.Message, error) {
	if err := validateAgentName(agent); err != nil {
		return nil, err
	}
	if _, err := c.Agent(ctx, agent); err != nil {
		return nil, err
	}
	return projection.Inbox(ctx, c.log.Store().DB, c.log.ProjectKey(), agent, opts)
}

// Ack marks a message read by agent. Acking twice is a no-op success.
func (c *Coordinator) Ack(ctx context.Context, agent, messageID string) error {
	if err := validateAgentName(agent); err != nil {
		return err
	}
	if messageID == "" {
		return &protocol.ValidationError{Field: "message id", Reason: "empty"}
	}

	check := func(ctx context.Context, tx *sql.Tx) error {
		key := c.log.ProjectKey()
		if _, err := projection.GetAgent(ctx, tx, key, agent, c.clock(), 0); err != nil {
			return err
		}
		_, err := projection.GetMessage(ctx, tx, key, messageID)
		return err
	}

	_, err := c.log.AppendCheck(ctx, protocol.EventMessageAcked,
		protocol.MessageAckedPayload{ID: messageID, Agent: agent}, check)
	return err
}
