package memory

import (
	"context"
	"fmt"
)

// Log is the append-only session log a durable backend reads and writes.
type Log interface {
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
	// RecentMessages returns up to limit messages, oldest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// Durable is a Backend over the persistent session log.
type Durable struct {
	log Log
}

func NewDurable(log Log) *Durable {
	return &Durable{log: log}
}

func (d *Durable) Load(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	msgs, err := d.log.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load session log: %w", err)
	}
	return msgs, nil
}

func (d *Durable) Save(ctx context.Context, sessionID string, msgs ...Message) error {
	for _, msg := range msgs {
		if err := d.log.AppendMessage(ctx, sessionID, msg); err != nil {
			return fmt.Errorf("append session log: %w", err)
		}
	}
	return nil
}

var _ Backend = (*Durable)(nil)
