package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateSessionMemory(ctx context.Context, create *store.SessionMemory) (*store.SessionMemory, error) {
	stmt := `INSERT INTO session_memory (session_id, type, content, created_ts) VALUES (` + placeholders(4) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, create.SessionID, create.Type, create.Content, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create session_memory")
	}
	return create, nil
}

func (d *DB) ListSessionMemories(ctx context.Context, find *store.FindSessionMemory) ([]*store.SessionMemory, error) {
	where, args := []string{"session_id = $1"}, []any{find.SessionID}
	if find.BeforeTs != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, *find.BeforeTs)
	}

	query := `SELECT id, session_id, type, content, created_ts FROM session_memory
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list session_memories")
	}
	defer rows.Close()

	list := []*store.SessionMemory{}
	for rows.Next() {
		m := &store.SessionMemory{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Type, &m.Content, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan session_memory")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate session_memories")
	}
	return list, nil
}
