package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateGlobalMemory(ctx context.Context, create *store.GlobalMemory) (*store.GlobalMemory, error) {
	stmt := `INSERT INTO global_memory (content, created_ts, updated_ts) VALUES ($1, $2, $3) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, create.Content, create.CreatedTs, create.UpdatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create global_memory")
	}
	return create, nil
}

func (d *DB) ListGlobalMemories(ctx context.Context, find *store.FindGlobalMemory) ([]*store.GlobalMemory, error) {
	query := `SELECT id, content, created_ts, updated_ts FROM global_memory`
	args := []any{}
	if find.ID != nil {
		query += ` WHERE id = $1`
		args = append(args, *find.ID)
	}
	query += ` ORDER BY updated_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list global_memories")
	}
	defer rows.Close()

	list := []*store.GlobalMemory{}
	for rows.Next() {
		m := &store.GlobalMemory{}
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedTs, &m.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan global_memory")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate global_memories")
	}
	return list, nil
}

func (d *DB) UpdateGlobalMemory(ctx context.Context, update *store.UpdateGlobalMemory) (*store.GlobalMemory, error) {
	stmt := `UPDATE global_memory SET content = $1, updated_ts = $2 WHERE id = $3 RETURNING id, content, created_ts, updated_ts`
	m := &store.GlobalMemory{}
	err := d.db.QueryRowContext(ctx, stmt, update.Content, update.UpdatedTs, update.ID).Scan(&m.ID, &m.Content, &m.CreatedTs, &m.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update global_memory")
	}
	return m, nil
}

func (d *DB) DeleteGlobalMemory(ctx context.Context, delete *store.DeleteGlobalMemory) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM global_memory WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete global_memory")
	}
	return nil
}
