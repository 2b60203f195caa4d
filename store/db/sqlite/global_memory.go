package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateGlobalMemory(ctx context.Context, create *store.GlobalMemory) (*store.GlobalMemory, error) {
	result, err := d.db.ExecContext(ctx, `INSERT INTO global_memory (content, created_ts, updated_ts) VALUES (?, ?, ?)`,
		create.Content, create.CreatedTs, create.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create global_memory")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read global_memory id")
	}
	create.ID = id
	return create, nil
}

func (d *DB) ListGlobalMemories(ctx context.Context, find *store.FindGlobalMemory) ([]*store.GlobalMemory, error) {
	query := `SELECT id, content, created_ts, updated_ts FROM global_memory`
	args := []any{}
	if find.ID != nil {
		query += ` WHERE id = ?`
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
	result, err := d.db.ExecContext(ctx, `UPDATE global_memory SET content = ?, updated_ts = ? WHERE id = ?`,
		update.Content, update.UpdatedTs, update.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update global_memory")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}

	m := &store.GlobalMemory{}
	err = d.db.QueryRowContext(ctx, `SELECT id, content, created_ts, updated_ts FROM global_memory WHERE id = ?`, update.ID).
		Scan(&m.ID, &m.Content, &m.CreatedTs, &m.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load global_memory")
	}
	return m, nil
}

func (d *DB) DeleteGlobalMemory(ctx context.Context, delete *store.DeleteGlobalMemory) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM global_memory WHERE id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete global_memory")
	}
	return nil
}
