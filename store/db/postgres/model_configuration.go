package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateModelConfiguration(ctx context.Context, create *store.ModelConfiguration) (*store.ModelConfiguration, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if create.Enabled {
		if _, err := tx.ExecContext(ctx, `UPDATE model_configuration SET enabled = FALSE WHERE enabled`); err != nil {
			return nil, errors.Wrap(err, "failed to disable model_configurations")
		}
	}
	stmt := `INSERT INTO model_configuration (name, provider, settings, enabled, created_ts, updated_ts)
		VALUES (` + placeholders(6) + `) RETURNING id`
	if err := tx.QueryRowContext(ctx, stmt, create.Name, create.Provider, create.Settings, create.Enabled, create.CreatedTs, create.UpdatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create model_configuration")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit model_configuration")
	}
	return create, nil
}

func (d *DB) ListModelConfigurations(ctx context.Context, find *store.FindModelConfiguration) ([]*store.ModelConfiguration, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Enabled != nil {
		where, args = append(where, "enabled = "+placeholder(len(args)+1)), append(args, *find.Enabled)
	}

	query := `SELECT id, name, provider, settings, enabled, created_ts, updated_ts FROM model_configuration
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list model_configurations")
	}
	defer rows.Close()

	list := []*store.ModelConfiguration{}
	for rows.Next() {
		c := &store.ModelConfiguration{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Provider, &c.Settings, &c.Enabled, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan model_configuration")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate model_configurations")
	}
	return list, nil
}

func (d *DB) UpdateModelConfiguration(ctx context.Context, update *store.ModelConfiguration) (*store.ModelConfiguration, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if update.Enabled {
		if _, err := tx.ExecContext(ctx, `UPDATE model_configuration SET enabled = FALSE WHERE enabled AND id <> $1`, update.ID); err != nil {
			return nil, errors.Wrap(err, "failed to disable model_configurations")
		}
	}
	stmt := `UPDATE model_configuration SET name = $1, provider = $2, settings = $3, enabled = $4, updated_ts = $5
		WHERE id = $6 RETURNING created_ts`
	err = tx.QueryRowContext(ctx, stmt, update.Name, update.Provider, update.Settings, update.Enabled, update.UpdatedTs, update.ID).Scan(&update.CreatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update model_configuration")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit model_configuration")
	}
	return update, nil
}
