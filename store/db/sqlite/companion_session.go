package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) CreateCompanionSession(ctx context.Context, create *store.CompanionSession) (*store.CompanionSession, error) {
	fields := []string{"id", "character_id", "mode", "is_owner", "tools_enabled", "tool_names", "memory_enabled", "archived", "archive_reason", "created_ts", "last_active_ts"}
	args := []any{
		create.ID,
		create.CharacterID,
		create.Mode,
		create.IsOwner,
		create.ToolsEnabled,
		joinNames(create.ToolNames),
		create.MemoryEnabled,
		create.Archived,
		create.ArchiveReason,
		create.CreatedTs,
		create.LastActiveTs,
	}

	stmt := `INSERT INTO companion_session (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to create companion_session")
	}
	return create, nil
}

func (d *DB) ListCompanionSessions(ctx context.Context, find *store.FindCompanionSession) ([]*store.CompanionSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.CharacterID != nil {
		where, args = append(where, "character_id = "+placeholder(len(args)+1)), append(args, *find.CharacterID)
	}
	if find.IsOwner != nil {
		where, args = append(where, "is_owner = "+placeholder(len(args)+1)), append(args, *find.IsOwner)
	}
	if find.Archived != nil {
		where, args = append(where, "archived = "+placeholder(len(args)+1)), append(args, *find.Archived)
	}

	query := `SELECT id, character_id, mode, is_owner, tools_enabled, tool_names, memory_enabled, archived, archive_reason, created_ts, last_active_ts
		FROM companion_session WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list companion_sessions")
	}
	defer rows.Close()

	list := []*store.CompanionSession{}
	for rows.Next() {
		s := &store.CompanionSession{}
		var toolNames string
		if err := rows.Scan(
			&s.ID,
			&s.CharacterID,
			&s.Mode,
			&s.IsOwner,
			&s.ToolsEnabled,
			&toolNames,
			&s.MemoryEnabled,
			&s.Archived,
			&s.ArchiveReason,
			&s.CreatedTs,
			&s.LastActiveTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan companion_session")
		}
		s.ToolNames = splitNames(toolNames)
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate companion_sessions")
	}
	return list, nil
}

func (d *DB) UpdateCompanionSession(ctx context.Context, update *store.UpdateCompanionSession) error {
	set, args := []string{}, []any{}
	if v := update.LastActiveTs; v != nil {
		set, args = append(set, "last_active_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ToolsEnabled; v != nil {
		set, args = append(set, "tools_enabled = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ToolNames; v != nil {
		set, args = append(set, "tool_names = "+placeholder(len(args)+1)), append(args, joinNames(*v))
	}
	if v := update.MemoryEnabled; v != nil {
		set, args = append(set, "memory_enabled = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Archived; v != nil {
		set, args = append(set, "archived = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ArchiveReason; v != nil {
		set, args = append(set, "archive_reason = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	stmt := `UPDATE companion_session SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)+1)
	args = append(args, update.ID)
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to update companion_session")
	}
	return nil
}

func (d *DB) ArchiveStaleSessions(ctx context.Context, archive *store.ArchiveStaleSessions) (int64, error) {
	stmt := `UPDATE companion_session SET archived = 1, archive_reason = ?
		WHERE is_owner = ? AND archived = 0 AND last_active_ts < ?`
	result, err := d.db.ExecContext(ctx, stmt, archive.Reason, archive.IsOwner, archive.BeforeTs)
	if err != nil {
		return 0, errors.Wrap(err, "failed to archive stale companion_sessions")
	}
	return result.RowsAffected()
}
