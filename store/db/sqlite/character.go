package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hrygo/quillmate/store"
)

func (d *DB) UpsertCharacter(ctx context.Context, upsert *store.Character) (*store.Character, error) {
	stmt := `
		INSERT INTO companion_character (id, name, persona, world_scenario, greeting, example_dialogue, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			name = excluded.name,
			persona = excluded.persona,
			world_scenario = excluded.world_scenario,
			greeting = excluded.greeting,
			example_dialogue = excluded.example_dialogue,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ID,
		upsert.Name,
		upsert.Persona,
		upsert.WorldScenario,
		upsert.Greeting,
		upsert.ExampleDialogue,
		upsert.CreatedTs,
		upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert character")
	}
	return d.GetCharacter(ctx, upsert.ID)
}

func (d *DB) GetCharacter(ctx context.Context, id string) (*store.Character, error) {
	c := &store.Character{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, persona, world_scenario, greeting, example_dialogue, created_ts, updated_ts
		FROM companion_character WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Persona, &c.WorldScenario, &c.Greeting, &c.ExampleDialogue, &c.CreatedTs, &c.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get character")
	}
	return c, nil
}
