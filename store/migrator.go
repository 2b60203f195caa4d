package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Migration files live in migration/{driver}/. LATEST.sql is the full schema for a fresh
// database; NN__description.sql files are incremental patches applied in order when NN is
// greater than the recorded schema version.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"

	baseSchemaVersion = 1

	modeDemo = "demo"
)

// Migrate brings the database schema to the latest version and seeds demo data in demo mode.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	current, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	if err := s.applyMigrations(ctx, current); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	if s.profile.Mode == modeDemo {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

// preMigrate applies the latest schema when the database is empty.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}

	patches, err := s.migrationPatches()
	if err != nil {
		return err
	}
	version := baseSchemaVersion
	if len(patches) > 0 {
		version = max(version, patches[len(patches)-1].version)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
	}
	if err := s.recordSchemaVersion(ctx, tx, version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	slog.Info("database initialized successfully", slog.Int("schemaVersion", version))
	return nil
}

type migrationPatch struct {
	version int
	path    string
}

// migrationPatches lists the incremental migration files sorted by version.
func (s *Store) migrationPatches() ([]migrationPatch, error) {
	filePaths, err := fs.Glob(migrationFS, s.getMigrationBasePath()+"*"+MigrateFileNameSplit+"*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration files")
	}

	patches := make([]migrationPatch, 0, len(filePaths))
	for _, filePath := range filePaths {
		version, err := parseMigrationVersion(path.Base(filePath))
		if err != nil {
			return nil, err
		}
		patches = append(patches, migrationPatch{version: version, path: filePath})
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].version < patches[j].version })
	return patches, nil
}

// parseMigrationVersion reads NN from "NN__description.sql".
func parseMigrationVersion(filename string) (int, error) {
	parts := strings.SplitN(filename, MigrateFileNameSplit, 2)
	if len(parts) < 2 {
		return 0, errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return version, nil
}

// applyMigrations applies every patch newer than current in a single transaction.
func (s *Store) applyMigrations(ctx context.Context, current int) error {
	patches, err := s.migrationPatches()
	if err != nil {
		return err
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	applied := 0
	for _, patch := range patches {
		if patch.version <= current {
			continue
		}
		slog.Info("applying migration", slog.String("file", patch.path), slog.Int("version", patch.version))
		bytes, err := migrationFS.ReadFile(patch.path)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", patch.path)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", patch.path)
		}
		if err := s.recordSchemaVersion(ctx, tx, patch.version); err != nil {
			return err
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	if applied > 0 {
		slog.Info("migration completed", slog.Int("migrationsApplied", applied))
	}
	return nil
}

func (s *Store) currentSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.driver.GetDB().QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migration").Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func (s *Store) recordSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	stmt := "INSERT INTO schema_migration (version, applied_ts) VALUES (" + strconv.Itoa(version) + ", " + strconv.FormatInt(time.Now().Unix(), 10) + ")"
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to record schema version %d", version)
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

// seed inserts the demo characters. Existing rows are left untouched.
func (s *Store) seed(ctx context.Context) error {
	existing, err := s.GetCharacter(ctx, "companion")
	if err != nil {
		return errors.Wrap(err, "failed to check seed state")
	}
	if existing != nil {
		return nil
	}

	filenames, err := fs.Glob(seedFS, s.getSeedBasePath()+"*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	sort.Strings(filenames)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	for _, filename := range filenames {
		bytes, err := seedFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file, filename=%s", filename)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "seed error: %s", filename)
		}
	}
	return tx.Commit()
}

// execute runs every statement of a multi-statement script inside tx.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on semicolons outside single-quoted strings, dropping "--" comments.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	inQuote := false

	for _, line := range strings.Split(script, "\n") {
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if !inQuote && ch == '-' && i+1 < len(line) && line[i+1] == '-' {
				break
			}
			if ch == '\'' {
				inQuote = !inQuote
			}
			if ch == ';' && !inQuote {
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
