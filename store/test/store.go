package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/quillmate/internal/profile"
	"github.com/hrygo/quillmate/store"
	"github.com/hrygo/quillmate/store/db"
)

// NewTestingStore opens a migrated store. It uses an in-memory SQLite database unless
// QUILLMATE_TEST_DRIVER=postgres and QUILLMATE_TEST_DSN point at a disposable database.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: driver,
	}
	switch driver {
	case "postgres":
		p.DSN = os.Getenv("QUILLMATE_TEST_DSN")
		if p.DSN == "" {
			t.Skip("QUILLMATE_TEST_DSN is required for postgres store tests")
		}
	default:
		p.DSN = ":memory:"
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("QUILLMATE_TEST_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
