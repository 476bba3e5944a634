package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/johndosdos/msglog/internal/database"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DBInit connects to TEST_DB_URL and applies the schema from scratch. The
// schema is rolled back and the pool closed when t finishes. Tests are
// skipped when TEST_DB_URL is not set.
func DBInit(t testing.TB) *sql.DB {
	t.Helper()

	_ = godotenv.Load(filepath.Join(ProjectRoot(), ".env"))

	testURL := os.Getenv("TEST_DB_URL")
	if testURL == "" {
		t.Skip("TEST_DB_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, db, err := database.Open(ctx, testURL)
	if err != nil {
		t.Fatalf("database.Open() error = %+v", err)
	}

	if err := database.Reset(ctx, db); err != nil {
		pool.Close()
		t.Fatalf("database.Reset() error = %+v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		pool.Close()
		t.Fatalf("database.Migrate() error = %+v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := database.Reset(ctx, db); err != nil {
			t.Errorf("database.Reset() error = %+v", err)
		}
		_ = db.Close()
		pool.Close()
	})

	return db
}
