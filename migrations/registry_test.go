package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	trust "github.com/goliatone/go-trust"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestTrustCoreMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := trust.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_trust_core.up.sql",
		"data/sql/migrations/00001_trust_core.down.sql",
		"data/sql/migrations/sqlite/00001_trust_core.up.sql",
		"data/sql/migrations/sqlite/00001_trust_core.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteTrustCoreMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-trust-core?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := trust.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_trust_core.up.sql"); err != nil {
		t.Fatalf("apply trust core migration up: %v", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO trust_scalar_tokens (id, api_url, token) VALUES (?, ?, ?)`,
		"tok-1", "https://scalar.example.org/api", "secret-1",
	); err != nil {
		t.Fatalf("insert scalar token: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO trust_scalar_tokens (id, api_url, token) VALUES (?, ?, ?)`,
		"tok-2", "https://scalar.example.org/api", "secret-2",
	); err == nil {
		t.Fatalf("expected unique api_url constraint violation")
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO trust_pending_bindings (id, medium, address, client_secret, send_attempt) VALUES (?, ?, ?, ?, ?)`,
		"bind-1", "email", "alice@example.org", "cs-1", 1,
	); err != nil {
		t.Fatalf("insert pending binding: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO trust_pending_bindings (id, medium, address, client_secret, send_attempt) VALUES (?, ?, ?, ?, ?)`,
		"bind-2", "email", "alice@example.org", "cs-2", 1,
	); err == nil {
		t.Fatalf("expected unique medium+address constraint violation")
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_trust_core.down.sql"); err != nil {
		t.Fatalf("apply trust core migration down: %v", err)
	}

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		"trust_identity_config",
	).Scan(&name)
	if err != sql.ErrNoRows {
		t.Fatalf("expected trust_identity_config dropped after rollback, err=%v name=%q", err, name)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
