package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-trust/core"
	trustmigrations "github.com/goliatone/go-trust/migrations"
	sqlstore "github.com/goliatone/go-trust/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-trust-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"trust_scalar_tokens",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "trust_scalar_tokens" {
		t.Fatalf("expected trust_scalar_tokens table, got %q", tableName)
	}
}

func TestTokenStore_IdentityConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newTokenStore(t, client)

	config, err := store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("get empty identity config: %v", err)
	}
	if config.HasURL() || config.HasToken() {
		t.Fatalf("expected empty identity config, got %+v", config)
	}

	url := "https://ID.Example.org/"
	if err := store.SetIdentityConfig(ctx, core.IdentityServerConfig{URL: &url}); err != nil {
		t.Fatalf("set identity config: %v", err)
	}

	config, err = store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("get identity config: %v", err)
	}
	if !config.HasURL() || *config.URL != "https://id.example.org" {
		t.Fatalf("expected canonical stored url, got %+v", config)
	}
	if config.HasToken() {
		t.Fatalf("expected no token before exchange, got %+v", config)
	}

	if err := store.SetIdentityToken(ctx, "ident-tok"); err != nil {
		t.Fatalf("set identity token: %v", err)
	}
	config, err = store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("get identity config with token: %v", err)
	}
	if !config.HasToken() || *config.Token != "ident-tok" {
		t.Fatalf("expected stored token, got %+v", config)
	}

	if err := store.ClearIdentityToken(ctx); err != nil {
		t.Fatalf("clear identity token: %v", err)
	}
	config, err = store.GetIdentityConfig(ctx)
	if err != nil {
		t.Fatalf("get identity config after clear: %v", err)
	}
	if config.HasToken() {
		t.Fatalf("cleared token must be indistinguishable from never fetched, got %+v", config)
	}
	if !config.HasURL() {
		t.Fatalf("clearing the token must keep the url, got %+v", config)
	}
}

func TestTokenStore_SetIdentityTokenRequiresServer(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newTokenStore(t, client)

	if err := store.SetIdentityToken(ctx, "tok"); !errors.Is(err, core.ErrNoIdentityServer) {
		t.Fatalf("expected ErrNoIdentityServer, got %v", err)
	}
}

func TestTokenStore_ScalarTokensKeyedByCanonicalURL(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newTokenStore(t, client)

	if err := store.SetScalarToken(ctx, "https://Scalar.Example.org/api/", "tok-1"); err != nil {
		t.Fatalf("set scalar token: %v", err)
	}

	token, err := store.GetScalarToken(ctx, "https://scalar.example.org/api")
	if err != nil {
		t.Fatalf("get scalar token: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("expected canonical lookup hit, got %q", token)
	}

	if err := store.SetScalarToken(ctx, "https://scalar.example.org/api", "tok-2"); err != nil {
		t.Fatalf("overwrite scalar token: %v", err)
	}
	token, err = store.GetScalarToken(ctx, "https://scalar.example.org/api")
	if err != nil {
		t.Fatalf("get overwritten scalar token: %v", err)
	}
	if token != "tok-2" {
		t.Fatalf("expected overwritten token, got %q", token)
	}

	if err := store.ClearScalarToken(ctx, "https://scalar.example.org/api/"); err != nil {
		t.Fatalf("clear scalar token: %v", err)
	}
	token, err = store.GetScalarToken(ctx, "https://scalar.example.org/api")
	if err != nil {
		t.Fatalf("get cleared scalar token: %v", err)
	}
	if token != "" {
		t.Fatalf("expected cleared token to read empty, got %q", token)
	}
}

func TestTokenStore_PendingBindingLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store := newTokenStore(t, client)

	pid := core.ThreePid{Medium: core.MediumEmail, Address: "alice@example.org"}
	if _, found, err := store.GetPendingBinding(ctx, pid); err != nil || found {
		t.Fatalf("expected no pending binding, found=%v err=%v", found, err)
	}

	binding := core.PendingBinding{
		ThreePid:     pid,
		ClientSecret: "cs-1",
		SID:          "sid-1",
		SendAttempt:  1,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.SavePendingBinding(ctx, binding); err != nil {
		t.Fatalf("save pending binding: %v", err)
	}

	got, found, err := store.GetPendingBinding(ctx, core.ThreePid{Medium: "EMAIL", Address: "alice@example.org"})
	if err != nil {
		t.Fatalf("get pending binding: %v", err)
	}
	if !found {
		t.Fatalf("expected pending binding after save")
	}
	if got.ClientSecret != "cs-1" || got.SID != "sid-1" || got.SendAttempt != 1 {
		t.Fatalf("unexpected binding state %+v", got)
	}

	binding.SendAttempt = 2
	if err := store.SavePendingBinding(ctx, binding); err != nil {
		t.Fatalf("bump send attempt: %v", err)
	}
	got, found, err = store.GetPendingBinding(ctx, pid)
	if err != nil || !found {
		t.Fatalf("get bumped binding: found=%v err=%v", found, err)
	}
	if got.SendAttempt != 2 || got.ClientSecret != "cs-1" {
		t.Fatalf("expected replayed binding to keep secret and bump attempt, got %+v", got)
	}

	if err := store.DeletePendingBinding(ctx, pid); err != nil {
		t.Fatalf("delete pending binding: %v", err)
	}
	if _, found, err := store.GetPendingBinding(ctx, pid); err != nil || found {
		t.Fatalf("expected binding deleted, found=%v err=%v", found, err)
	}
}

func newTokenStore(t *testing.T, client *persistence.Client) core.TokenStore {
	t.Helper()
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TokenStore()
	if store == nil {
		t.Fatalf("expected token store from factory")
	}
	return store
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:trust-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = trustmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != trustmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, trustmigrations.WithValidationTargets(trustmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
