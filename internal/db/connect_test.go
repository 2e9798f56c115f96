package db

import (
	"context"
	"testing"
)

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{
		"":         DriverSQLite,
		"sqlite3":  DriverSQLite,
		"pgx":      DriverPostgres,
		"Postgres": DriverPostgres,
	} {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("ParseDriver(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Fatalf("expected error for mysql")
	}
}

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DriverSQLite, "file:connect_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := h.ExecContext(ctx,
		`INSERT INTO plugin_settings (scope, scope_id, key, value, updated_at) VALUES ('global','','target','lrs',1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// idempotent
	if err := EnsureSchema(ctx, h, DriverSQLite); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	var v string
	if err := h.QueryRowContext(ctx, `SELECT value FROM plugin_settings WHERE key='target'`).Scan(&v); err != nil || v != "lrs" {
		t.Fatalf("value = %q, %v", v, err)
	}
}
