package settings

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore persists settings in the plugin_settings table created by
// internal/db. Placeholders are $n, which both pgx and modernc sqlite accept.
type SQLStore struct{ DB *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

func (s *SQLStore) Get(ctx context.Context, scope Scope, scopeID, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM plugin_settings WHERE scope=$1 AND scope_id=$2 AND key=$3`,
		string(scope), scopeID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, scope Scope, scopeID, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO plugin_settings (scope, scope_id, key, value, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (scope, scope_id, key)
		DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`,
		string(scope), scopeID, key, value, time.Now().Unix())
	return err
}

func (s *SQLStore) Delete(ctx context.Context, scope Scope, scopeID, key string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM plugin_settings WHERE scope=$1 AND scope_id=$2 AND key=$3`,
		string(scope), scopeID, key)
	return err
}
