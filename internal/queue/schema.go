package queue

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// jobSchemaVersion is stored in PRAGMA user_version. Bump it when
// schema.sql changes.
const jobSchemaVersion = 1

// initSchema creates the job table in a fresh database and refuses to open
// a database written by a different schema version. A batch in flight must
// finish on the binary that started it.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read job database version: %w", err)
	}

	switch version {
	case jobSchemaVersion:
		return nil
	case 0:
		return s.createSchema(ctx)
	default:
		return fmt.Errorf("%w: %s has version %d, this build expects %d (finish the batch with the matching release or move the file aside)",
			ErrSchemaMismatch, s.path, version, jobSchemaVersion)
	}
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create job table: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", jobSchemaVersion)); err != nil {
		return fmt.Errorf("record job database version: %w", err)
	}
	return tx.Commit()
}
