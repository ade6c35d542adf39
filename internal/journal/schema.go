package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// layoutVersion is stored in SQLite's user_version header field. A fresh
// database reports 0.
const layoutVersion = 1

// ErrIncompatible is returned by Open when the file holds a journal written
// with a different table layout, or some other SQLite database.
var ErrIncompatible = errors.New("incompatible journal")

func (j *Journal) migrate(ctx context.Context) error {
	var version int
	if err := j.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	switch version {
	case layoutVersion:
		return nil
	case 0:
		var tables int
		if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
			return fmt.Errorf("inspect journal: %w", err)
		}
		if tables == 0 {
			return j.install(ctx)
		}
		return fmt.Errorf("%w: %s is not a mediasort journal", ErrIncompatible, j.path)
	default:
		return fmt.Errorf("%w: %s has layout %d, this build reads %d (move it aside to start a new history)",
			ErrIncompatible, j.path, version, layoutVersion)
	}
}

func (j *Journal) install(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("install journal tables: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("install journal tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", layoutVersion)); err != nil {
		return fmt.Errorf("stamp journal version: %w", err)
	}
	return tx.Commit()
}
