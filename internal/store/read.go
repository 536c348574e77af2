package store

import (
	"context"
	"database/sql"
	"errors"
)

// Read returns the stored text for slot, or ok=false if the slot has no row.
func (g *SQLiteGateway) Read(ctx context.Context, slot Slot) (string, bool, error) {
	if err := checkSlot("sqlite", "read", slot); err != nil {
		return "", false, err
	}

	var text string
	err := g.db.QueryRowContext(ctx, `SELECT text FROM slots WHERE name = ?`, string(slot)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, newStorageError("sqlite", "read", slot, err)
	}
	return text, true, nil
}

// LastSeq returns the write sequence number of the most recent write to slot.
// Returns ok=false if the slot was never written.
func (g *SQLiteGateway) LastSeq(ctx context.Context, slot Slot) (int64, bool, error) {
	var seq int64
	err := g.db.QueryRowContext(ctx, `SELECT seq FROM slots WHERE name = ?`, string(slot)).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, newStorageError("sqlite", "read", slot, err)
	}
	return seq, true, nil
}
