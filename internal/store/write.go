package store

import (
	"context"
	"time"
)

// Write overwrites the text for slot.
//
// Each write stamps the row with seq = max(seq)+1 across all slots, so the
// table records the global order of writes. updated_at is informational only;
// ordering never uses wall-clock time.
func (g *SQLiteGateway) Write(ctx context.Context, slot Slot, text string) error {
	if err := checkSlot("sqlite", "write", slot); err != nil {
		return err
	}

	_, err := g.db.ExecContext(ctx, `
		INSERT INTO slots (name, text, seq, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM slots), ?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			seq = excluded.seq,
			updated_at = excluded.updated_at
	`,
		string(slot),
		text,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return newStorageError("sqlite", "write", slot, err)
	}
	return nil
}

// Clear deletes every slot row.
func (g *SQLiteGateway) Clear(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM slots`); err != nil {
		return newStorageError("sqlite", "clear", "", err)
	}
	return nil
}
