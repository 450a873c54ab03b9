package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/keystrike/internal/game/encounter"
)

// ErrSnapshotNotFound is returned when a save slot holds no snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrInvalidSlot is returned for slot numbers below 1.
var ErrInvalidSlot = errors.New("slot must be >= 1")

// SlotSummary describes one occupied save slot without its payload.
type SlotSummary struct {
	Slot        int
	SessionID   string
	EncounterID string
	Outcome     string
	Score       int
	SavedAt     time.Time
}

// SnapshotRepository stores encounter snapshots as JSONB, one per slot.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save writes snap into slot, replacing whatever the slot held.
//
// Precondition: slot >= 1.
// Postcondition: Load(slot) returns snap on success.
func (r *SnapshotRepository) Save(ctx context.Context, slot int, snap encounter.Snapshot) error {
	if slot < 1 {
		return ErrInvalidSlot
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO encounter_snapshots (slot, session_id, encounter_id, outcome, score, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slot) DO UPDATE SET
			session_id   = EXCLUDED.session_id,
			encounter_id = EXCLUDED.encounter_id,
			outcome      = EXCLUDED.outcome,
			score        = EXCLUDED.score,
			payload      = EXCLUDED.payload,
			saved_at     = EXCLUDED.saved_at`,
		slot, snap.SessionID, snap.EncounterID, snap.Outcome, snap.Score.Score, payload, snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot to slot %d: %w", slot, err)
	}
	return nil
}

// Load reads the snapshot held in slot.
//
// Postcondition: Returns ErrSnapshotNotFound if the slot is empty.
func (r *SnapshotRepository) Load(ctx context.Context, slot int) (encounter.Snapshot, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM encounter_snapshots WHERE slot = $1`, slot,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return encounter.Snapshot{}, ErrSnapshotNotFound
		}
		return encounter.Snapshot{}, fmt.Errorf("loading slot %d: %w", slot, err)
	}
	var snap encounter.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return encounter.Snapshot{}, fmt.Errorf("decoding slot %d: %w", slot, err)
	}
	return snap, nil
}

// Delete empties slot.
//
// Postcondition: Returns ErrSnapshotNotFound if the slot was already empty.
func (r *SnapshotRepository) Delete(ctx context.Context, slot int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM encounter_snapshots WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("deleting slot %d: %w", slot, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// List returns every occupied slot ordered by slot number.
func (r *SnapshotRepository) List(ctx context.Context) ([]SlotSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT slot, session_id, encounter_id, outcome, score, saved_at
		FROM encounter_snapshots ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SlotSummary
	for rows.Next() {
		var s SlotSummary
		if err := rows.Scan(&s.Slot, &s.SessionID, &s.EncounterID, &s.Outcome, &s.Score, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HighScore returns the best score recorded across all slots, or 0.
func (r *SnapshotRepository) HighScore(ctx context.Context) (int, error) {
	var best int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(score), 0) FROM encounter_snapshots`).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("querying high score: %w", err)
	}
	return best, nil
}
