package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

// DefaultHistoryLimit is used when List is called with a non-positive limit.
const DefaultHistoryLimit = 50

// ActivationRecord is a stored activation.
type ActivationRecord struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"targetId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ActivationRepository records and lists completed dwells.
type ActivationRepository struct {
	db *sql.DB
}

// Activations returns the activation repository for this store.
func (s *Store) Activations() *ActivationRepository {
	return &ActivationRepository{db: s.db}
}

// Record stores a and returns the new record.
func (r *ActivationRepository) Record(a pointer.Activation) (*ActivationRecord, error) {
	if a.TargetID == "" {
		return nil, errors.New("record activation: empty target id")
	}
	at := a.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	rec := &ActivationRecord{
		ID:         uuid.New().String(),
		TargetID:   a.TargetID,
		OccurredAt: time.UnixMilli(at.UnixMilli()),
	}

	_, err := r.db.Exec(
		`INSERT INTO activations (id, target_id, occurred_at) VALUES (?, ?, ?)`,
		rec.ID, rec.TargetID, at.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("record activation: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (r *ActivationRepository) List(limit int) ([]*ActivationRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.Query(
		`SELECT id, target_id, occurred_at FROM activations
		 ORDER BY occurred_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	var out []*ActivationRecord
	for rows.Next() {
		var rec ActivationRecord
		var ms int64
		if err := rows.Scan(&rec.ID, &rec.TargetID, &ms); err != nil {
			return nil, err
		}
		rec.OccurredAt = time.UnixMilli(ms)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored activations for targetID, or for all
// targets when targetID is empty.
func (r *ActivationRepository) Count(targetID string) (int, error) {
	var n int
	var err error
	if targetID == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM activations`).Scan(&n)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM activations WHERE target_id = ?`, targetID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count activations: %w", err)
	}
	return n, nil
}

// Prune deletes records older than cutoff and returns how many were removed.
func (r *ActivationRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM activations WHERE occurred_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune activations: %w", err)
	}
	return result.RowsAffected()
}

// Activate implements pointer.ActivationSink. Storage failures are logged;
// the engine never sees them.
func (r *ActivationRepository) Activate(a pointer.Activation) {
	if _, err := r.Record(a); err != nil {
		log.Printf("Failed to record activation for %s: %v", a.TargetID, err)
	}
}
