package repository

import (
	"context"

	"gorm.io/gorm"
)

// SequenceRepository hands out monotonic counters for document numbers
// (invoices, expenses), keyed by prefix+period, e.g. "INV-202609".
//
// The upsert below is a single atomic statement: two concurrent allocations
// against the same key serialize on the row and can never observe the same
// value. This replaces the original behavior of counting existing documents,
// which raced under concurrency and drifted after deletions.
type SequenceRepository interface {
	NextTx(ctx context.Context, tx *gorm.DB, key string) (int64, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) NextTx(ctx context.Context, tx *gorm.DB, key string) (int64, error) {
	var value int64
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO number_sequences (key, value)
		VALUES (?, 1)
		ON CONFLICT (key) DO UPDATE SET value = number_sequences.value + 1
		RETURNING value`, key).Scan(&value).Error
	return value, err
}
