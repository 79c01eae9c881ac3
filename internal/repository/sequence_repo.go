package repository

import (
	"context"
	"fmt"

	"bookkeeping/internal/database"

	"gorm.io/gorm"
)

// SequenceRepository hands out per-user monotonically increasing numbers.
// Next must run inside the transaction that consumes the number.
type SequenceRepository interface {
	Next(ctx context.Context, userID, kind string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, userID, kind string) (int64, error) {
	db := GetDB(ctx, r.db)

	n, err := database.Exec(ctx, db,
		"UPDATE ledger_sequences SET value = value + 1 WHERE user_id = ? AND kind = ?", userID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", kind, err)
	}
	if n == 0 {
		if _, err := database.Exec(ctx, db,
			"INSERT INTO ledger_sequences (user_id, kind, value) VALUES (?, ?, 1)", userID, kind); err != nil {
			return 0, fmt.Errorf("failed to start %s sequence: %w", kind, err)
		}
	}

	var value int64
	if err := database.QueryRow(ctx, db, &value,
		"SELECT value FROM ledger_sequences WHERE user_id = ? AND kind = ?", userID, kind); err != nil {
		return 0, fmt.Errorf("failed to read %s sequence: %w", kind, err)
	}
	return value, nil
}
