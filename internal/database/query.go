package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// QueryRows runs a parameterized query and scans every row into dest (a pointer to a slice)
func QueryRows(ctx context.Context, db *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	if err := db.WithContext(ctx).Raw(query, args...).Scan(dest).Error; err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

// QueryRow runs a parameterized query and scans the first row into dest.
// It returns gorm.ErrRecordNotFound when the query yields no row.
func QueryRow(ctx context.Context, db *gorm.DB, dest interface{}, query string, args ...interface{}) error {
	res := db.WithContext(ctx).Raw(query, args...).Scan(dest)
	if res.Error != nil {
		return fmt.Errorf("query failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Exec runs a parameterized statement and returns the number of affected rows
func Exec(ctx context.Context, db *gorm.DB, statement string, args ...interface{}) (int64, error) {
	res := db.WithContext(ctx).Exec(statement, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("exec failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
