package ocr

import (
	"context"
	"testing"
	"time"

	"bookkeeping/internal/category"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedScanner(t *testing.T) {
	var _ ReceiptScanner = (*SimulatedScanner)(nil)

	fixed := time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC)
	a := NewSimulatedScanner(42)
	a.now = func() time.Time { return fixed }
	b := NewSimulatedScanner(42)
	b.now = func() time.Time { return fixed }

	img := Image{FileName: "r.jpg", Data: []byte{0xff, 0xd8}}
	ra, err := a.Scan(context.Background(), img)
	require.NoError(t, err)
	rb, err := b.Scan(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, ra, rb, "same seed yields the same receipt")

	assert.True(t, category.IsExpense(ra.Category))
	assert.InDelta(t, ra.Amount+ra.TaxAmount, ra.TotalAmount, 0.001)
	assert.NotEmpty(t, ra.Items)
	assert.GreaterOrEqual(t, ra.Date, "2024-08-09")
	assert.LessOrEqual(t, ra.Date, "2024-08-15")
	assert.Equal(t, "simulated", ra.Engine)
}

func TestSimulatedScanner_EmptyImage(t *testing.T) {
	_, err := NewSimulatedScanner(1).Scan(context.Background(), Image{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}
