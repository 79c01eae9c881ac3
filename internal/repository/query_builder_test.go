package repository

import (
	"testing"

	"bookkeeping/pkg/pagination"

	"github.com/stretchr/testify/assert"
)

func TestLedgerWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   LedgerFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "owner only",
			wantSQL:  " WHERE user_id = ?",
			wantArgs: []interface{}{"u1"},
		},
		{
			name:     "all filters",
			filter:   LedgerFilter{Status: "paid", Category: "rent", Party: "ACME", StartDate: "2024-01-01", EndDate: "2024-01-31"},
			wantSQL:  ` WHERE user_id = ? AND status = ? AND category = ? AND vendor LIKE ? ESCAPE '\' AND date >= ? AND date <= ?`,
			wantArgs: []interface{}{"u1", "paid", "rent", "%ACME%", "2024-01-01", "2024-01-31"},
		},
		{
			name:     "open-ended range",
			filter:   LedgerFilter{EndDate: "2024-12-31"},
			wantSQL:  " WHERE user_id = ? AND date <= ?",
			wantArgs: []interface{}{"u1", "2024-12-31"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ledgerWhere("u1", "vendor", tt.filter)
			assert.Equal(t, tt.wantSQL, w.SQL())
			assert.Equal(t, tt.wantArgs, w.Args())
		})
	}
}

func TestWhere_ContainsEscapesWildcards(t *testing.T) {
	w := (&Where{}).Contains("customer", "50%_off")
	assert.Equal(t, []interface{}{`%50\%\_off%`}, w.Args())
	assert.Equal(t, "", (&Where{}).SQL())
}

func TestPaginate(t *testing.T) {
	p := pagination.New(3, 20)
	assert.Equal(t, "SELECT * FROM income LIMIT 20 OFFSET 40", Paginate("SELECT * FROM income", p))
}

func TestStatsColumns(t *testing.T) {
	cols := StatsColumns("received", "pending", "overdue")
	assert.Contains(t, cols, "COUNT(*) AS count")
	assert.Contains(t, cols, "COALESCE(SUM(CASE WHEN status = 'received' THEN total_amount ELSE 0 END), 0) AS settled_sum")
	assert.Contains(t, cols, "COALESCE(SUM(CASE WHEN status = 'overdue' THEN 1 ELSE 0 END), 0) AS overdue_count")
}
