package repository

import (
	"fmt"
	"strings"

	"bookkeeping/pkg/pagination"
)

// LedgerFilter narrows a ledger listing. Empty fields do not constrain.
type LedgerFilter struct {
	Status    string
	Category  string
	Party     string // substring of customer or vendor
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
}

// DateRange is an inclusive YYYY-MM-DD window; empty bounds are open
type DateRange struct {
	Start string
	End   string
}

// Where accumulates AND-combined conditions and their bind arguments
type Where struct {
	conds []string
	args  []interface{}
}

// OwnedBy starts a condition set scoped to one user
func OwnedBy(userID string) *Where {
	w := &Where{}
	return w.Add("user_id = ?", userID)
}

// Add appends an arbitrary condition
func (w *Where) Add(cond string, args ...interface{}) *Where {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
	return w
}

// Eq adds column = value unless value is empty
func (w *Where) Eq(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Add(column+" = ?", value)
}

// Contains adds a substring match unless value is empty
func (w *Where) Contains(column, value string) *Where {
	if value == "" {
		return w
	}
	return w.Add(column+" LIKE ? ESCAPE '\\'", "%"+escapeLike(value)+"%")
}

// Between adds the inclusive bounds that are set
func (w *Where) Between(column string, r DateRange) *Where {
	if r.Start != "" {
		w.Add(column+" >= ?", r.Start)
	}
	if r.End != "" {
		w.Add(column+" <= ?", r.End)
	}
	return w
}

// Prefix adds column LIKE 'value%'
func (w *Where) Prefix(column, value string) *Where {
	return w.Add(column+" LIKE ? ESCAPE '\\'", escapeLike(value)+"%")
}

// SQL renders the WHERE clause, or "" without conditions
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bind arguments in clause order
func (w *Where) Args() []interface{} {
	out := make([]interface{}, len(w.args))
	copy(out, w.args)
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ledgerWhere builds the listing conditions shared by both ledgers
func ledgerWhere(userID, partyColumn string, f LedgerFilter) *Where {
	return OwnedBy(userID).
		Eq("status", f.Status).
		Eq("category", f.Category).
		Contains(partyColumn, f.Party).
		Between("date", DateRange{Start: f.StartDate, End: f.EndDate})
}

// ledgerOrder is the listing order; id breaks ties so pages never overlap
const ledgerOrder = " ORDER BY date DESC, created_at DESC, id DESC"

// Paginate appends LIMIT/OFFSET for the page to a base query
func Paginate(query string, p pagination.Params) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, p.Limit, p.Offset)
}

// StatsColumns renders the aggregate select list of a ledger summary: row count,
// plain sums and one conditional sum and count per status bucket.
func StatsColumns(settled, pending, overdue string) string {
	cols := []string{
		"COUNT(*) AS count",
		"COALESCE(SUM(amount), 0) AS amount_sum",
		"COALESCE(SUM(tax_amount), 0) AS tax_sum",
		"COALESCE(SUM(total_amount), 0) AS total_sum",
	}
	for _, s := range []struct{ alias, status string }{
		{"settled", settled},
		{"pending", pending},
		{"overdue", overdue},
	} {
		cols = append(cols,
			fmt.Sprintf("COALESCE(SUM(CASE WHEN status = '%s' THEN total_amount ELSE 0 END), 0) AS %s_sum", s.status, s.alias),
			fmt.Sprintf("COALESCE(SUM(CASE WHEN status = '%s' THEN 1 ELSE 0 END), 0) AS %s_count", s.status, s.alias),
		)
	}
	return strings.Join(cols, ", ")
}

// groupColumns is the select list of a grouped total
const groupColumns = "COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount_sum, " +
	"COALESCE(SUM(tax_amount), 0) AS tax_sum, COALESCE(SUM(total_amount), 0) AS total_sum"
