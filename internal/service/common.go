package service

import (
	"errors"
	"strings"
	"time"

	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier pushes realtime events to a user's open sessions
type Notifier interface {
	Notify(userID, eventType string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

var hundred = decimal.NewFromInt(100)

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func fromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func validDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthRange is the calendar month containing t
func monthRange(t time.Time) repository.DateRange {
	first := monthStart(t)
	return repository.DateRange{
		Start: first.Format(model.DateLayout),
		End:   first.AddDate(0, 1, -1).Format(model.DateLayout),
	}
}

// monthsBack lists n month keys (YYYY-MM) ending with the month of t, oldest first
func monthsBack(t time.Time, n int) []string {
	first := monthStart(t)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, i-n+1, 0).Format("2006-01")
	}
	return out
}

// checkRange validates an optional date range and fills it with the current month when empty
func checkRange(r repository.DateRange, now time.Time) (repository.DateRange, error) {
	var details []apperror.FieldError
	if r.Start != "" && !validDate(r.Start) {
		details = append(details, apperror.FieldError{Field: "start_date", Message: "Must be a date in YYYY-MM-DD format"})
	}
	if r.End != "" && !validDate(r.End) {
		details = append(details, apperror.FieldError{Field: "end_date", Message: "Must be a date in YYYY-MM-DD format"})
	}
	if len(details) > 0 {
		return r, apperror.Validation("Invalid date range", details...)
	}
	if r.Start != "" && r.End != "" && r.Start > r.End {
		return r, apperror.Validation("Invalid date range",
			apperror.FieldError{Field: "end_date", Message: "Must not be before start_date"})
	}
	if r.Start == "" && r.End == "" {
		return monthRange(now), nil
	}
	return r, nil
}

// notFound turns a missing row into a NotFound error naming the resource
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource + " not found")
	}
	return err
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
