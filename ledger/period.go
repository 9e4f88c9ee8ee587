package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// YEAR-MONTH - The accounting period unit
// =============================================================================

// YearMonth identifies one calendar month. The open month, snapshots and
// close records are all keyed on it.
type YearMonth struct {
	Year  int
	Month time.Month
}

func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// PeriodOf returns the calendar month containing the given date.
func PeriodOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// Start returns the first day of the month.
func (ym YearMonth) Start() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// End returns the last day of the month.
func (ym YearMonth) End() Date {
	return ym.Start().AddMonths(1).AddDays(-1)
}

// Contains reports whether the date falls inside the month, using the
// half-open interval [Start, Start+1month). This is the one scoping rule
// every date filter against the open month goes through.
func (ym YearMonth) Contains(d Date) bool {
	start := ym.Start()
	return d.AfterOrEqual(start) && d.Before(start.AddMonths(1))
}

func (ym YearMonth) Next() YearMonth {
	return PeriodOf(ym.Start().AddMonths(1))
}

func (ym YearMonth) Previous() YearMonth {
	return PeriodOf(ym.Start().AddMonths(-1))
}

// Comparison
func (ym YearMonth) Equal(other YearMonth) bool {
	return ym.Year == other.Year && ym.Month == other.Month
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) After(other YearMonth) bool {
	return other.Before(ym)
}

// Later returns the later of the two periods.
func Later(a, b YearMonth) YearMonth {
	if a.Before(b) {
		return b
	}
	return a
}

// Label returns the human-readable form shown in validation warnings and
// the open-month banner, e.g. "January 2025".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", ym.Month.String(), ym.Year)
}

// String returns the sortable form, e.g. "2025-01".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// ParseYearMonth parses the sortable "2006-01" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, err
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}
