package ledger

import (
	"testing"
	"time"
)

func TestPeriodContainsIsHalfOpen(t *testing.T) {
	march := NewYearMonth(2025, time.March)

	cases := []struct {
		date Date
		want bool
	}{
		{NewDate(2025, time.March, 1), true},   // first day in
		{NewDate(2025, time.March, 31), true},  // last day in
		{NewDate(2025, time.February, 28), false},
		{NewDate(2025, time.April, 1), false}, // next month start is out
		{NewDate(2024, time.March, 15), false},
	}
	for _, c := range cases {
		if got := march.Contains(c.date); got != c.want {
			t.Errorf("Contains(%s) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestPeriodBoundaries(t *testing.T) {
	feb := NewYearMonth(2024, time.February) // leap year

	if got := feb.Start().String(); got != "2024-02-01" {
		t.Errorf("Start() = %s, want 2024-02-01", got)
	}
	if got := feb.End().String(); got != "2024-02-29" {
		t.Errorf("End() = %s, want 2024-02-29", got)
	}
}

func TestPeriodNextPreviousAcrossYear(t *testing.T) {
	dec := NewYearMonth(2024, time.December)

	if next := dec.Next(); !next.Equal(NewYearMonth(2025, time.January)) {
		t.Errorf("Next() = %s, want 2025-01", next)
	}
	jan := NewYearMonth(2025, time.January)
	if prev := jan.Previous(); !prev.Equal(dec) {
		t.Errorf("Previous() = %s, want 2024-12", prev)
	}
}

func TestLaterPicksTheLaterPeriod(t *testing.T) {
	jan := NewYearMonth(2025, time.January)
	may := NewYearMonth(2025, time.May)

	if got := Later(jan, may); !got.Equal(may) {
		t.Errorf("Later(jan, may) = %s, want 2025-05", got)
	}
	if got := Later(may, jan); !got.Equal(may) {
		t.Errorf("Later(may, jan) = %s, want 2025-05", got)
	}
	if got := Later(may, may); !got.Equal(may) {
		t.Errorf("Later(may, may) = %s, want 2025-05", got)
	}
}

func TestPeriodOf(t *testing.T) {
	d := NewDate(2025, time.March, 17)
	if got := PeriodOf(d); !got.Equal(NewYearMonth(2025, time.March)) {
		t.Errorf("PeriodOf(%s) = %s, want 2025-03", d, got)
	}
}

func TestPeriodFormatting(t *testing.T) {
	march := NewYearMonth(2025, time.March)

	if got := march.String(); got != "2025-03" {
		t.Errorf("String() = %q, want 2025-03", got)
	}
	if got := march.Label(); got != "March 2025" {
		t.Errorf("Label() = %q, want March 2025", got)
	}

	parsed, err := ParseYearMonth("2025-03")
	if err != nil {
		t.Fatalf("ParseYearMonth: %v", err)
	}
	if !parsed.Equal(march) {
		t.Errorf("ParseYearMonth = %s, want 2025-03", parsed)
	}
	if _, err := ParseYearMonth("March 2025"); err == nil {
		t.Error("ParseYearMonth accepted a label")
	}
}

func TestDateComparisons(t *testing.T) {
	a := NewDate(2025, time.March, 10)
	b := NewDate(2025, time.March, 11)

	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !a.BeforeOrEqual(a) || !a.AfterOrEqual(a) {
		t.Error("same-day comparison should be equal")
	}
	// Sub-day components must not affect ordering.
	noon := Date{Time: time.Date(2025, time.March, 10, 12, 30, 0, 0, time.UTC)}
	if !noon.Equal(a) {
		t.Error("dates with different clock times should compare equal")
	}
}
