package domain

import (
	"testing"
	"time"
)

func TestDueDateInMonth(t *testing.T) {
	tests := []struct {
		name   string
		ref    time.Time
		dueDay int
		want   time.Time
	}{
		{name: "regular day", ref: day(2025, 5, 12), dueDay: 1, want: day(2025, 5, 1)},
		{name: "clamped in 30-day month", ref: day(2025, 4, 10), dueDay: 31, want: day(2025, 4, 30)},
		{name: "clamped in february", ref: day(2025, 2, 20), dueDay: 30, want: day(2025, 2, 28)},
		{name: "leap february", ref: day(2024, 2, 29), dueDay: 30, want: day(2024, 2, 29)},
		{name: "day 31 in 31-day month", ref: day(2025, 1, 31), dueDay: 31, want: day(2025, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueDateInMonth(tt.ref, tt.dueDay)
			if !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want.Format("2006-01-02"), got.Format("2006-01-02"))
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(day(2025, 4, 1), day(2025, 4, 15)); got != 14 {
		t.Errorf("expected 14 days, got %d", got)
	}
	if got := DaysBetween(day(2025, 4, 1), day(2025, 4, 1)); got != 0 {
		t.Errorf("expected 0 days, got %d", got)
	}
	// Spans a month boundary.
	if got := DaysBetween(day(2025, 1, 31), day(2025, 2, 14)); got != 14 {
		t.Errorf("expected 14 days across month boundary, got %d", got)
	}
}

func TestObligationIsOpen(t *testing.T) {
	for status, want := range map[string]bool{
		ObligationPending: true,
		ObligationLate:    true,
		ObligationPaid:    false,
		ObligationPartial: false,
	} {
		ob := Obligation{Status: status}
		if ob.IsOpen() != want {
			t.Errorf("IsOpen for %s: expected %v", status, want)
		}
	}
}
