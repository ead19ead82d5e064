package rules

import (
	"testing"
	"time"
)

func TestDayKeyUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Minsk")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	utc := time.Date(2026, 2, 8, 21, 30, 0, 0, time.UTC)
	got := DayKey(utc, loc)
	want := "2026-02-09"
	if got != want {
		t.Fatalf("unexpected day key: got %s want %s", got, want)
	}
}

func TestDayKeyDefaultsToUTC(t *testing.T) {
	utc := time.Date(2026, 2, 8, 23, 59, 59, 0, time.UTC)
	got := DayKey(utc, nil)
	want := "2026-02-08"
	if got != want {
		t.Fatalf("unexpected day key: got %s want %s", got, want)
	}
}

func TestSameDayAcrossMidnight(t *testing.T) {
	before := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	after := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)

	if SameDay(before, after, time.UTC) {
		t.Fatalf("expected different days across midnight")
	}
	if !SameDay(before, before.Add(time.Minute), time.UTC) {
		t.Fatalf("expected same day within one minute")
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "wednesday",
			now:  time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday itself",
			now:  time.Date(2026, 2, 9, 0, 0, 1, 0, time.UTC),
			want: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday",
			now:  time.Date(2026, 2, 15, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		got := WeekStart(tc.now, time.UTC)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: unexpected week start: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestSameWeekBoundary(t *testing.T) {
	sunday := time.Date(2026, 2, 15, 23, 59, 0, 0, time.UTC)
	monday := time.Date(2026, 2, 16, 0, 1, 0, 0, time.UTC)

	if SameWeek(sunday, monday, time.UTC) {
		t.Fatalf("sunday and the following monday must be different weeks")
	}
	if !SameWeek(sunday, sunday.Add(-6*24*time.Hour), time.UTC) {
		t.Fatalf("monday and sunday of the same week must match")
	}
}

func TestNextResetAtUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Minsk")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2026, 2, 8, 21, 30, 0, 0, time.UTC) // 00:30 local, Feb 9
	got := NextResetAt(now, loc)
	want := time.Date(2026, 2, 9, 21, 0, 0, 0, time.UTC) // midnight local Feb 10
	if !got.Equal(want) {
		t.Fatalf("unexpected reset_at: got %s want %s", got.Format(time.RFC3339), want.Format(time.RFC3339))
	}
}
