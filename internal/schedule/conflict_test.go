package schedule

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_media/internal/models"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func slot(t *testing.T, id, start, end string, recurring bool, days ...string) models.Schedule {
	t.Helper()
	return models.Schedule{
		ID:         id,
		StationID:  "station-1",
		Title:      "show",
		StartsAt:   mustTime(t, start),
		EndsAt:     mustTime(t, end),
		Recurring:  recurring,
		DaysOfWeek: days,
		IsActive:   true,
	}
}

func TestFirstConflictRanges(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	// 2026-03-02 is a Monday.
	existing := []models.Schedule{
		slot(t, "existing", "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z", false),
	}

	tests := []struct {
		name     string
		start    string
		end      string
		conflict bool
	}{
		{"full overlap", "2026-03-02T09:30:00Z", "2026-03-02T10:30:00Z", true},
		{"exact duplicate", "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z", true},
		{"contained", "2026-03-02T09:15:00Z", "2026-03-02T09:45:00Z", true},
		{"containing", "2026-03-02T08:00:00Z", "2026-03-02T11:00:00Z", true},
		{"touching end", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", false},
		{"touching start", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", false},
		{"disjoint before", "2026-03-02T07:00:00Z", "2026-03-02T08:00:00Z", false},
		{"disjoint after", "2026-03-02T11:00:00Z", "2026-03-02T12:00:00Z", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			candidate := slot(t, "candidate", tc.start, tc.end, false)
			hit := detector.FirstConflict(&candidate, existing)
			if (hit != nil) != tc.conflict {
				t.Fatalf("conflict = %v, want %v", hit != nil, tc.conflict)
			}
		})
	}
}

func TestFirstConflictRecurringDayGate(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	existing := []models.Schedule{
		slot(t, "existing", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", true,
			models.DayMonday, models.DayWednesday),
	}

	tests := []struct {
		name      string
		start     string
		end       string
		recurring bool
		days      []string
		conflict  bool
	}{
		{
			name:  "disjoint days same hours",
			start: "2026-03-02T08:00:00Z", end: "2026-03-02T09:00:00Z",
			recurring: true, days: []string{models.DayTuesday, models.DayThursday},
			conflict: false,
		},
		{
			name:  "shared day overlapping hours",
			start: "2026-03-02T08:30:00Z", end: "2026-03-02T08:45:00Z",
			recurring: true, days: []string{models.DayWednesday},
			conflict: true,
		},
		{
			name:  "shared day touching hours",
			start: "2026-03-02T09:00:00Z", end: "2026-03-02T10:00:00Z",
			recurring: true, days: []string{models.DayMonday},
			conflict: false,
		},
		{
			// Non-recurring Monday candidate against a Mon/Wed recurring
			// row: the implicit day comes from the start timestamp.
			name:  "non-recurring on covered weekday",
			start: "2026-03-02T08:15:00Z", end: "2026-03-02T08:45:00Z",
			recurring: false,
			conflict:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			candidate := slot(t, "candidate", tc.start, tc.end, tc.recurring, tc.days...)
			hit := detector.FirstConflict(&candidate, existing)
			if (hit != nil) != tc.conflict {
				t.Fatalf("conflict = %v, want %v", hit != nil, tc.conflict)
			}
		})
	}
}

func TestFirstConflictCrossWeekAnchors(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	// Recurring Monday row anchored in the week of 2026-03-02. Weekly
	// occurrences must collide with rows anchored in any other week.
	existing := []models.Schedule{
		slot(t, "existing", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", true, models.DayMonday),
	}

	tests := []struct {
		name      string
		start     string
		end       string
		recurring bool
		days      []string
		conflict  bool
	}{
		{
			name:  "recurring monday one week later",
			start: "2026-03-09T08:30:00Z", end: "2026-03-09T08:45:00Z",
			recurring: true, days: []string{models.DayMonday},
			conflict: true,
		},
		{
			name:  "one-off on a monday two weeks later",
			start: "2026-03-16T08:30:00Z", end: "2026-03-16T08:45:00Z",
			recurring: false,
			conflict:  true,
		},
		{
			name:  "recurring monday later week touching hours",
			start: "2026-03-09T09:00:00Z", end: "2026-03-09T10:00:00Z",
			recurring: true, days: []string{models.DayMonday},
			conflict: false,
		},
		{
			name:  "one-off same hours on a tuesday next week",
			start: "2026-03-10T08:00:00Z", end: "2026-03-10T09:00:00Z",
			recurring: false,
			conflict:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			candidate := slot(t, "candidate", tc.start, tc.end, tc.recurring, tc.days...)
			hit := detector.FirstConflict(&candidate, existing)
			if (hit != nil) != tc.conflict {
				t.Fatalf("conflict = %v, want %v", hit != nil, tc.conflict)
			}
		})
	}
}

func TestFirstConflictNonRecurringDifferentWeekday(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	// Recurring Tuesday-only row; candidate occupies the same clock hours on
	// Monday, so the day gate clears it.
	existing := []models.Schedule{
		slot(t, "existing", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", true, models.DayTuesday),
	}
	candidate := slot(t, "candidate", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", false)

	if hit := detector.FirstConflict(&candidate, existing); hit != nil {
		t.Fatalf("unexpected conflict with %s", hit.ID)
	}
}

func TestFirstConflictSkipsSelfAndMalformed(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	existing := []models.Schedule{
		// Same id as the candidate: the record being updated.
		slot(t, "self", "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z", false),
		// Inverted range, must be skipped rather than crash the check.
		slot(t, "malformed", "2026-03-02T10:00:00Z", "2026-03-02T09:00:00Z", false),
	}

	candidate := slot(t, "self", "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z", false)
	if hit := detector.FirstConflict(&candidate, existing); hit != nil {
		t.Fatalf("unexpected conflict with %s", hit.ID)
	}
}

func TestFirstConflictEmptyDaySetDoesNotGate(t *testing.T) {
	detector := NewDetector(zerolog.Nop())

	// A recurring row with no day set is malformed under the invariants;
	// the raw range comparison decides.
	existing := []models.Schedule{
		slot(t, "existing", "2026-03-02T08:00:00Z", "2026-03-02T09:00:00Z", true),
	}
	candidate := slot(t, "candidate", "2026-03-02T08:30:00Z", "2026-03-02T09:30:00Z", false)

	if hit := detector.FirstConflict(&candidate, existing); hit == nil {
		t.Fatal("expected conflict against empty-day recurring row")
	}
}
