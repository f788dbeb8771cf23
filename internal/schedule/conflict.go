/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_media/internal/models"
)

// Detector decides whether a candidate slot overlaps any existing active
// schedule for the same station. It is pure logic over rows the store has
// already fetched; cross-station overlaps are permitted by design.
type Detector struct {
	logger zerolog.Logger
}

// NewDetector creates a conflict detector.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "conflict_detector").Logger(),
	}
}

// FirstConflict returns the first existing schedule that conflicts with the
// candidate, or nil when the candidate fits. The first hit is sufficient to
// reject; conflicts are not enumerated.
func (d *Detector) FirstConflict(candidate *models.Schedule, existing []models.Schedule) *models.Schedule {
	for i := range existing {
		other := &existing[i]
		if other.ID == candidate.ID {
			continue
		}
		// Malformed rows violate the persisted invariant; skip rather
		// than crash the check.
		if !other.EndsAt.After(other.StartsAt) {
			d.logger.Warn().
				Str("schedule_id", other.ID).
				Str("station_id", other.StationID).
				Msg("skipping malformed schedule row in conflict check")
			continue
		}
		if d.conflicts(candidate, other) {
			return other
		}
	}
	return nil
}

// conflicts applies the half-open range test. Two one-off slots compare
// their absolute timestamps. When either side recurs, its stored anchor only
// names the weekday pattern, so the weekday gate runs first and then the
// slots compare by UTC time of day; anchors from different weeks still
// collide.
func (d *Detector) conflicts(a, b *models.Schedule) bool {
	if !a.Recurring && !b.Recurring {
		return rangesOverlap(a, b)
	}
	if !daysIntersect(a.EffectiveDays(), b.EffectiveDays()) {
		return false
	}
	return clockRangesOverlap(a, b)
}

// rangesOverlap is the half-open interval test: [s1,e1) and [s2,e2) overlap
// iff s1 < e2 && s2 < e1. Touching endpoints do not conflict.
func rangesOverlap(a, b *models.Schedule) bool {
	return a.StartsAt.Before(b.EndsAt) && b.StartsAt.Before(a.EndsAt)
}

// clockRangesOverlap is the same half-open test over minutes since midnight
// UTC. The end is start plus duration so a slot crossing midnight keeps a
// well-formed range.
func clockRangesOverlap(a, b *models.Schedule) bool {
	s1, e1 := clockRange(a)
	s2, e2 := clockRange(b)
	return s1 < e2 && s2 < e1
}

func clockRange(s *models.Schedule) (int, int) {
	at := s.StartsAt.UTC()
	start := at.Hour()*60 + at.Minute()
	return start, start + int(s.EndsAt.Sub(s.StartsAt)/time.Minute)
}

// daysIntersect reports whether two effective weekday sets share a day. An
// empty set on either side (a malformed recurring row) does not gate: the
// range comparison alone decides, which is the conservative reading.
func daysIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(a))
	for _, day := range a {
		set[day] = struct{}{}
	}
	for _, day := range b {
		if _, ok := set[day]; ok {
			return true
		}
	}
	return false
}
