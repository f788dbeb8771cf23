/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"strings"
	"time"
)

// Canonical weekday names accepted in Schedule.DaysOfWeek, stored lowercase.
const (
	DayMonday    = "monday"
	DayTuesday   = "tuesday"
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
	DayFriday    = "friday"
	DaySaturday  = "saturday"
	DaySunday    = "sunday"
)

var canonicalDays = map[string]struct{}{
	DayMonday:    {},
	DayTuesday:   {},
	DayWednesday: {},
	DayThursday:  {},
	DayFriday:    {},
	DaySaturday:  {},
	DaySunday:    {},
}

// IsCanonicalDay reports whether name is one of the seven weekday names.
// Matching is case-insensitive.
func IsCanonicalDay(name string) bool {
	_, ok := canonicalDays[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// NormalizeDays lowercases, trims and deduplicates a weekday list, preserving
// first-seen order. The second return is false if any entry is not one of the
// seven canonical names.
func NormalizeDays(days []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, day := range days {
		normalized := strings.ToLower(strings.TrimSpace(day))
		if _, ok := canonicalDays[normalized]; !ok {
			return nil, false
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out, true
}

// WeekdayName maps a time.Weekday to its canonical name.
func WeekdayName(day time.Weekday) string {
	switch day {
	case time.Monday:
		return DayMonday
	case time.Tuesday:
		return DayTuesday
	case time.Wednesday:
		return DayWednesday
	case time.Thursday:
		return DayThursday
	case time.Friday:
		return DayFriday
	case time.Saturday:
		return DaySaturday
	default:
		return DaySunday
	}
}

// Schedule is a booked programming slot for a station, optionally tied to a
// host and optionally repeating weekly on a fixed weekday set.
type Schedule struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	StationID  string  `gorm:"type:uuid;index:idx_schedules_station_time;not null"`
	Title      string  `gorm:"type:varchar(255);not null"`
	HostUserID *string `gorm:"type:uuid;index:idx_schedules_host"`

	StartsAt time.Time `gorm:"index:idx_schedules_station_time;not null"`
	EndsAt   time.Time `gorm:"not null"`

	Recurring  bool     `gorm:"not null;default:false"`
	DaysOfWeek []string `gorm:"type:jsonb;serializer:json"`

	// Soft delete. Rows are retained for audit and excluded from every
	// read path while IsActive is false.
	IsActive  bool       `gorm:"not null;default:true;index"`
	DeletedAt *time.Time
	DeletedBy *string `gorm:"type:uuid"`

	CreatedBy string  `gorm:"type:uuid;not null"`
	UpdatedBy *string `gorm:"type:uuid"`

	// Relationships for enriched responses.
	Station *Station `gorm:"foreignKey:StationID"`
	Host    *User    `gorm:"foreignKey:HostUserID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (Schedule) TableName() string {
	return "schedules"
}

// EffectiveDays returns the weekday set used for conflict comparison: the
// stored DaysOfWeek for a recurring slot, or the weekday of the single
// occurrence for a one-off slot.
func (s *Schedule) EffectiveDays() []string {
	if s.Recurring {
		return s.DaysOfWeek
	}
	return []string{WeekdayName(s.StartsAt.Weekday())}
}
