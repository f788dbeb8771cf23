/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/muninn_media/internal/models"
)

// ListFilter narrows a listing to a station and/or a time window. The window
// matches rows whose range intersects [Start, End) so a slot straddling the
// window edge is still returned.
type ListFilter struct {
	StationID string
	Start     *time.Time
	End       *time.Time
}

// Store persists schedule rows. It enforces only id uniqueness; business
// invariants belong to the service and detector.
type Store struct {
	db *gorm.DB
}

// NewStore creates a schedule store over the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// activeOnly scopes a query to non-deleted rows. Every read path goes
// through this so no listing or lookup can forget the soft-delete filter.
func activeOnly(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// FindOverlapping returns active rows for the station that are time-range
// candidates against [start, end). The weekday gate for recurring rows is
// applied by the Detector; the store only does the broad filter. Recurring
// rows are always returned because their weekly occurrences can collide
// outside their stored anchor range.
func (s *Store) FindOverlapping(ctx context.Context, stationID string, start, end time.Time, excludeID string) ([]models.Schedule, error) {
	query := activeOnly(s.db.WithContext(ctx)).
		Where("station_id = ?", stationID).
		Where("recurring = ? OR (starts_at < ? AND ends_at > ?)", true, end, start)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}

	var rows []models.Schedule
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a new row. A Postgres overlap-guard violation at commit
// time is surfaced as Conflict.
func (s *Store) Insert(ctx context.Context, record *models.Schedule) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return translateStoreError(err)
	}
	return nil
}

// Replace saves the full record under its existing id.
func (s *Store) Replace(ctx context.Context, record *models.Schedule) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return translateStoreError(err)
	}
	return nil
}

// SoftDelete marks the row inactive and stamps the deleting actor. Returns
// NotFound when no active row carries the id.
func (s *Store) SoftDelete(ctx context.Context, id, actorID string, now time.Time) error {
	result := activeOnly(s.db.WithContext(ctx).Model(&models.Schedule{})).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"deleted_at": now,
			"deleted_by": actorID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundError("schedule not found")
	}
	return nil
}

// FindByID loads one row with station and host joined for display. With
// activeFilter set, soft-deleted rows are reported as NotFound.
func (s *Store) FindByID(ctx context.Context, id string, activeFilter bool) (*models.Schedule, error) {
	query := s.db.WithContext(ctx).Preload("Station").Preload("Host")
	if activeFilter {
		query = activeOnly(query)
	}

	var row models.Schedule
	err := query.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("schedule not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Query lists active rows matching the filter, ordered by start time
// ascending, with total-count metadata for client-side paging.
func (s *Store) Query(ctx context.Context, filter ListFilter, offset, limit int) ([]models.Schedule, int64, error) {
	query := activeOnly(s.db.WithContext(ctx).Model(&models.Schedule{}))

	if filter.StationID != "" {
		query = query.Where("station_id = ?", filter.StationID)
	}
	if filter.Start != nil && filter.End != nil {
		query = query.Where("starts_at < ? AND ends_at > ?", *filter.End, *filter.Start)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Schedule
	err := query.
		Preload("Station").
		Preload("Host").
		Order("starts_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// translateStoreError maps the Postgres overlap-guard trigger (SQLSTATE
// 23514, installed by db.Migrate) to a Conflict so a race that slips past
// the in-process check still fails cleanly at commit time.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "23514") {
		return conflictError("schedule overlaps an existing slot for this station")
	}
	return err
}
