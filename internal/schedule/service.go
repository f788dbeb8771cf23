/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn_media/internal/auth"
	"github.com/friendsincode/muninn_media/internal/events"
	"github.com/friendsincode/muninn_media/internal/models"
	"github.com/friendsincode/muninn_media/internal/telemetry"
)

// DefaultPageSize is the fixed page size for listings.
const DefaultPageSize = 20

// Directory is the read-only station/host lookup collaborator. Lookups
// return nil without error when no active entity carries the id.
type Directory interface {
	FindActiveStation(ctx context.Context, id string) (*models.Station, error)
	FindActiveUser(ctx context.Context, id string) (*models.User, error)
}

// CreateInput is the typed, not-yet-validated payload for a new schedule.
// Timestamps are RFC3339 strings so parse failures surface as InvalidInput
// with the offending field instead of a transport-level decode error.
type CreateInput struct {
	StationID  string   `json:"station_id"`
	Title      string   `json:"title"`
	HostUserID *string  `json:"host_user_id"`
	StartsAt   string   `json:"starts_at"`
	EndsAt     string   `json:"ends_at"`
	Recurring  bool     `json:"recurring"`
	DaysOfWeek []string `json:"days_of_week"`
}

// UpdateInput carries a partial update; nil fields keep their current value.
type UpdateInput struct {
	StationID  *string  `json:"station_id"`
	Title      *string  `json:"title"`
	HostUserID *string  `json:"host_user_id"`
	StartsAt   *string  `json:"starts_at"`
	EndsAt     *string  `json:"ends_at"`
	Recurring  *bool    `json:"recurring"`
	DaysOfWeek []string `json:"days_of_week"`
}

// ListInput narrows and pages a listing. Start and End must be supplied
// together to form a [start, end) window.
type ListInput struct {
	StationID string
	Start     string
	End       string
	Page      int
}

// PageInfo is pagination metadata for client-side paging.
type PageInfo struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Service orchestrates authorization, validation, directory lookups,
// conflict detection and persistence. It is the only component with side
// effects; the detector and sanitizer stay pure.
type Service struct {
	store     *Store
	detector  *Detector
	directory Directory
	bus       *events.Bus
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	pageSize  int

	// Per-station write locks held across the conflict-check-and-persist
	// sequence so two racing writes on one station serialize.
	mu           sync.Mutex
	stationLocks map[string]*sync.Mutex
}

// NewService constructs the schedule service.
func NewService(store *Store, detector *Detector, directory Directory, bus *events.Bus, pageSize int, logger zerolog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		store:        store,
		detector:     detector,
		directory:    directory,
		bus:          bus,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "schedule_service").Logger(),
		pageSize:     pageSize,
		stationLocks: make(map[string]*sync.Mutex),
	}
}

// lockStation acquires the write lock for a station, returning the unlock.
func (s *Service) lockStation(stationID string) func() {
	s.mu.Lock()
	lock, ok := s.stationLocks[stationID]
	if !ok {
		lock = &sync.Mutex{}
		s.stationLocks[stationID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Create books a new slot after the full authorize → validate → lookup →
// conflict-check pipeline. Nothing is persisted unless every check passes.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Schedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "Create")
	defer span.End()

	record, err := s.create(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleOperationsTotal.WithLabelValues("create", outcomeLabel(err)).Inc()
		return nil, err
	}

	telemetry.ScheduleOperationsTotal.WithLabelValues("create", "ok").Inc()
	return record, nil
}

func (s *Service) create(ctx context.Context, input CreateInput) (*models.Schedule, error) {
	actor, err := s.requireManager(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := s.validateCreate(input)
	if err != nil {
		return nil, err
	}

	station, host, err := s.resolveDirectory(ctx, fields.stationID, fields.hostUserID)
	if err != nil {
		return nil, err
	}

	record := &models.Schedule{
		ID:         uuid.NewString(),
		StationID:  fields.stationID,
		Title:      fields.title,
		HostUserID: fields.hostUserID,
		StartsAt:   fields.startsAt,
		EndsAt:     fields.endsAt,
		Recurring:  fields.recurring,
		DaysOfWeek: fields.daysOfWeek,
		IsActive:   true,
		CreatedBy:  actor.UserID,
	}

	unlock := s.lockStation(record.StationID)
	defer unlock()

	if err := s.rejectConflicts(ctx, record, ""); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, record); err != nil {
		return nil, s.storeFailure(err, "create", record.StationID)
	}

	record.Station = station
	record.Host = host

	s.logger.Info().
		Str("schedule_id", record.ID).
		Str("station_id", record.StationID).
		Str("created_by", actor.UserID).
		Msg("schedule created")

	s.publish(events.EventScheduleCreated, actor, record)
	return record, nil
}

// Update applies a partial change and re-validates the whole record, so an
// end-time change is checked against the unchanged start time and day set.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*models.Schedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "Update")
	defer span.End()

	record, err := s.update(ctx, id, input)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleOperationsTotal.WithLabelValues("update", outcomeLabel(err)).Inc()
		return nil, err
	}

	telemetry.ScheduleOperationsTotal.WithLabelValues("update", "ok").Inc()
	return record, nil
}

func (s *Service) update(ctx context.Context, id string, input UpdateInput) (*models.Schedule, error) {
	actor, err := s.requireManager(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidInputError("id", "malformed id")
	}

	current, err := s.store.FindByID(ctx, id, true)
	if err != nil {
		if KindOf(err) != "" {
			return nil, err
		}
		return nil, s.storeFailure(err, "update", id)
	}

	merged, err := s.mergeUpdate(current, input)
	if err != nil {
		return nil, err
	}

	station, host, err := s.resolveDirectory(ctx, merged.StationID, merged.HostUserID)
	if err != nil {
		return nil, err
	}

	merged.UpdatedBy = &actor.UserID

	unlock := s.lockStation(merged.StationID)
	defer unlock()

	if err := s.rejectConflicts(ctx, merged, merged.ID); err != nil {
		return nil, err
	}

	if err := s.store.Replace(ctx, merged); err != nil {
		return nil, s.storeFailure(err, "update", merged.StationID)
	}

	merged.Station = station
	merged.Host = host

	s.logger.Info().
		Str("schedule_id", merged.ID).
		Str("station_id", merged.StationID).
		Str("updated_by", actor.UserID).
		Msg("schedule updated")

	s.publish(events.EventScheduleUpdated, actor, merged)
	return merged, nil
}

// Delete soft-deletes: the row is retained for audit and excluded from all
// reads and conflict checks thereafter. A second delete reports NotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "Delete")
	defer span.End()

	err := s.delete(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleOperationsTotal.WithLabelValues("delete", outcomeLabel(err)).Inc()
		return err
	}

	telemetry.ScheduleOperationsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

func (s *Service) delete(ctx context.Context, id string) error {
	actor, err := s.requireManager(ctx)
	if err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return invalidInputError("id", "malformed id")
	}

	record, err := s.store.FindByID(ctx, id, true)
	if err != nil {
		if KindOf(err) != "" {
			return err
		}
		return s.storeFailure(err, "delete", id)
	}

	if err := s.store.SoftDelete(ctx, id, actor.UserID, time.Now().UTC()); err != nil {
		if KindOf(err) != "" {
			return err
		}
		return s.storeFailure(err, "delete", id)
	}

	s.logger.Info().
		Str("schedule_id", id).
		Str("station_id", record.StationID).
		Str("deleted_by", actor.UserID).
		Msg("schedule deleted")

	s.publish(events.EventScheduleDeleted, actor, record)
	return nil
}

// GetByID returns one active schedule with station and host joined. Any
// recognized caller may read.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "GetByID")
	defer span.End()

	record, err := s.getByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleOperationsTotal.WithLabelValues("get", outcomeLabel(err)).Inc()
		return nil, err
	}

	telemetry.ScheduleOperationsTotal.WithLabelValues("get", "ok").Inc()
	return record, nil
}

func (s *Service) getByID(ctx context.Context, id string) (*models.Schedule, error) {
	if _, ok := auth.IdentityFromContext(ctx); !ok {
		return nil, unauthorizedError("caller identity required")
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidInputError("id", "malformed id")
	}

	record, err := s.store.FindByID(ctx, id, true)
	if err != nil {
		if KindOf(err) != "" {
			return nil, err
		}
		return nil, s.storeFailure(err, "get", id)
	}
	return record, nil
}

// List returns a page of active schedules ordered by start time ascending.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.Schedule, *PageInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "schedule", "List")
	defer span.End()

	rows, page, err := s.list(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ScheduleOperationsTotal.WithLabelValues("list", outcomeLabel(err)).Inc()
		return nil, nil, err
	}

	telemetry.ScheduleOperationsTotal.WithLabelValues("list", "ok").Inc()
	return rows, page, nil
}

func (s *Service) list(ctx context.Context, input ListInput) ([]models.Schedule, *PageInfo, error) {
	if _, ok := auth.IdentityFromContext(ctx); !ok {
		return nil, nil, unauthorizedError("caller identity required")
	}

	filter := ListFilter{}

	if input.StationID != "" {
		if _, err := uuid.Parse(input.StationID); err != nil {
			return nil, nil, invalidInputError("station_id", "malformed id")
		}
		filter.StationID = input.StationID
	}

	if input.Start != "" || input.End != "" {
		start, err := time.Parse(time.RFC3339, input.Start)
		if err != nil {
			return nil, nil, invalidInputError("start", "unparseable timestamp")
		}
		end, err := time.Parse(time.RFC3339, input.End)
		if err != nil {
			return nil, nil, invalidInputError("end", "unparseable timestamp")
		}
		if !start.Before(end) {
			return nil, nil, invalidInputError("start", "window start must precede end")
		}
		filter.Start = &start
		filter.End = &end
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * s.pageSize

	rows, total, err := s.store.Query(ctx, filter, offset, s.pageSize)
	if err != nil {
		return nil, nil, s.storeFailure(err, "list", filter.StationID)
	}

	return rows, &PageInfo{Total: total, Page: page, PageSize: s.pageSize}, nil
}

// requireManager enforces the admin/manager gate shared by all writes.
func (s *Service) requireManager(ctx context.Context) (*auth.Identity, error) {
	actor, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, unauthorizedError("caller identity required")
	}
	if !actor.Role.CanManageSchedules() {
		return nil, unauthorizedError("admin or manager role required")
	}
	return actor, nil
}

// validatedFields is the sanitized, typed result of create validation.
type validatedFields struct {
	stationID  string
	title      string
	hostUserID *string
	startsAt   time.Time
	endsAt     time.Time
	recurring  bool
	daysOfWeek []string
}

func (s *Service) validateCreate(input CreateInput) (*validatedFields, error) {
	if input.StationID == "" {
		return nil, invalidInputError("station_id", "required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, invalidInputError("title", "required")
	}
	if input.StartsAt == "" {
		return nil, invalidInputError("starts_at", "required")
	}
	if input.EndsAt == "" {
		return nil, invalidInputError("ends_at", "required")
	}

	if _, err := uuid.Parse(input.StationID); err != nil {
		return nil, invalidInputError("station_id", "malformed id")
	}

	hostUserID, err := normalizeHostID(input.HostUserID)
	if err != nil {
		return nil, err
	}

	startsAt, endsAt, err := parseRange(input.StartsAt, input.EndsAt)
	if err != nil {
		return nil, err
	}

	daysOfWeek, err := s.validateDays(input.Recurring, input.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	title := s.sanitizeText(input.Title)
	if title == "" {
		return nil, invalidInputError("title", "empty after sanitization")
	}

	return &validatedFields{
		stationID:  input.StationID,
		title:      title,
		hostUserID: hostUserID,
		startsAt:   startsAt,
		endsAt:     endsAt,
		recurring:  input.Recurring,
		daysOfWeek: daysOfWeek,
	}, nil
}

// mergeUpdate overlays supplied fields on the current record and re-runs
// whole-record validation on the result.
func (s *Service) mergeUpdate(current *models.Schedule, input UpdateInput) (*models.Schedule, error) {
	merged := *current
	// Drop joined rows; they are re-resolved after validation.
	merged.Station = nil
	merged.Host = nil

	if input.StationID != nil {
		if _, err := uuid.Parse(*input.StationID); err != nil {
			return nil, invalidInputError("station_id", "malformed id")
		}
		merged.StationID = *input.StationID
	}

	if input.Title != nil {
		title := s.sanitizeText(*input.Title)
		if title == "" {
			return nil, invalidInputError("title", "empty after sanitization")
		}
		merged.Title = title
	}

	if input.HostUserID != nil {
		hostUserID, err := normalizeHostID(input.HostUserID)
		if err != nil {
			return nil, err
		}
		merged.HostUserID = hostUserID
	}

	startsAt := merged.StartsAt
	endsAt := merged.EndsAt
	if input.StartsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *input.StartsAt)
		if err != nil {
			return nil, invalidInputError("starts_at", "unparseable timestamp")
		}
		startsAt = parsed.UTC()
	}
	if input.EndsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *input.EndsAt)
		if err != nil {
			return nil, invalidInputError("ends_at", "unparseable timestamp")
		}
		endsAt = parsed.UTC()
	}
	if !startsAt.Before(endsAt) {
		return nil, invalidInputError("starts_at", "start must precede end")
	}
	merged.StartsAt = startsAt
	merged.EndsAt = endsAt

	if input.Recurring != nil {
		merged.Recurring = *input.Recurring
	}
	if input.DaysOfWeek != nil {
		merged.DaysOfWeek = input.DaysOfWeek
	}

	daysOfWeek, err := s.validateDays(merged.Recurring, merged.DaysOfWeek)
	if err != nil {
		return nil, err
	}
	merged.DaysOfWeek = daysOfWeek

	return &merged, nil
}

// validateDays normalizes the weekday set and enforces the recurring
// invariant: a recurring slot needs at least one canonical weekday.
func (s *Service) validateDays(recurring bool, days []string) ([]string, error) {
	normalized, ok := models.NormalizeDays(days)
	if !ok {
		return nil, invalidInputError("days_of_week", "unknown weekday name")
	}
	if recurring && len(normalized) == 0 {
		return nil, invalidInputError("days_of_week", "required for recurring schedules")
	}
	return normalized, nil
}

// sanitizeText strips markup from a free-text field before storage.
func (s *Service) sanitizeText(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

// resolveDirectory confirms the station (and host, when set) are active at
// check time. Later directory deactivation is not re-verified.
func (s *Service) resolveDirectory(ctx context.Context, stationID string, hostUserID *string) (*models.Station, *models.User, error) {
	station, err := s.directory.FindActiveStation(ctx, stationID)
	if err != nil {
		return nil, nil, s.storeFailure(err, "directory_station", stationID)
	}
	if station == nil {
		return nil, nil, notFoundError("station not found or inactive")
	}

	var host *models.User
	if hostUserID != nil {
		host, err = s.directory.FindActiveUser(ctx, *hostUserID)
		if err != nil {
			return nil, nil, s.storeFailure(err, "directory_user", *hostUserID)
		}
		if host == nil {
			return nil, nil, notFoundError("host not found or inactive")
		}
	}

	return station, host, nil
}

// rejectConflicts fetches the comparison set under the station lock and
// runs the detector. excludeID removes the record being updated.
func (s *Service) rejectConflicts(ctx context.Context, candidate *models.Schedule, excludeID string) error {
	existing, err := s.store.FindOverlapping(ctx, candidate.StationID, candidate.StartsAt, candidate.EndsAt, excludeID)
	if err != nil {
		return s.storeFailure(err, "conflict_check", candidate.StationID)
	}

	if hit := s.detector.FirstConflict(candidate, existing); hit != nil {
		telemetry.ScheduleConflictsTotal.WithLabelValues(candidate.StationID).Inc()
		s.logger.Debug().
			Str("station_id", candidate.StationID).
			Str("conflicting_id", hit.ID).
			Msg("schedule conflict detected")
		return conflictError("overlaps existing schedule " + hit.ID)
	}
	return nil
}

// storeFailure logs an unexpected failure with operation context and passes
// the error through; the API boundary renders it as a generic internal
// failure without leaking store details.
func (s *Service) storeFailure(err error, operation, resourceID string) error {
	s.logger.Error().Err(err).
		Str("operation", operation).
		Str("resource_id", resourceID).
		Msg("schedule store failure")
	return err
}

func (s *Service) publish(eventType events.EventType, actor *auth.Identity, record *models.Schedule) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, events.Payload{
		"actor_id":    actor.UserID,
		"station_id":  record.StationID,
		"schedule_id": record.ID,
		"title":       record.Title,
		"starts_at":   record.StartsAt,
		"ends_at":     record.EndsAt,
		"recurring":   record.Recurring,
	})
}

func normalizeHostID(hostUserID *string) (*string, error) {
	if hostUserID == nil || strings.TrimSpace(*hostUserID) == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(*hostUserID); err != nil {
		return nil, invalidInputError("host_user_id", "malformed id")
	}
	return hostUserID, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	startsAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInputError("starts_at", "unparseable timestamp")
	}
	endsAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, invalidInputError("ends_at", "unparseable timestamp")
	}
	if !startsAt.Before(endsAt) {
		return time.Time{}, time.Time{}, invalidInputError("starts_at", "start must precede end")
	}
	return startsAt.UTC(), endsAt.UTC(), nil
}

func outcomeLabel(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
