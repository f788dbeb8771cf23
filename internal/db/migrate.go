/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/muninn_media/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.User{},
		&models.Station{},
		&models.Schedule{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	if err := applyPostgresScheduleOverlapGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresScheduleOverlapGuard installs a trigger that rejects two
// non-recurring active schedules on the same station with overlapping
// [starts_at, ends_at) ranges. Recurring rows are excluded: their anchor
// ranges may legitimately overlap when their weekday sets are disjoint, so
// they rely on the application-level check under the station lock.
func applyPostgresScheduleOverlapGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_station_schedule_overlap()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.ends_at <= NEW.starts_at THEN
    RAISE EXCEPTION 'schedule end must be after start'
      USING ERRCODE = '23514';
  END IF;

  IF NEW.is_active AND NOT NEW.recurring AND EXISTS (
    SELECT 1
    FROM schedules s
    WHERE s.station_id = NEW.station_id
      AND s.id <> NEW.id
      AND s.is_active
      AND NOT s.recurring
      AND tstzrange(s.starts_at, s.ends_at, '[)') && tstzrange(NEW.starts_at, NEW.ends_at, '[)')
  ) THEN
    RAISE EXCEPTION 'overlapping programming is not allowed for station %', NEW.station_id
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_station_schedule_overlap ON schedules;

CREATE TRIGGER trg_prevent_station_schedule_overlap
BEFORE INSERT OR UPDATE OF station_id, starts_at, ends_at, is_active
ON schedules
FOR EACH ROW
EXECUTE FUNCTION prevent_station_schedule_overlap();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres schedule overlap guard: %w", err)
	}

	return nil
}
