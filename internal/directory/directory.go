/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package directory resolves stations and users for schedule bookings.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_media/internal/cache"
	"github.com/friendsincode/muninn_media/internal/events"
	"github.com/friendsincode/muninn_media/internal/models"
)

// Service answers active-entity lookups. A nil result with nil error means
// the id resolves to nothing active. Reads go through the cache when one is
// configured; misses fall through to the database and warm the cache.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// New creates a directory service. cache may be nil.
func New(db *gorm.DB, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		cache:  c,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// FindActiveStation returns the active station with the given id, or nil.
func (s *Service) FindActiveStation(ctx context.Context, id string) (*models.Station, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetStation(ctx, id); ok {
			if !cached.Active {
				return nil, nil
			}
			return &models.Station{
				ID:       cached.ID,
				Name:     cached.Name,
				Timezone: cached.Timezone,
				Active:   cached.Active,
			}, nil
		}
	}

	var station models.Station
	err := s.db.WithContext(ctx).First(&station, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find station: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetStation(ctx, &cache.CachedStation{
			ID:       station.ID,
			Name:     station.Name,
			Timezone: station.Timezone,
			Active:   station.Active,
		})
	}

	if !station.Active {
		return nil, nil
	}
	return &station, nil
}

// FindActiveUser returns the active user with the given id, or nil.
func (s *Service) FindActiveUser(ctx context.Context, id string) (*models.User, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetUser(ctx, id); ok {
			if !cached.Active {
				return nil, nil
			}
			return &models.User{
				ID:     cached.ID,
				Email:  cached.Email,
				Name:   cached.Name,
				Role:   models.RoleName(cached.Role),
				Active: cached.Active,
			}, nil
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetUser(ctx, &cache.CachedUser{
			ID:     user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   string(user.Role),
			Active: user.Active,
		})
	}

	if !user.Active {
		return nil, nil
	}
	return &user, nil
}

// WatchInvalidations drains directory cache invalidation events until the
// context ends. Run it in its own goroutine.
func (s *Service) WatchInvalidations(ctx context.Context, bus *events.Bus) {
	if s.cache == nil || bus == nil {
		return
	}

	stations := bus.Subscribe(events.EventStationUpdated)
	users := bus.Subscribe(events.EventUserUpdated)
	defer bus.Unsubscribe(events.EventStationUpdated, stations)
	defer bus.Unsubscribe(events.EventUserUpdated, users)

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-stations:
			if id, ok := payload["station_id"].(string); ok {
				if err := s.cache.InvalidateStation(ctx, id); err != nil {
					s.logger.Debug().Err(err).Str("station_id", id).Msg("station cache invalidation failed")
				}
			}
		case payload := <-users:
			if id, ok := payload["user_id"].(string); ok {
				if err := s.cache.InvalidateUser(ctx, id); err != nil {
					s.logger.Debug().Err(err).Str("user_id", id).Msg("user cache invalidation failed")
				}
			}
		}
	}
}
