/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn_media/internal/audit"
	"github.com/friendsincode/muninn_media/internal/auth"
	"github.com/friendsincode/muninn_media/internal/cache"
	"github.com/friendsincode/muninn_media/internal/models"
	"github.com/friendsincode/muninn_media/internal/schedule"
	"github.com/friendsincode/muninn_media/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	schedules *schedule.Service
	auditSvc  *audit.Service
	cache     *cache.Cache
	logger    zerolog.Logger
}

// New creates the API router wrapper. cacheSvc may be nil when caching is
// disabled by configuration.
func New(db *gorm.DB, jwtSecret []byte, schedules *schedule.Service, auditSvc *audit.Service, cacheSvc *cache.Cache, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		schedules: schedules,
		auditSvc:  auditSvc,
		cache:     cacheSvc,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authMiddleware())
		a.AddScheduleRoutes(r)
		a.AddAuditRoutes(r)
		a.AddOpsRoutes(r)
	})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	allowedSet := make(map[models.RoleName]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, exists := allowedSet[identity.Role]; !exists {
				writeError(w, http.StatusForbidden, "insufficient_role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealth reports process liveness and a database ping.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]string{
		"status":  status,
		"version": version.Version,
	})
}

// writeServiceError maps schedule service errors onto HTTP responses.
// Unknown errors become an opaque 500; the cause stays in the logs.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *schedule.Error
	switch schedule.KindOf(err) {
	case schedule.KindUnauthorized:
		writeError(w, http.StatusForbidden, "insufficient_role")
	case schedule.KindInvalidInput:
		body := map[string]string{"error": "invalid_input"}
		if errors.As(err, &svcErr) {
			body["field"] = svcErr.Field
			body["message"] = svcErr.Message
		}
		writeJSON(w, http.StatusBadRequest, body)
	case schedule.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found")
	case schedule.KindConflict:
		body := map[string]string{"error": "schedule_conflict"}
		if errors.As(err, &svcErr) {
			body["message"] = svcErr.Message
		}
		writeJSON(w, http.StatusConflict, body)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
