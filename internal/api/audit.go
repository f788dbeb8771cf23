/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/muninn_media/internal/audit"
	"github.com/friendsincode/muninn_media/internal/models"
)

// AddAuditRoutes registers audit log routes. Admin only.
func (a *API) AddAuditRoutes(r chi.Router) {
	r.With(a.requireRoles(models.RoleAdmin)).Get("/audit", a.handleAuditQuery)
}

// handleAuditQuery returns audit entries filtered by actor, station, action
// and time range.
func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	filters := audit.QueryFilters{}

	if v := r.URL.Query().Get("actor_id"); v != "" {
		filters.ActorID = &v
	}
	if v := r.URL.Query().Get("station_id"); v != "" {
		filters.StationID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := models.AuditAction(v)
		filters.Action = &action
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start")
			return
		}
		filters.StartTime = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end")
			return
		}
		filters.EndTime = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Offset = parsed
		}
	}

	logs, total, err := a.auditSvc.Query(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": logs,
		"total":   total,
	})
}
