/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/muninn_media/internal/models"
)

// AddOpsRoutes registers operational routes. Admin only.
func (a *API) AddOpsRoutes(r chi.Router) {
	r.With(a.requireRoles(models.RoleAdmin)).Post("/ops/cache/flush", a.handleCacheFlush)
}

// handleCacheFlush drops every cached directory entry, forcing the next
// lookups back to the database. Used after out-of-band station or user edits.
func (a *API) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	if a.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "cache_disabled")
		return
	}

	if err := a.cache.FlushAll(r.Context()); err != nil {
		a.logger.Error().Err(err).Msg("cache flush failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}
