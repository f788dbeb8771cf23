/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/muninn_media/internal/models"
	"github.com/friendsincode/muninn_media/internal/schedule"
)

// scheduleResponse is the wire representation of a schedule, with station
// and host joined when loaded.
type scheduleResponse struct {
	ID         string           `json:"id"`
	StationID  string           `json:"station_id"`
	Title      string           `json:"title"`
	HostUserID *string          `json:"host_user_id,omitempty"`
	StartsAt   time.Time        `json:"starts_at"`
	EndsAt     time.Time        `json:"ends_at"`
	Recurring  bool             `json:"recurring"`
	DaysOfWeek []string         `json:"days_of_week,omitempty"`
	CreatedBy  string           `json:"created_by"`
	UpdatedBy  *string          `json:"updated_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Station    *stationResponse `json:"station,omitempty"`
	Host       *hostResponse    `json:"host,omitempty"`
}

type stationResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
}

type hostResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func toScheduleResponse(s *models.Schedule) scheduleResponse {
	resp := scheduleResponse{
		ID:         s.ID,
		StationID:  s.StationID,
		Title:      s.Title,
		HostUserID: s.HostUserID,
		StartsAt:   s.StartsAt,
		EndsAt:     s.EndsAt,
		Recurring:  s.Recurring,
		DaysOfWeek: s.DaysOfWeek,
		CreatedBy:  s.CreatedBy,
		UpdatedBy:  s.UpdatedBy,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Station != nil {
		resp.Station = &stationResponse{
			ID:       s.Station.ID,
			Name:     s.Station.Name,
			Timezone: s.Station.Timezone,
		}
	}
	if s.Host != nil {
		resp.Host = &hostResponse{
			ID:    s.Host.ID,
			Name:  s.Host.Name,
			Email: s.Host.Email,
		}
	}
	return resp
}

// AddScheduleRoutes registers schedule routes.
func (a *API) AddScheduleRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", a.handleSchedulesList)
		r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleSchedulesCreate)
		r.Route("/{scheduleID}", func(r chi.Router) {
			r.Get("/", a.handleSchedulesGet)
			r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Put("/", a.handleSchedulesUpdate)
			r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleSchedulesDelete)
		})
	})
}

// handleSchedulesCreate books a new schedule slot.
func (a *API) handleSchedulesCreate(w http.ResponseWriter, r *http.Request) {
	var input schedule.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	record, err := a.schedules.Create(r.Context(), input)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(record))
}

// handleSchedulesUpdate applies a partial update to a schedule.
func (a *API) handleSchedulesUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")

	var input schedule.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	record, err := a.schedules.Update(r.Context(), id, input)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(record))
}

// handleSchedulesDelete soft-deletes a schedule.
func (a *API) handleSchedulesDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")

	if err := a.schedules.Delete(r.Context(), id); err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// handleSchedulesGet returns a single schedule with station and host joined.
func (a *API) handleSchedulesGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")

	record, err := a.schedules.GetByID(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(record))
}

// handleSchedulesList returns a page of schedules, optionally narrowed to a
// station and a [start, end) time window.
func (a *API) handleSchedulesList(w http.ResponseWriter, r *http.Request) {
	input := schedule.ListInput{
		StationID: r.URL.Query().Get("station_id"),
		Start:     r.URL.Query().Get("start"),
		End:       r.URL.Query().Get("end"),
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid_page")
			return
		}
		input.Page = page
	}

	rows, pageInfo, err := a.schedules.List(r.Context(), input)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	items := make([]scheduleResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toScheduleResponse(&rows[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schedules":  items,
		"pagination": pageInfo,
	})
}
