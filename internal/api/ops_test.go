package api

import (
	"net/http"
	"testing"

	"github.com/friendsincode/muninn_media/internal/models"
)

func TestOpsCacheFlushAdminOnly(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/ops/cache/flush", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	rec = f.request(t, http.MethodPost, "/api/v1/ops/cache/flush", signToken(t, models.RoleManager), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager status = %d, want 403", rec.Code)
	}

	// The fixture runs without a cache, so an admin gets the disabled answer
	// rather than a flush.
	rec = f.request(t, http.MethodPost, "/api/v1/ops/cache/flush", signToken(t, models.RoleAdmin), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("admin status = %d, want 503", rec.Code)
	}
}
