package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/muninn_media/internal/audit"
	"github.com/friendsincode/muninn_media/internal/auth"
	"github.com/friendsincode/muninn_media/internal/events"
	"github.com/friendsincode/muninn_media/internal/models"
	"github.com/friendsincode/muninn_media/internal/schedule"
)

var testSecret = []byte("test-signing-key")

type stubDirectory struct {
	stations map[string]*models.Station
	users    map[string]*models.User
}

func (d *stubDirectory) FindActiveStation(_ context.Context, id string) (*models.Station, error) {
	return d.stations[id], nil
}

func (d *stubDirectory) FindActiveUser(_ context.Context, id string) (*models.User, error) {
	return d.users[id], nil
}

type apiFixture struct {
	router    chi.Router
	stationID string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.Station{}, &models.Schedule{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stationID := uuid.NewString()
	dir := &stubDirectory{
		stations: map[string]*models.Station{
			stationID: {ID: stationID, Name: "WXYZ", Active: true},
		},
		users: map[string]*models.User{},
	}

	bus := events.NewBus()
	schedules := schedule.NewService(
		schedule.NewStore(database),
		schedule.NewDetector(zerolog.Nop()),
		dir, bus, 20, zerolog.Nop(),
	)
	auditSvc := audit.NewService(database, bus, zerolog.Nop())

	router := chi.NewRouter()
	New(database, testSecret, schedules, auditSvc, nil, zerolog.Nop()).Routes(router)

	return &apiFixture{router: router, stationID: stationID}
}

func signToken(t *testing.T, role models.RoleName) string {
	t.Helper()
	claims := auth.Claims{
		UserID: uuid.NewString(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func createBody(stationID string) map[string]any {
	return map[string]any{
		"station_id": stationID,
		"title":      "Morning Drive",
		"starts_at":  "2026-03-02T09:00:00Z",
		"ends_at":    "2026-03-02T10:00:00Z",
	}
}

func TestSchedulesRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/api/v1/schedules", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/v1/schedules", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSchedulesRoleGate(t *testing.T) {
	f := newAPIFixture(t)
	webToken := signToken(t, models.RoleWebUser)

	rec := f.request(t, http.MethodPost, "/api/v1/schedules", webToken, createBody(f.stationID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("web_user create status = %d, want 403", rec.Code)
	}

	// Reads are open to any authenticated caller.
	rec = f.request(t, http.MethodGet, "/api/v1/schedules", webToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("web_user list status = %d, want 200", rec.Code)
	}
}

func TestSchedulesCreateGetDelete(t *testing.T) {
	f := newAPIFixture(t)
	token := signToken(t, models.RoleManager)

	rec := f.request(t, http.MethodPost, "/api/v1/schedules", token, createBody(f.stationID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created scheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.StationID != f.stationID {
		t.Fatalf("unexpected create response: %+v", created)
	}
	if created.Station == nil || created.Station.Name != "WXYZ" {
		t.Fatal("expected station joined in create response")
	}

	rec = f.request(t, http.MethodGet, "/api/v1/schedules/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = f.request(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = f.request(t, http.MethodGet, "/api/v1/schedules/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSchedulesConflictStatus(t *testing.T) {
	f := newAPIFixture(t)
	token := signToken(t, models.RoleAdmin)

	rec := f.request(t, http.MethodPost, "/api/v1/schedules", token, createBody(f.stationID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}

	overlap := createBody(f.stationID)
	overlap["starts_at"] = "2026-03-02T09:30:00Z"
	overlap["ends_at"] = "2026-03-02T10:30:00Z"
	rec = f.request(t, http.MethodPost, "/api/v1/schedules", token, overlap)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d, want 409, body %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode conflict body: %v", err)
	}
	if body["error"] != "schedule_conflict" {
		t.Fatalf("error code = %q", body["error"])
	}
}

func TestSchedulesValidationStatus(t *testing.T) {
	f := newAPIFixture(t)
	token := signToken(t, models.RoleManager)

	bad := createBody(f.stationID)
	bad["ends_at"] = "2026-03-02T08:00:00Z"
	rec := f.request(t, http.MethodPost, "/api/v1/schedules", token, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "invalid_input" || body["field"] != "starts_at" {
		t.Fatalf("unexpected body: %v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d, want 400", rec.Code)
	}

	rec = f.request(t, http.MethodPost, "/api/v1/schedules", token, createBody(uuid.NewString()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown station status = %d, want 404", rec.Code)
	}
}

func TestSchedulesListPagination(t *testing.T) {
	f := newAPIFixture(t)
	token := signToken(t, models.RoleManager)

	for hour := 8; hour < 11; hour++ {
		body := createBody(f.stationID)
		body["starts_at"] = fmt.Sprintf("2026-03-02T%02d:00:00Z", hour)
		body["ends_at"] = fmt.Sprintf("2026-03-02T%02d:00:00Z", hour+1)
		rec := f.request(t, http.MethodPost, "/api/v1/schedules", token, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create hour %d status = %d", hour, rec.Code)
		}
	}

	rec := f.request(t, http.MethodGet, "/api/v1/schedules?station_id="+f.stationID+"&page=1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var listBody struct {
		Schedules  []scheduleResponse `json:"schedules"`
		Pagination schedule.PageInfo  `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listBody); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if listBody.Pagination.Total != 3 || len(listBody.Schedules) != 3 {
		t.Fatalf("total = %d, rows = %d", listBody.Pagination.Total, len(listBody.Schedules))
	}

	rec = f.request(t, http.MethodGet, "/api/v1/schedules?page=zero", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page status = %d, want 400", rec.Code)
	}
}
