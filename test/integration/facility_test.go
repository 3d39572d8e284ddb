package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/facility/internal/domain/facility"
	"github.com/hms/facility/internal/platform/auth"
	"github.com/hms/facility/internal/platform/middleware"
)

// memRepo is an in-memory stand-in for the postgres repository so the whole
// HTTP stack can be exercised without a database.
type memRepo struct {
	created map[int]*facility.SpecializationPayload
	updated map[int]*facility.SpecializationPayload
	records map[string]*facility.ServerWardRecord
}

func newMemRepo() *memRepo {
	return &memRepo{
		created: make(map[int]*facility.SpecializationPayload),
		updated: make(map[int]*facility.SpecializationPayload),
		records: make(map[string]*facility.ServerWardRecord),
	}
}

func (m *memRepo) CreateFacility(ctx context.Context, p *facility.SpecializationPayload) error {
	m.created[*p.SpecializationID] = p
	return nil
}

func (m *memRepo) UpdateFacility(ctx context.Context, id int, p *facility.SpecializationPayload) error {
	m.updated[id] = p
	return nil
}

func (m *memRepo) FetchWardRecord(ctx context.Context, wardID string) (*facility.ServerWardRecord, error) {
	rec, ok := m.records[wardID]
	if !ok {
		return nil, fmt.Errorf("ward %s not found", wardID)
	}
	return rec, nil
}

type memCatalog struct{}

func (memCatalog) ListSpecializations(ctx context.Context) ([]facility.SpecializationRef, error) {
	return []facility.SpecializationRef{
		{ID: 1, Name: "Cardiology"},
		{ID: 2, Name: "Oncology"},
	}, nil
}

func (memCatalog) WardTypeName(ctx context.Context, id int) (string, error) {
	if id == 2 {
		return "ICU", nil
	}
	return "", fmt.Errorf("unknown ward type %d", id)
}

func newTestServer(repo *memRepo) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(auth.DevAuthMiddleware())

	svc := facility.NewService(repo, memCatalog{}, 0, zerolog.Nop())
	facility.NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func request(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFacilityWizard_FullFlow(t *testing.T) {
	repo := newMemRepo()
	e := newTestServer(repo)

	// Open a seeded session.
	rec := request(t, e, http.MethodPost, "/api/v1/facility/sessions", `{"seed": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Aggregate facility.View `json:"aggregate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sid := created.Session.ID
	if len(created.Aggregate.Departments) != 2 {
		t.Fatalf("seeded departments = %d, want 2", len(created.Aggregate.Departments))
	}
	deptID := created.Aggregate.Departments[0].ID

	// Build ward -> room -> beds.
	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/wards",
		`{"ward_type_id": 2, "department_id": "`+deptID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add ward: status %d: %s", rec.Code, rec.Body.String())
	}
	var ward facility.Ward
	json.Unmarshal(rec.Body.Bytes(), &ward)

	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/rooms",
		`{"number": "101", "ward_id": "`+ward.ID+`", "amenities": ["1", "2"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add room: status %d: %s", rec.Code, rec.Body.String())
	}
	var room facility.Room
	json.Unmarshal(rec.Body.Bytes(), &room)

	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/beds",
		`{"room_id": "`+room.ID+`", "count": 3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add beds: status %d: %s", rec.Code, rec.Body.String())
	}

	// Save and confirm the seeded department went through as an update.
	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/save", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.updated) != 2 {
		t.Errorf("updated specializations = %d, want 2", len(repo.updated))
	}
	saved := repo.updated[1]
	if saved == nil || len(saved.Wards) != 1 {
		t.Fatalf("saved payload = %+v", saved)
	}
	if len(saved.Wards[0].Rooms) != 1 || len(saved.Wards[0].Rooms[0].Beds) != 3 {
		t.Errorf("nested payload wrong: %+v", saved.Wards[0])
	}

	// The summary is available afterwards.
	rec = request(t, e, http.MethodGet, "/api/v1/facility/sessions/"+sid+"/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	var sum facility.SaveSummary
	json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Beds.Total != 3 {
		t.Errorf("summary bed tally = %+v, want total 3", sum.Beds)
	}
}

func TestFacilityWizard_EditFlow(t *testing.T) {
	repo := newMemRepo()
	specID := 12

	payload := []byte(`{
		"specializationId": ` + fmt.Sprint(specID) + `,
		"specializationName": "Cardiology",
		"wardId": "ward-301",
		"wardName": "ICU 1",
		"wardTypeId": 2,
		"rooms": [{"roomId": "room-401", "roomName": "Room 101", "roomNumber": "101", "amenities": [1, 2]}],
		"beds": [{"bedId": "bed-501", "roomId": "room-401", "bedNumber": 1, "status": "occupied"}]
	}`)
	var rec0 facility.ServerWardRecord
	if err := json.Unmarshal(payload, &rec0); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	repo.records["ward-301"] = &rec0

	e := newTestServer(repo)

	rec := request(t, e, http.MethodPost, "/api/v1/facility/sessions", `{"seed": false}`)
	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	json.Unmarshal(rec.Body.Bytes(), &created)
	sid := created.Session.ID

	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/load", `{"ward_id": "ward-301"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("load: status %d: %s", rec.Code, rec.Body.String())
	}
	var view facility.View
	json.Unmarshal(rec.Body.Bytes(), &view)
	if len(view.Wards) != 1 || view.Wards[0].ID != "ward-301" {
		t.Fatalf("loaded view = %+v", view.Wards)
	}

	// Re-save: ids survive the round trip and the write is an update.
	rec = request(t, e, http.MethodPost, "/api/v1/facility/sessions/"+sid+"/save", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("save: status %d: %s", rec.Code, rec.Body.String())
	}
	saved := repo.updated[specID]
	if saved == nil {
		t.Fatal("expected an update for specialization 12")
	}
	if saved.Wards[0].WardID != "ward-301" {
		t.Errorf("ward id = %q, want ward-301 (server ids pass through)", saved.Wards[0].WardID)
	}
	if saved.Wards[0].Rooms[0].Beds[0].Status != "occupied" {
		t.Errorf("bed status lost in round trip: %+v", saved.Wards[0].Rooms[0].Beds[0])
	}
}
