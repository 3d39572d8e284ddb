package facility

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	svc := NewService(&mockRepository{}, &mockCatalog{
		specs:     []SpecializationRef{{ID: 1, Name: "Cardiology"}},
		wardTypes: map[int]string{2: "ICU"},
	}, 0, zerolog.Nop())
	return NewHandler(svc), svc
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	if body == "" {
		body = "{}"
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, h(c)
}

func TestHandler_SessionLifecycle(t *testing.T) {
	h, svc := newTestHandler(t)

	rec, err := doJSON(t, h.CreateSession, http.MethodPost, "/sessions", `{"seed": true}`, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var created struct {
		Session   Session `json:"session"`
		Aggregate View    `json:"aggregate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Session.ID == "" {
		t.Fatal("expected a session id")
	}
	if len(created.Aggregate.Departments) != 1 {
		t.Errorf("seeded departments = %d, want 1", len(created.Aggregate.Departments))
	}

	rec, err = doJSON(t, h.GetSession, http.MethodGet, "/sessions/x", "", map[string]string{"id": created.Session.ID})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	if _, err = doJSON(t, h.DeleteSession, http.MethodDelete, "/sessions/x", "", map[string]string{"id": created.Session.ID}); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.Session(created.Session.ID); err == nil {
		t.Error("session should be gone after delete")
	}
}

func TestHandler_GetSession_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := doJSON(t, h.GetSession, http.MethodGet, "/sessions/x", "", map[string]string{"id": "missing"})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_BuildHierarchy(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _ := svc.CreateSession(context.Background(), false)
	p := map[string]string{"id": sess.ID}

	rec, err := doJSON(t, h.AddDepartment, http.MethodPost, "/departments", `{"name": "Oncology"}`, p)
	if err != nil {
		t.Fatalf("AddDepartment: %v", err)
	}
	var dept Department
	json.Unmarshal(rec.Body.Bytes(), &dept)

	// Duplicate name conflicts.
	_, err = doJSON(t, h.AddDepartment, http.MethodPost, "/departments", `{"name": "Oncology"}`, p)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Fatalf("duplicate department: expected 409, got %v", err)
	}

	rec, err = doJSON(t, h.AddWard, http.MethodPost, "/wards", `{"ward_type_id": 2, "department_id": "`+dept.ID+`"}`, p)
	if err != nil {
		t.Fatalf("AddWard: %v", err)
	}
	var ward Ward
	json.Unmarshal(rec.Body.Bytes(), &ward)
	if ward.Name != "ICU 1" {
		t.Errorf("ward name = %q, want ICU 1", ward.Name)
	}

	rec, err = doJSON(t, h.AddRoom, http.MethodPost, "/rooms", `{"number": "101", "ward_id": "`+ward.ID+`", "amenities": ["1", "2"]}`, p)
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	var room Room
	json.Unmarshal(rec.Body.Bytes(), &room)

	rec, err = doJSON(t, h.AddBeds, http.MethodPost, "/beds", `{"room_id": "`+room.ID+`", "count": 2}`, p)
	if err != nil {
		t.Fatalf("AddBeds: %v", err)
	}
	var beds []Bed
	json.Unmarshal(rec.Body.Bytes(), &beds)
	if len(beds) != 2 {
		t.Fatalf("beds = %d, want 2", len(beds))
	}
	if len(beds[0].Amenities) != 2 {
		t.Errorf("beds inherit room amenities, got %v", beds[0].Amenities)
	}

	// Zero count is a validation failure.
	_, err = doJSON(t, h.AddBeds, http.MethodPost, "/beds", `{"room_id": "`+room.ID+`", "count": 0}`, p)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero beds: expected 422, got %v", err)
	}
}

func TestHandler_ToggleAmenityAndSelection(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _ := svc.CreateSession(context.Background(), false)
	p := map[string]string{"id": sess.ID}

	dept, _ := sess.Store().AddDepartment("Oncology", 2)
	ward, _ := sess.Store().AddWard(2, "ICU", dept.ID)
	room, _ := sess.Store().AddRoom("", "101", ward.ID, nil)

	rec, err := doJSON(t, h.ToggleAmenity, http.MethodPost, "/amenities/toggle",
		`{"level": "room", "entity_id": "`+room.ID+`", "amenity_id": "5"}`, p)
	if err != nil {
		t.Fatalf("ToggleAmenity: %v", err)
	}
	var toggled map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &toggled)
	if !toggled["added"] {
		t.Error("first toggle should add")
	}

	rec, err = doJSON(t, h.SetSelection, http.MethodPut, "/selection",
		`{"ward_id": "`+ward.ID+`", "room_id": "`+room.ID+`"}`, p)
	if err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	if got := sess.Store().Selection(); got.RoomID != room.ID {
		t.Errorf("selection = %+v", got)
	}

	_, err = doJSON(t, h.SetSelection, http.MethodPut, "/selection", `{"ward_id": "ghost"}`, p)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("dangling selection: expected 404, got %v", err)
	}
}

func TestHandler_SaveAndSummary(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _ := svc.CreateSession(context.Background(), false)
	sess.Store().SeedDepartment("Cardiology", 12)
	p := map[string]string{"id": sess.ID}

	rec, err := doJSON(t, h.Save, http.MethodPost, "/save", "", p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec, err = doJSON(t, h.GetSummary, http.MethodGet, "/summary", "", p)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	var sum SaveSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Departments != 1 {
		t.Errorf("summary departments = %d, want 1", sum.Departments)
	}

	rec, err = doJSON(t, h.ListSummaries, http.MethodGet, "/summaries", "", nil)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	var sums []SaveSummary
	json.Unmarshal(rec.Body.Bytes(), &sums)
	if len(sums) != 1 {
		t.Errorf("summaries = %d, want 1", len(sums))
	}
}

func TestHandler_Save_PersistenceFailureReturnsPartial(t *testing.T) {
	repo := &mockRepository{}
	repo.failOn = "Oncology"
	svc := NewService(repo, &mockCatalog{}, 0, zerolog.Nop())
	h := NewHandler(svc)

	sess, _ := svc.CreateSession(context.Background(), false)
	sess.Store().SeedDepartment("Cardiology", 1)
	sess.Store().SeedDepartment("Oncology", 2)

	rec, err := doJSON(t, h.Save, http.MethodPost, "/save", "", map[string]string{"id": sess.ID})
	if err != nil {
		t.Fatalf("handler should write the partial response itself, got %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	var body struct {
		Error  string     `json:"error"`
		Result SaveResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Result.Saved) != 1 || body.Result.Saved[0] != "Cardiology" {
		t.Errorf("partial saved = %v, want [Cardiology]", body.Result.Saved)
	}
}

func TestHandler_DeleteCascade(t *testing.T) {
	h, svc := newTestHandler(t)
	sess, _ := svc.CreateSession(context.Background(), false)

	dept, _ := sess.Store().AddDepartment("Oncology", 2)
	ward, _ := sess.Store().AddWard(2, "ICU", dept.ID)
	room, _ := sess.Store().AddRoom("", "101", ward.ID, nil)
	sess.Store().AddBeds(room.ID, 2)

	_, err := doJSON(t, h.DeleteWard, http.MethodDelete, "/wards/x", "",
		map[string]string{"id": sess.ID, "wardId": ward.ID})
	if err != nil {
		t.Fatalf("DeleteWard: %v", err)
	}

	v := sess.Store().Snapshot()
	if len(v.Wards)+len(v.Rooms)+len(v.Beds) != 0 {
		t.Errorf("cascade incomplete: %d wards, %d rooms, %d beds", len(v.Wards), len(v.Rooms), len(v.Beds))
	}
	if len(v.Departments) != 1 {
		t.Errorf("department must survive a ward delete")
	}
}
