package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ridetally/ridetally/internal/app/tracker"
	"github.com/ridetally/ridetally/internal/infra/sqlite"
)

// ─── Tracker API Tests ──────────────────────────────────────────────────────

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func setupServer(t *testing.T) (http.Handler, *tracker.Tracker, *testClock) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tr, err := tracker.New(sqlite.NewStore(db, ""), time.UTC)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	clock := &testClock{t: time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)}
	tr.SetClock(clock.now)

	srv := NewServer(tr)
	srv.EnableMetrics()
	return srv.Handler(), tr, clock
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestAPI_Health(t *testing.T) {
	h, _, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestAPI_Dashboard_Empty(t *testing.T) {
	h, _, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/dashboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	snap := resp["snapshot"].(map[string]interface{})
	if snap["status"] != "pending" {
		t.Errorf("expected status=pending, got %v", snap["status"])
	}
	if snap["requiredTrips"] != float64(35) {
		t.Errorf("expected requiredTrips=35, got %v", snap["requiredTrips"])
	}
	if resp["openRide"] != nil {
		t.Errorf("expected openRide=null, got %v", resp["openRide"])
	}
	hints := resp["hints"].(map[string]interface{})
	if !strings.Contains(hints["verdict"].(string), "Waiting") {
		t.Errorf("unexpected verdict hint: %v", hints["verdict"])
	}
}

func TestAPI_RideLifecycle(t *testing.T) {
	h, _, clock := setupServer(t)

	w := do(t, h, http.MethodPost, "/api/rides/start", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", w.Code)
	}
	// Starting again is a no-op.
	w = do(t, h, http.MethodPost, "/api/rides/start", "")
	if w.Code != http.StatusOK || decode(t, w)["started"] != false {
		t.Fatalf("second start: got %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/rides/open", "")
	if decode(t, w)["openRide"] == nil {
		t.Fatal("expected an open ride")
	}

	clock.t = clock.t.Add(20 * time.Minute)
	w = do(t, h, http.MethodPost, "/api/rides/end", `{"payment":"mixed","fare":80,"cash":30}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("end: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	ride := decode(t, w)["ride"].(map[string]interface{})
	if ride["cardPart"] != float64(50) || ride["durationSec"] != float64(1200) || ride["isPeak"] != true {
		t.Errorf("unexpected ride: %v", ride)
	}

	w = do(t, h, http.MethodGet, "/api/rides", "")
	rides := decode(t, w)["rides"].([]interface{})
	if len(rides) != 1 {
		t.Errorf("expected 1 ride, got %d", len(rides))
	}

	// Nothing open any more.
	w = do(t, h, http.MethodPost, "/api/rides/end", `{"payment":"cash","fare":10}`)
	if w.Code != http.StatusConflict {
		t.Errorf("end without open ride: expected 409, got %d", w.Code)
	}
}

func TestAPI_EndRide_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"no payment", `{"fare":10}`, http.StatusUnprocessableEntity},
		{"unknown payment", `{"payment":"crypto","fare":10}`, http.StatusUnprocessableEntity},
		{"card without fare", `{"payment":"card"}`, http.StatusUnprocessableEntity},
		{"cash exceeds fare", `{"payment":"mixed","fare":20,"cash":30}`, http.StatusUnprocessableEntity},
		{"bad json", `{"payment":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tr, _ := setupServer(t)
			do(t, h, http.MethodPost, "/api/rides/start", "")

			w := do(t, h, http.MethodPost, "/api/rides/end", tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tr.OpenRide() == nil {
				t.Error("rejected completion should keep the open ride")
			}
		})
	}
}

func TestAPI_Settings(t *testing.T) {
	h, _, _ := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/settings", "")
	form := decode(t, w)
	if form["minTrips"] != float64(35) || form["acceptance"] != nil {
		t.Errorf("unexpected prefilled form: %v", form)
	}

	w = do(t, h, http.MethodPut, "/api/settings",
		`{"minHours":20,"minTrips":30,"minPeakTripsPercent":60,"incentivePerTrip":2.5,"acceptance":80,"cancel":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rules := decode(t, w)["snapshot"].(map[string]interface{})["rules"].(map[string]interface{})
	if rules["minTrips"] != float64(30) || rules["incentivePerTrip"] != 2.5 {
		t.Errorf("unexpected rules: %v", rules)
	}

	w = do(t, h, http.MethodPut, "/api/settings", `{"acceptance":150}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid settings: expected 422, got %d", w.Code)
	}
}

func TestAPI_WeekResetAndArchives(t *testing.T) {
	h, _, clock := setupServer(t)
	do(t, h, http.MethodPost, "/api/rides/start", "")
	clock.t = clock.t.Add(15 * time.Minute)
	do(t, h, http.MethodPost, "/api/rides/end", `{"payment":"card","fare":40}`)

	w := do(t, h, http.MethodPost, "/api/week/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["archive"] == nil {
		t.Error("expected an archive")
	}
	if resp["snapshot"].(map[string]interface{})["totalTrips"] != float64(0) {
		t.Error("expected rides cleared")
	}

	w = do(t, h, http.MethodGet, "/api/archives?limit=5", "")
	archives := decode(t, w)["archives"].([]interface{})
	if len(archives) != 1 {
		t.Fatalf("expected 1 archive, got %d", len(archives))
	}
	if archives[0].(map[string]interface{})["total_trips"] != float64(1) {
		t.Errorf("unexpected archive: %v", archives[0])
	}

	w = do(t, h, http.MethodGet, "/api/archives?limit=x", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestAPI_ExportImport(t *testing.T) {
	h, _, clock := setupServer(t)
	do(t, h, http.MethodPost, "/api/rides/start", "")
	clock.t = clock.t.Add(15 * time.Minute)
	do(t, h, http.MethodPost, "/api/rides/end", `{"payment":"cash","fare":25}`)

	w := do(t, h, http.MethodGet, "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "ridetally-week.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := w.Body.String()

	other, _, _ := setupServer(t)
	w = do(t, other, http.MethodPost, "/api/import", exported)
	if w.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["snapshot"].(map[string]interface{})["totalTrips"] != float64(1) {
		t.Errorf("imported snapshot: %s", w.Body.String())
	}

	w = do(t, other, http.MethodPost, "/api/import", "not json")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad import: expected 422, got %d", w.Code)
	}
}

func TestAPI_Report(t *testing.T) {
	h, _, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "Weekly incentive report") {
		t.Errorf("unexpected report:\n%s", w.Body.String())
	}
}

func TestAPI_Metrics(t *testing.T) {
	h, _, _ := setupServer(t)
	do(t, h, http.MethodGet, "/api/dashboard", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ridetally_engine_recomputations_total") {
		t.Error("expected ridetally metrics in /metrics output")
	}
}
