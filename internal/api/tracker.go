package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ridetally/ridetally/internal/domain"
	"github.com/ridetally/ridetally/internal/report"
)

// ─── Tracker API ────────────────────────────────────────────────────────────
// REST endpoints over the tracker:
//
// GET  /api/dashboard    — snapshot, status hints and the open ride
// GET  /api/report       — full weekly report (text/plain)
// GET  /api/rides        — this week's rides, newest first
// GET  /api/rides/open   — the ride in progress
// POST /api/rides/start  — open a ride
// POST /api/rides/end    — close the open ride with {payment, fare, cash}
// GET  /api/settings     — the prefilled settings form
// PUT  /api/settings     — save the settings form
// POST /api/week/reset   — archive the week and start a new one
// GET  /api/archives     — closed weeks
// GET  /api/export       — State as a JSON attachment
// POST /api/import       — replace State from an export

// maxImportBytes caps an import body.
const maxImportBytes = 4 << 20

type dashboardResponse struct {
	Snapshot domain.Snapshot  `json:"snapshot"`
	Hints    report.Hints     `json:"hints"`
	OpenRide *domain.OpenRide `json:"openRide"`
}

// handleDashboard returns the recomputed snapshot.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Dashboard()
	writeJSON(w, http.StatusOK, dashboardResponse{
		Snapshot: snap,
		Hints:    report.HintsFor(snap),
		OpenRide: s.tracker.OpenRide(),
	})
}

// handleReport renders the weekly report as plain text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.Render(w, s.tracker.Dashboard(), s.tracker.Rides(), s.tracker.Location()); err != nil {
		log.Printf("[api] render report: %v", err)
	}
}

// handleRides lists this week's rides.
func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rides": s.tracker.Rides(),
	})
}

// handleOpenRide returns the ride in progress (null when none).
func (s *Server) handleOpenRide(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"openRide": s.tracker.OpenRide(),
	})
}

// handleStartRide opens a ride. Starting while one is open is a no-op.
func (s *Server) handleStartRide(w http.ResponseWriter, r *http.Request) {
	open, started, err := s.tracker.StartRide()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if started {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"openRide": open,
		"started":  started,
	})
}

// handleEndRide closes the open ride.
func (s *Server) handleEndRide(w http.ResponseWriter, r *http.Request) {
	var c domain.Completion
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ride, err := s.tracker.EndRide(c)
	switch {
	case domain.IsRideRejection(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	case ride == nil:
		writeError(w, http.StatusConflict, "no ride in progress")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ride":     ride,
		"snapshot": s.tracker.Dashboard(),
	})
}

// handleGetSettings returns the settings form prefilled with current values.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st := s.tracker.State()
	writeJSON(w, http.StatusOK, domain.FormFrom(st.Rules, st.Stats))
}

// handleSaveSettings saves a submitted settings form.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var form domain.SettingsForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap, err := s.tracker.SaveSettings(form)
	if errors.Is(err, domain.ErrInvalidSetting) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snap,
	})
}

// handleNewWeek archives the week and clears every ride.
func (s *Server) handleNewWeek(w http.ResponseWriter, r *http.Request) {
	archive, err := s.tracker.NewWeek()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"archive":  archive,
		"snapshot": s.tracker.Dashboard(),
	})
}

// handleArchives lists closed weeks. ?limit=N caps the result.
func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	archives, err := s.tracker.Archives(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if archives == nil {
		archives = []domain.WeekArchive{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"archives": archives,
	})
}

// handleExport downloads the State.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="ridetally-week.json"`)
	if err := s.tracker.Export(w); err != nil {
		log.Printf("[api] export: %v", err)
	}
}

// handleImport replaces the State with an uploaded export.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.tracker.Import(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if errors.Is(err, domain.ErrInvalidImport) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot": snap,
	})
}
