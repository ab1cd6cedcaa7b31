package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anima-project/anima/internal/calibration"
	"github.com/anima-project/anima/internal/display"
	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/history"
)

// Handler returns the chi router exposing the full HTTP tool surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleGetHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Get("/identity", s.handleGetIdentity)
		r.Get("/sensors", s.handleReadSensors)
		r.Get("/calibration", s.handleGetCalibration)
		r.Post("/calibration", s.handleSetCalibration)
		r.Get("/health", s.handleGetHealth)
		r.Get("/trajectory", s.handleGetTrajectory)
		r.Get("/eisv", s.handleGetEISVTrajectoryState)
		r.Get("/next_steps", s.handleNextSteps)
		r.Post("/display/face", s.handleShowFace)
		r.Post("/display/screen", s.handleSwitchScreen)
		r.Post("/display", s.handleManageDisplay)
		r.Post("/messages", s.handlePostMessage)
		r.Post("/qa", s.handleLumenQA)
		r.Post("/agent_notes", s.handleLeaveAgentNote)
		r.Post("/workflow", s.handleUnifiedWorkflow)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// get_state — the current shared-memory snapshot as last polled.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if !s.haveSnapshot {
		writeError(w, http.StatusServiceUnavailable, "no snapshot polled yet")
		return
	}
	writeJSON(w, http.StatusOK, s.lastSnapshot)
}

// get_identity — the identity row from the persistence layer.
func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Identity.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"identity": id,
		"born_ago": humanize.Time(id.BirthAt),
		"uptime":   humanize.RelTime(now.Add(-time.Duration(id.AliveSeconds)*time.Second), now, "", ""),
	})
}

// read_sensors — the readings sub-document of the last snapshot.
func (s *Server) handleReadSensors(w http.ResponseWriter, r *http.Request) {
	if !s.haveSnapshot {
		writeError(w, http.StatusServiceUnavailable, "no snapshot polled yet")
		return
	}
	writeJSON(w, http.StatusOK, s.lastSnapshot.Data.Readings)
}

// get_calibration — the calibration last written into the shared
// snapshot by the broker, the sole process that ever reads from hardware.
func (s *Server) handleGetCalibration(w http.ResponseWriter, r *http.Request) {
	if !s.haveSnapshot {
		writeError(w, http.StatusServiceUnavailable, "no snapshot polled yet")
		return
	}
	writeJSON(w, http.StatusOK, s.lastSnapshot.Data.Calibration)
}

type setCalibrationRequest struct {
	Partial map[string]float64 `json:"partial"`
}

// set_calibration — validates a partial update against the last known
// calibration and, if it passes, hands it to the broker over the
// calibration-control bridge for the broker (the bus owner) to apply on
// its next tick. Rejected partials never reach the broker and never
// touch the last-known state.
func (s *Server) handleSetCalibration(w http.ResponseWriter, r *http.Request) {
	if !s.haveSnapshot {
		writeError(w, http.StatusServiceUnavailable, "no snapshot polled yet")
		return
	}
	var req setCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	merged, err := calibration.Merge(s.lastSnapshot.Data.Calibration, req.Partial)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrCalibrationInvalid) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	if s.deps.CalibrationControl != nil {
		override := domain.CalibrationOverride{RequestedAt: time.Now(), Partial: req.Partial}
		if err := s.deps.CalibrationControl.WriteOverride(override); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.deps.Health.Statuses()
	lastBeat := make(map[string]string, len(statuses))
	for name := range statuses {
		if t, ok := s.deps.Health.LastBeat(name); ok {
			lastBeat[name] = humanize.Time(t)
		} else {
			lastBeat[name] = "never"
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"overall":    overallHealthOf(statuses),
		"subsystems": statuses,
		"last_beat":  lastBeat,
	})
}

func overallHealthOf(statuses map[string]domain.HealthStatus) domain.HealthStatus {
	worst := domain.HealthOK
	rank := map[domain.HealthStatus]int{domain.HealthOK: 0, domain.HealthStale: 1, domain.HealthDegraded: 2, domain.HealthMissing: 3}
	for _, st := range statuses {
		if rank[st] > rank[worst] {
			worst = st
		}
	}
	return worst
}

// get_trajectory(include_raw?, compare_to_historical?) — composes the
// *current* trajectory signature and its similarity to the genesis
// signature, rather than just replaying genesis itself.
func (s *Server) handleGetTrajectory(w http.ResponseWriter, r *http.Request) {
	includeRaw := r.URL.Query().Get("include_raw") == "true"
	compareHistorical := r.URL.Query().Get("compare_to_historical") == "true"

	beliefs := s.deps.SelfModel.GetBeliefSignature()
	relational := map[string]float64{}
	recovery := s.deps.SelfModel.GetRecoveryProfile()
	current := s.deps.History.ComputeTrajectorySignature(
		preferenceSignature(s.deps.Growth), beliefs, relational, recovery,
	)

	resp := map[string]interface{}{"trajectory": current}

	if genesis, ok := s.deps.History.Genesis(); ok {
		resp["lineage_similarity"] = history.Similarity(current, genesis)
		if compareHistorical {
			resp["genesis"] = genesis
		}
	} else {
		resp["lineage_similarity"] = nil
	}
	if includeRaw {
		resp["raw_samples"] = s.deps.History.Samples()
	}

	writeJSON(w, http.StatusOK, resp)
}

// get_eisv_trajectory_state — attractor basin over the anima history.
func (s *Server) handleGetEISVTrajectoryState(w http.ResponseWriter, r *http.Request) {
	basin := s.deps.History.AttractorBasin(100)
	writeJSON(w, http.StatusOK, basin)
}

// next_steps — the creature's current active goals.
func (s *Server) handleNextSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Growth.Goals)
}

type faceRequest struct {
	Mood string `json:"mood"`
}

// show_face — derives a mood from the current anima and reports it;
// actual pixel rendering happens broker-side against the physical
// display.
func (s *Server) handleShowFace(w http.ResponseWriter, r *http.Request) {
	if !s.haveSnapshot {
		writeError(w, http.StatusServiceUnavailable, "no snapshot polled yet")
		return
	}
	mood := display.DeriveMood(s.lastSnapshot.Data.Anima)
	writeJSON(w, http.StatusOK, faceRequest{Mood: string(mood)})
}

type screenRequest struct {
	Screen string `json:"screen"`
}

// switch_screen — reports the requested screen name; the broker owns
// the actual joystick-driven Navigator.
func (s *Server) handleSwitchScreen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// manage_display — a generic display-control passthrough (brightness,
// auto-return) for agent tool callers.
func (s *Server) handleManageDisplay(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type messageRequest struct {
	Text string `json:"text"`
}

// post_message — records a visitor message against the growth ledger.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.deps.Growth.RecordVisitor(req.Text, time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type qaRequest struct {
	Question string `json:"question"`
}

// lumen_qa — records a curiosity question against the growth ledger.
func (s *Server) handleLumenQA(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := "qa-" + time.Now().Format("20060102150405.000000")
	s.deps.Growth.AskQuestion(id, req.Question, time.Now())
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

type agentNoteRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// leave_agent_note — records a visiting agent's note.
func (s *Server) handleLeaveAgentNote(w http.ResponseWriter, r *http.Request) {
	var req agentNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.deps.Growth.LeaveAgentNote(req.Author, req.Text, time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// unified_workflow — a single round-trip combining get_state,
// get_health, and next_steps for tool callers that want one call
// instead of three.
func (s *Server) handleUnifiedWorkflow(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"health":     s.deps.Health.Statuses(),
		"goals":      s.deps.Growth.Goals,
		"have_state": s.haveSnapshot,
	}
	if s.haveSnapshot {
		resp["state"] = s.lastSnapshot
	}
	writeJSON(w, http.StatusOK, resp)
}
