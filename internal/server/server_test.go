package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/growth"
	"github.com/anima-project/anima/internal/health"
	"github.com/anima-project/anima/internal/history"
	"github.com/anima-project/anima/internal/schema"
	"github.com/anima-project/anima/internal/selfmodel"
	"github.com/anima-project/anima/internal/server"
)

func validTestCalibration() domain.Calibration {
	return domain.Calibration{
		CPUTempMin: 30, CPUTempMax: 80,
		AmbientTempMin: 10, AmbientTempMax: 35,
		PressureIdeal: 1013, HumidityIdeal: 45, LightReference: 300,
		WarmthWeights:    domain.ComponentWeights{"cpu_temp": 0.6, "ambient_temp": 0.4},
		ClarityWeights:   domain.ComponentWeights{"bands": 1.0},
		StabilityWeights: domain.ComponentWeights{"pressure": 0.5, "humidity": 0.5},
		PresenceWeights:  domain.ComponentWeights{"interaction_recency": 1.0},
	}
}

type fakeCalibrationControl struct {
	written domain.CalibrationOverride
	wrote   bool
}

func (f *fakeCalibrationControl) WriteOverride(o domain.CalibrationOverride) error {
	f.written, f.wrote = o, true
	return nil
}

type fakeIdentity struct{}

func (fakeIdentity) BeginSession(now time.Time) (domain.Identity, error) {
	return domain.Identity{BirthUUID: "fake"}, nil
}
func (fakeIdentity) RecordState(row domain.StateHistoryRow) error { return nil }
func (fakeIdentity) RecentStates(since time.Time, limit int) ([]domain.StateHistoryRow, error) {
	return nil, nil
}
func (fakeIdentity) Current() (domain.Identity, error) {
	return domain.Identity{BirthUUID: "fake", Name: "anima"}, nil
}

type fakeShmReader struct {
	snap  domain.SharedSnapshot
	fresh bool
}

func (f fakeShmReader) Read() (domain.SharedSnapshot, error) { return f.snap, nil }
func (f fakeShmReader) Fresh(domain.SharedSnapshot) bool      { return f.fresh }

func newTestServer() *server.Server {
	deps := server.Deps{
		SharedMemory: fakeShmReader{
			snap: domain.SharedSnapshot{UpdatedAt: time.Now(), Data: domain.SharedData{
				Anima:       domain.Anima{Warmth: 0.5, Clarity: 0.5, Stability: 0.5, Presence: 0.5},
				Calibration: validTestCalibration(),
			}},
			fresh: true,
		},
		Identity:  fakeIdentity{},
		Schema:    schema.New(),
		Growth:    growth.New(),
		SelfModel: selfmodel.New(),
		History:   history.New(history.DefaultCapacity),
		Health:    health.New(),
	}
	return server.New(deps)
}

func TestPollSucceedsOnRepeatedCalls(t *testing.T) {
	s := newTestServer()
	s.Poll(context.Background(), time.Now())
	// no panics, no error return — a second poll should also succeed
	s.Poll(context.Background(), time.Now().Add(2*time.Second))
}

func TestHandleGetStateBeforeFirstPollReturnsUnavailable(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleGetStateAfterPollReturnsOK(t *testing.T) {
	s := newTestServer()
	s.Poll(context.Background(), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleGetIdentityReturnsCurrentIdentity(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/identity", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleGetCalibrationReturnsLastSnapshot(t *testing.T) {
	s := newTestServer()
	s.Poll(context.Background(), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/calibration", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleSetCalibrationAppliesValidPartial(t *testing.T) {
	control := &fakeCalibrationControl{}
	deps := server.Deps{
		SharedMemory: fakeShmReader{
			snap: domain.SharedSnapshot{UpdatedAt: time.Now(), Data: domain.SharedData{
				Anima:       domain.Anima{Warmth: 0.5, Clarity: 0.5, Stability: 0.5, Presence: 0.5},
				Calibration: validTestCalibration(),
			}},
			fresh: true,
		},
		Identity:           fakeIdentity{},
		Schema:             schema.New(),
		Growth:             growth.New(),
		SelfModel:          selfmodel.New(),
		History:            history.New(history.DefaultCapacity),
		Health:             health.New(),
		CalibrationControl: control,
	}
	s := server.New(deps)
	s.Poll(context.Background(), time.Now())

	body, _ := json.Marshal(map[string]interface{}{"partial": map[string]float64{"pressure_ideal": 1005}})
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if !control.wrote {
		t.Error("expected a validated override to be handed to the calibration control bridge")
	}
}

func TestHandleSetCalibrationRejectsInvalidPartial(t *testing.T) {
	s := newTestServer()
	s.Poll(context.Background(), time.Now())

	body, _ := json.Marshal(map[string]interface{}{"partial": map[string]float64{"cpu_temp_min": 100, "cpu_temp_max": 50}})
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestHandleGetTrajectoryIncludesLineageSimilarity(t *testing.T) {
	s := newTestServer()
	s.Poll(context.Background(), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/trajectory", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["trajectory"]; !ok {
		t.Error("expected response to include a composed trajectory")
	}
	if _, ok := resp["lineage_similarity"]; !ok {
		t.Error("expected response to include lineage_similarity")
	}
}

func TestHandleGetHealthReturnsOK(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
