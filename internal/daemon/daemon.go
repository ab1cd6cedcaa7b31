// Package daemon wires every subsystem into the two runnable halves of
// the creature process split: the broker (sensors/actuators) and the
// server (schema, reflection, HTTP).
package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anima-project/anima/internal/broker"
	"github.com/anima-project/anima/internal/calibration"
	"github.com/anima-project/anima/internal/config"
	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/growth"
	"github.com/anima-project/anima/internal/health"
	"github.com/anima-project/anima/internal/history"
	"github.com/anima-project/anima/internal/identity"
	"github.com/anima-project/anima/internal/schema"
	"github.com/anima-project/anima/internal/selfmodel"
	"github.com/anima-project/anima/internal/sensor"
	"github.com/anima-project/anima/internal/server"
	"github.com/anima-project/anima/internal/shm"
)

// sharedMemoryFile is the tmpfs document broker and server share.
const sharedMemoryFile = "anima_shared.json"

// calibrationControlFile carries validated set_calibration requests from
// the server process to the broker process.
const calibrationControlFile = "anima_calibration_control.json"

// busContentionWindow is how fresh an existing shared-memory heartbeat
// must be for a second broker startup to treat the bus as already owned.
const busContentionWindow = 10 * time.Second

// Daemon is the shared bootstrap for both broker and serve subcommands:
// it owns config, the identity store, and the health registry, which
// both halves need regardless of which one a given process runs.
type Daemon struct {
	Config      config.Config
	Identity    *identity.Store
	Health      *health.Registry
	Bridge      *shm.Bridge
	Calibration *shm.CalibrationBridge
}

// New loads config and opens the identity store at the configured data
// directory.
func New() (*Daemon, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a Daemon from an already-loaded Config.
func NewWithConfig(cfg config.Config) (*Daemon, error) {
	dataDir := cfg.Node.DataDir
	if dataDir == "" {
		dataDir = config.AnimaHome()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := identity.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}

	return &Daemon{
		Config:      cfg,
		Identity:    store,
		Health:      health.New(),
		Bridge:      shm.New(filepath.Join(dataDir, sharedMemoryFile)),
		Calibration: shm.NewCalibrationBridge(filepath.Join(dataDir, calibrationControlFile)),
	}, nil
}

// Close releases the Daemon's resources.
func (d *Daemon) Close() {
	if d.Identity != nil {
		_ = d.Identity.Close()
	}
}

// RunBroker starts the hardware-facing tick loop and blocks until a
// shutdown signal arrives.
func (d *Daemon) RunBroker(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.checkBusContention(time.Now()); err != nil {
		return err
	}

	if _, err := d.Identity.BeginSession(time.Now()); err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	cal := calibration.FromConfigValues(
		d.Config.Calibration.CPUTempMin, d.Config.Calibration.CPUTempMax,
		d.Config.Calibration.AmbientTempMin, d.Config.Calibration.AmbientTempMax,
		d.Config.Calibration.PressureIdeal, d.Config.Calibration.HumidityIdeal,
		d.Config.Calibration.LightReference,
	)

	var backend domain.SensorBackend
	if real := sensor.NewReal(); hasAnySensor(real.Available()) {
		backend = real
	} else {
		log.Println("[daemon] no hardware sensors detected, using mock backend")
		backend = sensor.NewMock(time.Now().UnixNano())
	}

	drawingsDir := filepath.Join(d.Config.Node.DataDir, "drawings")
	b := broker.New(broker.Config{
		Backend:            backend,
		Calibration:        cal,
		CalibrationControl: d.Calibration,
		Identity:           d.Identity,
		SharedMemory:       d.Bridge,
		Health:             d.Health,
		LEDDefault:         d.Config.LED.DefaultBrightness,
		LEDCeiling:         d.Config.LED.MaxBrightness,
		LuxPerBright:       d.Config.LED.LuxPerBrightness,
		GlowFloor:          d.Config.LED.GlowFloor,
		DrawingsDir:        drawingsDir,
		AutoRotateEra:      d.Config.Drawing.AutoRotateEra,
	})

	go b.Run(ctx)
	go d.Health.Run(ctx, time.Now)

	fmt.Println("anima broker running, tick every", broker.TickInterval)
	waitForShutdown(ctx, cancel)
	return nil
}

// RunServe starts the HTTP server and blocks until a shutdown signal
// arrives or the server errors.
func (d *Daemon) RunServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := server.Deps{
		SharedMemory:        d.Bridge,
		Identity:            d.Identity,
		Schema:              schema.New(),
		Growth:              growth.New(),
		SelfModel:           selfmodel.New(),
		History:             history.New(history.DefaultCapacity),
		Health:              d.Health,
		CalibrationControl:  d.Calibration,
	}
	srv := server.New(deps)

	go srv.Run(ctx)
	go d.Health.Run(ctx, time.Now)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("anima serving on http://%s\n", addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	cancel()
}

// checkBusContention fails with domain.ErrBusContention if the shared-memory
// document already carries a heartbeat fresher than busContentionWindow,
// which means another broker process currently owns the hardware bus.
func (d *Daemon) checkBusContention(now time.Time) error {
	snap, err := d.Bridge.Read()
	if err != nil {
		if err == shm.ErrNoSnapshot {
			return nil
		}
		return fmt.Errorf("check bus contention: %w", err)
	}
	if now.Sub(snap.UpdatedAt) <= busContentionWindow {
		return domain.ErrBusContention
	}
	return nil
}

func hasAnySensor(available map[string]bool) bool {
	for _, ok := range available {
		if ok {
			return true
		}
	}
	return false
}
