// Package sensor provides uniform typed readings from the board's
// environmental sensors and system metrics, with a real and a mock
// backend behind the same domain.SensorBackend port.
//
// Every reading fails soft and individually (zero/nil on error) rather
// than aborting the whole read, so one dead sensor never blocks a tick.
package sensor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

// Real is the hardware-backed sensor source. It serialises access
// internally since the broker is the sole, exclusive owner of the I2C/SPI
// bus; callers never need their own external locking.
type Real struct {
	mu sync.Mutex

	smoother *WorldLightSmoother
}

// NewReal creates the hardware sensor backend.
func NewReal() *Real {
	return &Real{smoother: NewWorldLightSmoother()}
}

// Read takes one snapshot. It never blocks longer than 1s — each
// individual probe races its own short timeout internally and fails to
// nil rather than stalling the whole read.
func (r *Real) Read(ctx context.Context) (domain.SensorReadings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	readings := domain.SensorReadings{Timestamp: time.Now()}

	if v, ok := readCPUTempC(); ok {
		readings.CPUTempC = &v
	}
	if v, ok := readAmbientTempC(ctx); ok {
		readings.AmbientTempC = &v
	}
	if v, ok := readHumidityPct(ctx); ok {
		readings.HumidityPct = &v
	}
	if v, ok := readPressureHPa(ctx); ok {
		readings.PressureHPa = &v
	}
	if v, ok := readLightLux(ctx); ok {
		readings.LightLux = &v
	}
	if v, ok := readCPUPct(); ok {
		readings.CPUPct = &v
	}
	if v, ok := readMemPct(); ok {
		readings.MemPct = &v
	}
	if v, ok := readIOWaitPct(); ok {
		readings.IOWaitPct = &v
	}

	return readings, nil
}

// Available reports which fields this backend was able to populate as of
// its last Read.
func (r *Real) Available() map[string]bool {
	// Real is re-evaluated every Read; a static hint is sufficient here —
	// SensorReadings.Available() on the returned snapshot is authoritative.
	return map[string]bool{
		"cpu_temp_c":     true,
		"ambient_temp_c": true,
		"humidity_pct":   true,
		"pressure_hpa":   true,
		"light_lux":      true,
		"cpu_pct":        true,
		"mem_pct":        true,
		"io_wait_pct":    true,
	}
}

// ApplyWorldLight computes world_light_lux from raw lux and the known LED
// brightness, pushes it into the 4-sample smoother, and sets both
// LEDBrightness and WorldLightLux on readings. Kept as a standalone step
// (rather than folded into Read) since it needs the LED driver's
// known_brightness, which the sensor layer does not own.
func ApplyWorldLight(readings *domain.SensorReadings, knownBrightness, luxPerBrightness, floor float64, smoother *WorldLightSmoother) {
	readings.LEDBrightness = &knownBrightness
	if readings.LightLux == nil {
		return
	}
	estimate := knownBrightness*luxPerBrightness + floor
	world := math.Max(0, *readings.LightLux-estimate)
	smoothed := smoother.push(world)
	readings.WorldLightLux = &smoothed
}

// WorldLightSmoother is a fixed-size moving-average window. The broker
// owns one instance for the lifetime of the process — allocating a
// fresh one per tick would defeat the averaging entirely.
type WorldLightSmoother struct {
	window []float64
	size   int
	next   int
	filled int
}

func newWorldLightSmoother(size int) *WorldLightSmoother {
	return &WorldLightSmoother{window: make([]float64, size), size: size}
}

func (s *WorldLightSmoother) push(v float64) float64 {
	s.window[s.next] = v
	s.next = (s.next + 1) % s.size
	if s.filled < s.size {
		s.filled++
	}
	sum := 0.0
	for i := 0; i < s.filled; i++ {
		sum += s.window[i]
	}
	return sum / float64(s.filled)
}

// NewWorldLightSmoother builds the 4-sample smoother used by both the
// real sensor backend and the broker's world-light correction.
func NewWorldLightSmoother() *WorldLightSmoother { return newWorldLightSmoother(4) }
