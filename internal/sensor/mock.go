package sensor

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

// Mock is a deterministic-seeded sensor backend used for development and
// tests. It produces plausible slowly-drifting readings without any real
// hardware, so the broker can run on any machine.
type Mock struct {
	rng   *rand.Rand
	t0    time.Time
	start time.Time
}

// NewMock creates a mock sensor backend seeded for reproducibility.
func NewMock(seed int64) *Mock {
	now := time.Now()
	return &Mock{rng: rand.New(rand.NewSource(seed)), t0: now, start: now}
}

// Read synthesizes a plausible reading set: slow sinusoidal drift plus
// small jitter, never missing a field (callers exercising the "sensor
// failure" path should wrap Mock or nil out fields explicitly).
func (m *Mock) Read(ctx context.Context) (domain.SensorReadings, error) {
	elapsed := time.Since(m.start).Seconds()

	cpuTemp := 45 + 8*math.Sin(elapsed/300) + m.jitter(1.0)
	ambient := 22 + 3*math.Sin(elapsed/900) + m.jitter(0.3)
	humidity := 45 + 10*math.Sin(elapsed/1200) + m.jitter(1.5)
	pressure := 1013 + 4*math.Sin(elapsed/2000) + m.jitter(0.5)
	light := 300 + 200*math.Sin(elapsed/600) + m.jitter(20)
	if light < 0 {
		light = 0
	}
	cpuPct := 20 + 15*math.Sin(elapsed/120) + m.jitter(3)
	cpuPct = clampPct(cpuPct)
	memPct := 35 + 10*math.Sin(elapsed/500) + m.jitter(2)
	memPct = clampPct(memPct)
	ioWait := 2 + 3*math.Abs(math.Sin(elapsed/80)) + m.jitter(0.5)
	ioWait = clampPct(ioWait)

	return domain.SensorReadings{
		Timestamp:    time.Now(),
		CPUTempC:     &cpuTemp,
		AmbientTempC: &ambient,
		HumidityPct:  &humidity,
		PressureHPa:  &pressure,
		LightLux:     &light,
		CPUPct:       &cpuPct,
		MemPct:       &memPct,
		IOWaitPct:    &ioWait,
	}, nil
}

func (m *Mock) jitter(scale float64) float64 {
	return (m.rng.Float64()*2 - 1) * scale
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Available reports that the mock always serves every field.
func (m *Mock) Available() map[string]bool {
	return map[string]bool{
		"cpu_temp_c": true, "ambient_temp_c": true, "humidity_pct": true,
		"pressure_hpa": true, "light_lux": true, "cpu_pct": true,
		"mem_pct": true, "io_wait_pct": true,
	}
}
