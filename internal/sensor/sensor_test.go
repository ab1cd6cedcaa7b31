package sensor_test

import (
	"context"
	"testing"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/sensor"
)

func TestMockReadNeverBlocksAndFillsFields(t *testing.T) {
	m := sensor.NewMock(42)
	readings, err := m.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if readings.CPUTempC == nil || readings.AmbientTempC == nil || readings.HumidityPct == nil {
		t.Fatalf("expected mock to populate core fields, got %+v", readings)
	}
	if *readings.CPUPct < 0 || *readings.CPUPct > 100 {
		t.Errorf("cpu_pct out of range: %v", *readings.CPUPct)
	}
}

func TestMockAvailableMatchesPopulatedFields(t *testing.T) {
	m := sensor.NewMock(7)
	avail := m.Available()
	if !avail["cpu_temp_c"] {
		t.Errorf("expected cpu_temp_c available")
	}
}

// TestApplyWorldLightSubtractsGlowAndSmooths covers: raw=500,
// led_brightness=0.12, LED_LUX_PER_BRIGHTNESS=4000, floor=8 ->
// estimated_glow=488, world_light=12.
func TestApplyWorldLightSubtractsGlowAndSmooths(t *testing.T) {
	smoother := sensor.NewWorldLightSmoother()
	light := 500.0
	rd := domain.SensorReadings{LightLux: &light}
	sensor.ApplyWorldLight(&rd, 0.12, 4000, 8, smoother)
	if rd.WorldLightLux == nil {
		t.Fatal("expected world light to be set")
	}
	if got := *rd.WorldLightLux; got < 11.9 || got > 12.1 {
		t.Errorf("expected world_light ~= 12, got %v", got)
	}
	if rd.LEDBrightness == nil || *rd.LEDBrightness != 0.12 {
		t.Errorf("expected led_brightness recorded as 0.12, got %v", rd.LEDBrightness)
	}
}

func TestApplyWorldLightClampsToZero(t *testing.T) {
	smoother := sensor.NewWorldLightSmoother()
	light := 10.0
	rd := domain.SensorReadings{LightLux: &light}
	sensor.ApplyWorldLight(&rd, 0.12, 4000, 8, smoother)
	if *rd.WorldLightLux != 0 {
		t.Errorf("expected world_light clamped to 0, got %v", *rd.WorldLightLux)
	}
}
