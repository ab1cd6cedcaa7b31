//go:build !linux

package sensor

import "context"

// Non-Linux builds (development only — the real target is a single-board
// Linux computer) report every hardware-backed reading as unavailable,
// exactly as any other sensor failure is handled: the dimension falls
// back to 0.5 with a clarity penalty rather than the tick aborting.
func readCPUTempC() (float64, bool)                       { return 0, false }
func readAmbientTempC(ctx context.Context) (float64, bool) { return 0, false }
func readHumidityPct(ctx context.Context) (float64, bool)  { return 0, false }
func readPressureHPa(ctx context.Context) (float64, bool)  { return 0, false }
func readLightLux(ctx context.Context) (float64, bool)     { return 0, false }
func readCPUPct() (float64, bool)                          { return 0, false }
func readMemPct() (float64, bool)                          { return 0, false }
func readIOWaitPct() (float64, bool)                        { return 0, false }
