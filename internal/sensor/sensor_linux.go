//go:build linux

package sensor

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// readCPUTempC reads CPU temperature via the thermal-zone sysfs node,
// in whole millidegrees, converted to float64 degrees Celsius.
func readCPUTempC() (float64, bool) {
	data, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return 0, false
	}
	milliC, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return float64(milliC) / 1000.0, true
}

// readAmbientTempC, readHumidityPct, readPressureHPa, readLightLux read
// the BME280/VEML7700 environmental sensors. No I2C binding is available
// in this build (none of the retrieved examples carry one); these fail soft to "unavailable" exactly like any other
// missing sensor, which the anima-sensing pipeline already tolerates.
func readAmbientTempC(ctx context.Context) (float64, bool)  { return 0, false }
func readHumidityPct(ctx context.Context) (float64, bool)   { return 0, false }
func readPressureHPa(ctx context.Context) (float64, bool)   { return 0, false }
func readLightLux(ctx context.Context) (float64, bool)      { return 0, false }

var prevCPUTotal, prevCPUIdle, prevCPUIOWait uint64

// readCPUPct reads system-wide CPU utilization from /proc/stat as a delta
// against the previous read.
func readCPUPct() (float64, bool) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, false
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 {
		return 0, false
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, false
	}
	vals := make([]uint64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, false
		}
		vals = append(vals, v)
	}
	var total uint64
	for _, v := range vals {
		total += v
	}
	idle := vals[3]
	if len(vals) > 4 {
		idle += vals[4] // iowait counted as idle for utilization purposes
	}

	defer func() {
		prevCPUTotal, prevCPUIdle = total, idle
	}()

	if prevCPUTotal == 0 {
		return 0, false // first sample has no delta yet
	}
	dTotal := total - prevCPUTotal
	dIdle := idle - prevCPUIdle
	if dTotal == 0 {
		return 0, false
	}
	return 100 * (1 - float64(dIdle)/float64(dTotal)), true
}

// readIOWaitPct reads the iowait share of the same /proc/stat sample.
func readIOWaitPct() (float64, bool) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, false
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 {
		return 0, false
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 6 || fields[0] != "cpu" {
		return 0, false
	}
	vals := make([]uint64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, false
		}
		vals = append(vals, v)
	}
	var total uint64
	for _, v := range vals {
		total += v
	}
	iowait := vals[4]

	defer func() {
		prevCPUIOWait = iowait
	}()
	if prevCPUIOWait == 0 || total == 0 {
		return 0, false
	}
	dIOWait := iowait - prevCPUIOWait
	return 100 * float64(dIOWait) / float64(total), true
}

// readMemPct reads memory utilization percentage from /proc/meminfo.
func readMemPct() (float64, bool) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	var total, available float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseFloat(fields[1], 64)
		case "MemAvailable:":
			available, _ = strconv.ParseFloat(fields[1], 64)
		}
	}
	if total == 0 {
		return 0, false
	}
	return 100 * (1 - available/total), true
}
