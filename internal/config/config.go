// Package config loads Anima's on-disk configuration: a typed Config
// struct, a Default() with sane values, and a home-directory resolver,
// decoding anima_config.yaml. Loaded values are not validated.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all broker/server configuration.
type Config struct {
	Node        NodeConfig        `yaml:"node"`
	API         APIConfig         `yaml:"api"`
	Calibration CalibrationConfig `yaml:"calibration"`
	LED         LEDConfig         `yaml:"led"`
	Drawing     DrawingConfig     `yaml:"drawing"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// NodeConfig identifies this creature instance.
type NodeConfig struct {
	UUIDOverride string `yaml:"uuid_override"`
	DataDir      string `yaml:"data_dir"`
}

// APIConfig controls the server's HTTP surface.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CalibrationConfig is the static calibration loaded at startup; the
// learning component adapts an in-memory copy of it and writes neither
// this YAML source file nor any calibration file.
type CalibrationConfig struct {
	CPUTempMin     float64 `yaml:"cpu_temp_min"`
	CPUTempMax     float64 `yaml:"cpu_temp_max"`
	AmbientTempMin float64 `yaml:"ambient_temp_min"`
	AmbientTempMax float64 `yaml:"ambient_temp_max"`
	PressureIdeal  float64 `yaml:"pressure_ideal"`
	HumidityIdeal  float64 `yaml:"humidity_ideal"`
	LightReference float64 `yaml:"light_reference"`
}

// LEDConfig controls lighthouse brightness and glow-correction constants.
type LEDConfig struct {
	DefaultBrightness float64 `yaml:"default_brightness"`
	MaxBrightness     float64 `yaml:"max_brightness"`
	LuxPerBrightness  float64 `yaml:"lux_per_brightness"`
	GlowFloor         float64 `yaml:"glow_floor"`
}

// DrawingConfig controls the drawing engine's autonomy thresholds.
type DrawingConfig struct {
	AutoRotateEra bool `yaml:"auto_rotate_era"`
	PixelCap      int  `yaml:"pixel_cap"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns production defaults for every configurable constant.
func Default() Config {
	home := AnimaHome()
	return Config{
		Node: NodeConfig{
			DataDir: home,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8420,
		},
		Calibration: CalibrationConfig{
			CPUTempMin:     35,
			CPUTempMax:     70,
			AmbientTempMin: 18,
			AmbientTempMax: 28,
			PressureIdeal:  1013.25,
			HumidityIdeal:  45,
			LightReference: 300,
		},
		LED: LEDConfig{
			DefaultBrightness: 0.04,
			MaxBrightness:     0.12,
			LuxPerBrightness:  4000,
			GlowFloor:         8,
		},
		Drawing: DrawingConfig{
			AutoRotateEra: true,
			PixelCap:      15000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and decodes anima_config.yaml at path, falling back to
// defaults for any zero-valued field left unset. A missing file is not
// an error — Default() is returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// AnimaHome resolves the ~/.anima data directory, honoring ANIMA_HOME.
func AnimaHome() string {
	if v := os.Getenv("ANIMA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anima"
	}
	return filepath.Join(home, ".anima")
}

// ConfigPath resolves the config file path, honoring ANIMA_CONFIG.
func ConfigPath() string {
	if v := os.Getenv("ANIMA_CONFIG"); v != "" {
		return v
	}
	return "anima_config.yaml"
}
