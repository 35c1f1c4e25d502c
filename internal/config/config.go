package config

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"thaitanloi365/go-face-redact/facebluring"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "FACEREDACT_"

// Progress modes.
const (
	ProgressLog = "log"
	ProgressBar = "bar"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds CLI configuration for face-redact.
type Config struct {
	OutputDir string

	Detector     string
	CascadeFile  string
	ModelsDir    string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IouThreshold float64
	Angle        float64
	QThreshold   float64

	Resolution int
	Quality    int
	MarkFaces  bool
	KeepGoing  bool

	Progress  string
	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	fb := facebluring.DefaultConfig()
	return Config{
		OutputDir:    "output",
		Detector:     fb.Detector,
		CascadeFile:  fb.CascadeFile,
		ModelsDir:    fb.ModelsDir,
		MinSize:      fb.MinSize,
		MaxSize:      fb.MaxSize,
		ShiftFactor:  fb.ShiftFactor,
		ScaleFactor:  fb.ScaleFactor,
		IouThreshold: fb.IouThreshold,
		QThreshold:   fb.QThreshold,
		Resolution:   fb.Resolution,
		Quality:      facebluring.DefaultQuality,
		Progress:     ProgressLog,
		LogLevel:     "info",
		LogFormat:    LogFormatConsole,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}

	switch c.Detector {
	case facebluring.DetectorPigo, facebluring.DetectorDlib:
	default:
		return fmt.Errorf("detector must be %q or %q, got %q", facebluring.DetectorPigo, facebluring.DetectorDlib, c.Detector)
	}

	if c.MinSize <= 0 {
		return fmt.Errorf("min size must be positive")
	}
	if c.MaxSize < c.MinSize {
		return fmt.Errorf("max size (%d) must not be below min size (%d)", c.MaxSize, c.MinSize)
	}
	if c.ShiftFactor <= 0 || c.ShiftFactor > 1 {
		return fmt.Errorf("shift factor must be in (0, 1], got %g", c.ShiftFactor)
	}
	if c.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be greater than 1, got %g", c.ScaleFactor)
	}
	if c.IouThreshold <= 0 || c.IouThreshold > 1 {
		return fmt.Errorf("iou threshold must be in (0, 1], got %g", c.IouThreshold)
	}
	if c.Angle < 0 || c.Angle > 1 {
		return fmt.Errorf("angle must be in [0, 1], got %g", c.Angle)
	}

	if c.Resolution < 1 {
		return fmt.Errorf("resolution must be at least 1")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}

	if c.Progress != ProgressLog && c.Progress != ProgressBar {
		return fmt.Errorf("progress must be %q or %q, got %q", ProgressLog, ProgressBar, c.Progress)
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("log format must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// FaceBluring returns the blur and detector settings.
func (c *Config) FaceBluring() facebluring.Config {
	return facebluring.Config{
		Detector:     c.Detector,
		Angle:        c.Angle,
		CascadeFile:  c.CascadeFile,
		MinSize:      c.MinSize,
		MaxSize:      c.MaxSize,
		ShiftFactor:  c.ShiftFactor,
		ScaleFactor:  c.ScaleFactor,
		IouThreshold: c.IouThreshold,
		QThreshold:   c.QThreshold,
		ModelsDir:    c.ModelsDir,
		Resolution:   c.Resolution,
		MarkFaces:    c.MarkFaces,
	}
}

// configSetter applies values only if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if non-zero and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.setInt(flag, i, dst)
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.setFloat(flag, f, dst)
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
