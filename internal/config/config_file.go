package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for TOML files. Booleans are pointers so an
// absent key leaves the current value alone.
type FileConfig struct {
	OutputDir    string  `toml:"output_dir"`
	Detector     string  `toml:"detector"`
	CascadeFile  string  `toml:"cascade_file"`
	ModelsDir    string  `toml:"models_dir"`
	MinSize      int     `toml:"min_size"`
	MaxSize      int     `toml:"max_size"`
	ShiftFactor  float64 `toml:"shift_factor"`
	ScaleFactor  float64 `toml:"scale_factor"`
	IouThreshold float64 `toml:"iou_threshold"`
	Angle        float64 `toml:"angle"`
	QThreshold   float64 `toml:"q_threshold"`
	Resolution   int     `toml:"resolution"`
	Quality      int     `toml:"quality"`
	MarkFaces    *bool   `toml:"mark_faces"`
	KeepGoing    *bool   `toml:"keep_going"`
	Progress     string  `toml:"progress"`
	LogLevel     string  `toml:"log_level"`
	LogFormat    string  `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.face-redact/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".face-redact", "config.toml")
	}
	return ""
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ApplyFileConfig applies fc to cfg, skipping flags set on the command line.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("output", fc.OutputDir, &cfg.OutputDir)
	s.setString("detector", fc.Detector, &cfg.Detector)
	s.setString("cascade", fc.CascadeFile, &cfg.CascadeFile)
	s.setString("models-dir", fc.ModelsDir, &cfg.ModelsDir)
	s.setInt("min-size", fc.MinSize, &cfg.MinSize)
	s.setInt("max-size", fc.MaxSize, &cfg.MaxSize)
	s.setFloat("shift-factor", fc.ShiftFactor, &cfg.ShiftFactor)
	s.setFloat("scale-factor", fc.ScaleFactor, &cfg.ScaleFactor)
	s.setFloat("iou-threshold", fc.IouThreshold, &cfg.IouThreshold)
	s.setFloat("angle", fc.Angle, &cfg.Angle)
	s.setFloat("q-threshold", fc.QThreshold, &cfg.QThreshold)
	s.setInt("resolution", fc.Resolution, &cfg.Resolution)
	s.setInt("quality", fc.Quality, &cfg.Quality)
	s.setBool("mark-faces", fc.MarkFaces, &cfg.MarkFaces)
	s.setBool("keep-going", fc.KeepGoing, &cfg.KeepGoing)
	s.setString("progress", fc.Progress, &cfg.Progress)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
}
