package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnvConfig applies FACEREDACT_* environment variables to cfg, skipping
// flags set on the command line.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("output", env("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("detector", env("DETECTOR"), &cfg.Detector)
	s.setString("cascade", env("CASCADE_FILE"), &cfg.CascadeFile)
	s.setString("models-dir", env("MODELS_DIR"), &cfg.ModelsDir)

	ints := []struct {
		flag, key string
		dst       *int
	}{
		{"min-size", "MIN_SIZE", &cfg.MinSize},
		{"max-size", "MAX_SIZE", &cfg.MaxSize},
		{"resolution", "RESOLUTION", &cfg.Resolution},
		{"quality", "QUALITY", &cfg.Quality},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, env(v.key), v.dst); err != nil {
			return err
		}
	}

	floats := []struct {
		flag, key string
		dst       *float64
	}{
		{"shift-factor", "SHIFT_FACTOR", &cfg.ShiftFactor},
		{"scale-factor", "SCALE_FACTOR", &cfg.ScaleFactor},
		{"iou-threshold", "IOU_THRESHOLD", &cfg.IouThreshold},
		{"angle", "ANGLE", &cfg.Angle},
		{"q-threshold", "Q_THRESHOLD", &cfg.QThreshold},
	}
	for _, v := range floats {
		if err := s.setFloatFromString(v.flag, env(v.key), v.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("mark-faces", env("MARK_FACES"), &cfg.MarkFaces)
	s.setBoolFromString("keep-going", env("KEEP_GOING"), &cfg.KeepGoing)
	s.setString("progress", env("PROGRESS"), &cfg.Progress)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)
	return nil
}
