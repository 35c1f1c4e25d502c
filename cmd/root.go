package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"thaitanloi365/go-face-redact/batch"
	"thaitanloi365/go-face-redact/facebluring"
	"thaitanloi365/go-face-redact/internal/config"
	"thaitanloi365/go-face-redact/internal/logging"
	"thaitanloi365/go-face-redact/source"
)

type blurCloser interface {
	batch.Blurrer
	Close() error
}

// newBlurrer builds the face blur for a run. Tests replace it to avoid
// loading a cascade.
var newBlurrer = func(c *facebluring.Config) (blurCloser, error) {
	return facebluring.New(c)
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:   "face-redact <input-dir-or-zip-file>",
		Short: "Blur every face found in a directory or zip archive of images",
		Long: `Detects faces in every image of a directory tree or zip archive and blurs them
by shrinking each face to a few pixels and scaling it back up. Results are
written to the output directory, mirroring the input layout.`,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Usage()
			}
			cmd.SilenceUsage = true

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}
			return run(cmd, cfg, args[0])
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "Path to a TOML config file (default: ~/.face-redact/config.toml if present)")
	f.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Directory the blurred images are written to")
	f.StringVar(&cfg.Detector, "detector", cfg.Detector, "Face detector: pigo, dlib")
	f.StringVar(&cfg.CascadeFile, "cascade", cfg.CascadeFile, "Path to a pigo face cascade (default: the bundled facefinder cascade)")
	f.StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Directory holding the dlib models (dlib detector)")
	f.IntVar(&cfg.MinSize, "min-size", cfg.MinSize, "Minimum face size in pixels")
	f.IntVar(&cfg.MaxSize, "max-size", cfg.MaxSize, "Maximum face size in pixels")
	f.Float64Var(&cfg.ShiftFactor, "shift-factor", cfg.ShiftFactor, "Sliding window shift factor")
	f.Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor, "Detection window scale factor")
	f.Float64Var(&cfg.IouThreshold, "iou-threshold", cfg.IouThreshold, "Intersection over union threshold for clustering detections")
	f.Float64Var(&cfg.Angle, "angle", cfg.Angle, "Cascade rotation angle, 0.0 to 1.0 (1.0 = 2*pi)")
	f.Float64Var(&cfg.QThreshold, "q-threshold", cfg.QThreshold, "Minimum pigo detection score; the default drops weak detections, a negative value keeps every detection")
	f.IntVarP(&cfg.Resolution, "resolution", "r", cfg.Resolution, "Pixels kept on the longer side of a face while blurring")
	f.IntVarP(&cfg.Quality, "quality", "q", cfg.Quality, "JPEG output quality (1-100)")
	f.BoolVar(&cfg.MarkFaces, "mark-faces", cfg.MarkFaces, "Outline detected faces in the output")
	f.BoolVarP(&cfg.KeepGoing, "keep-going", "k", cfg.KeepGoing, "Skip images that fail instead of aborting the run")
	f.StringVar(&cfg.Progress, "progress", cfg.Progress, "Progress output: log, bar")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console, json")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	return root
}

// loadConfig layers .env, the config file and FACEREDACT_* variables under the
// flags that were set explicitly, then validates the result.
func loadConfig(cfg *config.Config, cfgPath string, changed map[string]bool) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	if cfgPath != "" || (cfgFile != "" && config.FileExists(cfgFile)) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		config.ApplyFileConfig(cfg, fc, changed)
	}

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(cmd *cobra.Command, cfg config.Config, input string) error {
	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	// The output directory may sit inside the input tree; never read back
	// what this run writes.
	src, err := source.Open(input, source.SkipDir(cfg.OutputDir))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	fbCfg := cfg.FaceBluring()
	blurrer, err := newBlurrer(&fbCfg)
	if err != nil {
		return err
	}
	defer blurrer.Close()

	opts := []batch.Option{
		batch.WithOutputDir(cfg.OutputDir),
		batch.WithQuality(cfg.Quality),
		batch.WithKeepGoing(cfg.KeepGoing),
		batch.WithLogger(log),
	}
	if cfg.Progress == config.ProgressBar {
		opts = append(opts, batch.WithProgress(batch.NewBarProgress(cmd.ErrOrStderr())))
	}

	log.Info().
		Str("input", input).
		Str("kind", src.Kind().String()).
		Str("output", cfg.OutputDir).
		Str("detector", cfg.Detector).
		Msg("starting")

	_, err = batch.New(blurrer, opts...).Run(cmd.Context(), src)
	return err
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetOut(os.Stdout)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
