// Package batch runs the face blur over every image of a source and mirrors
// the result into an output directory.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"thaitanloi365/go-face-redact/facebluring"
	"thaitanloi365/go-face-redact/source"
)

// DefaultOutputDir is used when no output directory is configured.
const DefaultOutputDir = "output"

// ErrPartial is returned by Run in keep-going mode when at least one entry
// failed.
var ErrPartial = errors.New("some entries failed")

// Blurrer blurs the faces of one encoded image.
type Blurrer interface {
	Blur(data []byte) (*facebluring.Result, error)
}

// Stats summarizes a run.
type Stats struct {
	Dirs    int
	Files   int
	Faces   int
	Failed  int
	Elapsed time.Duration
}

// Driver writes blurred copies of every source entry under an output
// directory. Entries are processed one at a time, in source order.
type Driver struct {
	blurrer   Blurrer
	outputDir string
	quality   int
	keepGoing bool
	log       zerolog.Logger
	progress  Progress
}

// Option configures a Driver.
type Option func(*Driver)

// WithOutputDir sets the output root.
func WithOutputDir(dir string) Option {
	return func(d *Driver) { d.outputDir = dir }
}

// WithQuality sets the JPEG quality of written images.
func WithQuality(q int) Option {
	return func(d *Driver) { d.quality = q }
}

// WithKeepGoing makes Run skip entries that fail instead of aborting.
func WithKeepGoing(keepGoing bool) Option {
	return func(d *Driver) { d.keepGoing = keepGoing }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithProgress replaces the default per-entry log lines.
func WithProgress(p Progress) Option {
	return func(d *Driver) { d.progress = p }
}

// New returns a Driver using b for every file entry.
func New(b Blurrer, opts ...Option) *Driver {
	d := &Driver{
		blurrer:   b,
		outputDir: DefaultOutputDir,
		quality:   facebluring.DefaultQuality,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.progress == nil {
		d.progress = NewLogProgress(d.log)
	}
	return d
}

// Run consumes src. It stops at the first failing entry unless keep-going is
// set; the output tree is left as far as it got. ctx is checked between
// entries.
func (d *Driver) Run(ctx context.Context, src source.Source) (Stats, error) {
	var stats Stats
	start := time.Now()

	if _, err := os.Stat(d.outputDir); errors.Is(err, os.ErrNotExist) {
		d.log.Info().Str("dir", d.outputDir).Msg("creating output directory")
	}
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return stats, fmt.Errorf("create output directory: %w", err)
	}

	d.progress.Start(source.Len(src))
	defer d.progress.Finish()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entry, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", src.Kind(), err)
		}

		out := filepath.Join(d.outputDir, filepath.FromSlash(entry.Name))

		if entry.IsDir {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return stats, fmt.Errorf("create %s: %w", out, err)
			}
			d.log.Debug().Str("dir", out).Msg("directory")
			stats.Dirs++
			continue
		}

		faces, err := d.processFile(entry, out)
		if err != nil {
			if !d.keepGoing {
				return stats, fmt.Errorf("%s: %w", entry.Name, err)
			}
			d.log.Error().Err(err).Str("entry", entry.Name).Msg("skipping entry")
			stats.Failed++
			d.progress.Step(out, -1)
			continue
		}

		stats.Files++
		stats.Faces += faces
		d.progress.Step(out, faces)
	}

	stats.Elapsed = time.Since(start)
	d.log.Info().
		Int("files", stats.Files).
		Int("dirs", stats.Dirs).
		Int("faces", stats.Faces).
		Int("failed", stats.Failed).
		Dur("elapsed", stats.Elapsed).
		Msg("done")

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrPartial, stats.Failed, stats.Failed+stats.Files)
	}
	return stats, nil
}

// processFile blurs one entry and writes it to out, replacing any existing
// file. Nothing is written if blurring or encoding fails.
func (d *Driver) processFile(entry source.Entry, out string) (int, error) {
	res, err := d.blurrer.Blur(entry.Data)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := facebluring.Encode(&buf, res.Image, entry.Name, d.quality); err != nil {
		return 0, err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return len(res.Faces), nil
}
