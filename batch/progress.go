package batch

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Progress receives one Step per processed file. faces is -1 for a file that
// failed and was skipped.
type Progress interface {
	Start(total int)
	Step(path string, faces int)
	Finish()
}

// LogProgress writes one log line per file.
type LogProgress struct {
	log zerolog.Logger
}

// NewLogProgress returns a Progress that logs through l.
func NewLogProgress(l zerolog.Logger) *LogProgress {
	return &LogProgress{log: l}
}

func (p *LogProgress) Start(int) {}

func (p *LogProgress) Step(path string, faces int) {
	if faces < 0 {
		return
	}
	p.log.Info().Str("path", path).Int("faces", faces).Msg("blurred")
}

func (p *LogProgress) Finish() {}

// BarProgress draws a progress bar, or a spinner when the total is unknown.
type BarProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewBarProgress returns a Progress drawing to w.
func NewBarProgress(w io.Writer) *BarProgress {
	return &BarProgress{w: w}
}

func (p *BarProgress) Start(total int) {
	var barTotal = int64(total)
	if barTotal <= 0 {
		barTotal = -1 // Trigger spinner mode
	}
	p.bar = progressbar.NewOptions64(barTotal,
		progressbar.OptionSetDescription("Blurring"),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionShowCount(),
	)
}

func (p *BarProgress) Step(string, int) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *BarProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
