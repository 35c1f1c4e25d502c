package facebluring

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// DefaultResolution caps the longer side of a face, in pixels, while it is
// downsampled. Faces smaller than this are left at their own resolution.
const DefaultResolution = 10

// ErrDecode is returned when the input bytes are not a decodable image.
var ErrDecode = errors.New("decode image")

// Config config
type Config struct {
	// Detector selects the face detector: "pigo" (default) or "dlib".
	Detector string

	// pigo cascade parameters. An empty CascadeFile uses the facefinder
	// cascade bundled with the binary.
	Angle        float64
	CascadeFile  string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IouThreshold float64
	QThreshold   float64

	// ModelsDir holds the dlib models used by the "dlib" detector.
	ModelsDir string

	Resolution int
	MarkFaces  bool
}

// DefaultConfig returns the configuration used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Detector:     DetectorPigo,
		CascadeFile:  "",
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IouThreshold: 0.2,
		QThreshold:   5.0,
		ModelsDir:    "models",
		Resolution:   DefaultResolution,
	}
}

func withDefaults(config *Config) *Config {
	var c = DefaultConfig()
	if config == nil {
		return &c
	}

	var out = *config
	if out.Detector == "" {
		out.Detector = c.Detector
	}
	if out.MinSize == 0 {
		out.MinSize = c.MinSize
	}
	if out.MaxSize == 0 {
		out.MaxSize = c.MaxSize
	}
	if out.ShiftFactor == 0 {
		out.ShiftFactor = c.ShiftFactor
	}
	if out.ScaleFactor == 0 {
		out.ScaleFactor = c.ScaleFactor
	}
	if out.IouThreshold == 0 {
		out.IouThreshold = c.IouThreshold
	}
	// A negative QThreshold keeps every cluster.
	if out.QThreshold == 0 {
		out.QThreshold = c.QThreshold
	}
	if out.ModelsDir == "" {
		out.ModelsDir = c.ModelsDir
	}
	if out.Resolution <= 0 {
		out.Resolution = c.Resolution
	}
	return &out
}

// Result is the outcome of blurring one image.
type Result struct {
	Image image.Image
	Faces []Face
}

// FaceBluring detects faces and blurs them.
type FaceBluring struct {
	fd       *Config
	detector Detector
}

// New builds a FaceBluring with the detector named in config.
func New(config *Config) (*FaceBluring, error) {
	var fd = withDefaults(config)

	detector, err := NewDetector(fd)
	if err != nil {
		return nil, err
	}
	return &FaceBluring{fd: fd, detector: detector}, nil
}

// NewWithDetector builds a FaceBluring around an existing detector.
func NewWithDetector(config *Config, detector Detector) *FaceBluring {
	return &FaceBluring{fd: withDefaults(config), detector: detector}
}

// Close releases the detector if it holds native resources.
func (f *FaceBluring) Close() error {
	if c, ok := f.detector.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Blur decodes data, blurs every detected face and returns the modified image.
func (f *FaceBluring) Blur(data []byte) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return f.BlurImage(src)
}

// BlurImage blurs every detected face of an already decoded image. src is not
// modified.
func (f *FaceBluring) BlurImage(src image.Image) (*Result, error) {
	var canvas = imaging.Clone(src)

	faces, err := f.detector.Detect(canvas)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	for _, face := range faces {
		blurFace(canvas, face.Rect, f.fd.Resolution)
	}

	if f.fd.MarkFaces && len(faces) > 0 {
		return &Result{Image: markFaces(canvas, faces), Faces: faces}, nil
	}
	return &Result{Image: canvas, Faces: faces}, nil
}

// blurFace shrinks the region to at most resolution pixels on its longer side
// with an area filter, scales it back up bilinearly and writes it over the
// same region of img.
func blurFace(img *image.NRGBA, rect image.Rectangle, resolution int) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}

	w, h := rect.Dx(), rect.Dy()
	dw, dh := DownsizeTarget(w, h, resolution)

	var faceZone = imaging.Crop(img, rect)
	var small = imaging.Resize(faceZone, dw, dh, imaging.Box)
	var blurred = imaging.Resize(small, w, h, imaging.Linear)

	draw.Draw(img, rect, blurred, image.Point{}, draw.Src)
}

// DownsizeTarget returns the size a w×h face is shrunk to: the longer side is
// scaled to resolution keeping the aspect ratio, and each side is clamped to
// [1, original].
func DownsizeTarget(w, h, resolution int) (int, int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if resolution < 1 {
		resolution = 1
	}

	var r = float64(resolution)
	var s = math.Min(r/float64(w), r/float64(h))

	return clamp(int(math.Round(s*float64(w))), 1, w), clamp(int(math.Round(s*float64(h))), 1, h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// markFaces outlines every face on a copy of img.
func markFaces(img image.Image, faces []Face) image.Image {
	var dc = gg.NewContextForImage(img)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(2)
	for _, face := range faces {
		var r = face.Rect
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
	}
	return dc.Image()
}
