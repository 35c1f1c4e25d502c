package facebluring

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Detector names accepted in Config.Detector.
const (
	DetectorPigo = "pigo"
	DetectorDlib = "dlib"
)

// ErrDetectorUnavailable is returned when the configured detector was not
// compiled into the binary.
var ErrDetectorUnavailable = errors.New("detector not available in this build")

// facefinder is pigo's frontal face cascade.
//
//go:embed cascade/facefinder
var facefinder []byte

// Face is a detected face in image pixel coordinates.
type Face struct {
	Rect  image.Rectangle
	Score float32
}

// Detector finds faces in an image.
type Detector interface {
	Detect(img *image.NRGBA) ([]Face, error)
}

// NewDetector returns the detector selected by config.Detector.
func NewDetector(config *Config) (Detector, error) {
	switch config.Detector {
	case "", DetectorPigo:
		return NewPigoDetector(config)
	case DetectorDlib:
		return newDlibDetector(config)
	default:
		return nil, fmt.Errorf("unknown detector %q", config.Detector)
	}
}

// PigoDetector runs a pigo cascade classifier.
type PigoDetector struct {
	fd         *Config
	classifier *pigo.Pigo
}

// NewPigoDetector unpacks the cascade file named in config, or the bundled
// facefinder cascade when none is named.
func NewPigoDetector(config *Config) (*PigoDetector, error) {
	var fd = withDefaults(config)

	var cascadeFile = facefinder
	var cascadeName = "facefinder (bundled)"
	if fd.CascadeFile != "" {
		data, err := os.ReadFile(fd.CascadeFile)
		if err != nil {
			return nil, fmt.Errorf("open cascade file %s: %w", fd.CascadeFile, err)
		}
		cascadeFile, cascadeName = data, fd.CascadeFile
	}

	var p = pigo.NewPigo()
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := p.Unpack(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade %s: %w", cascadeName, err)
	}

	return &PigoDetector{fd: fd, classifier: classifier}, nil
}

// Detect implements Detector.
func (d *PigoDetector) Detect(img *image.NRGBA) ([]Face, error) {
	var pixels = pigo.RgbToGrayscale(img)
	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()

	var imgParams = pigo.ImageParams{
		Pixels: pixels,
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.fd.MinSize,
		MaxSize:     d.fd.MaxSize,
		ShiftFactor: d.fd.ShiftFactor,
		ScaleFactor: d.fd.ScaleFactor,
		ImageParams: imgParams,
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.fd.Angle)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.fd.IouThreshold)

	return detectionsToFaces(dets, float32(d.fd.QThreshold)), nil
}

func detectionsToFaces(dets []pigo.Detection, qThreshold float32) []Face {
	var faces = make([]Face, 0, len(dets))
	for _, det := range dets {
		if det.Q < qThreshold {
			continue
		}
		faces = append(faces, Face{
			Rect: image.Rect(
				det.Col-det.Scale/2,
				det.Row-det.Scale/2,
				det.Col+det.Scale/2,
				det.Row+det.Scale/2,
			),
			Score: det.Q,
		})
	}
	return faces
}
