//go:build dlib

package facebluring

import (
	"bytes"
	"fmt"
	"image"

	"github.com/Kagami/go-face"
	"github.com/disintegration/imaging"
)

// dlibDetector wraps a go-face recognizer. go-face only reads JPEG, so every
// canvas is re-encoded before detection.
type dlibDetector struct {
	recognizer *face.Recognizer
}

func newDlibDetector(config *Config) (Detector, error) {
	var fd = withDefaults(config)

	recognizer, err := face.NewRecognizer(fd.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", fd.ModelsDir, err)
	}
	return &dlibDetector{recognizer: recognizer}, nil
}

func (d *dlibDetector) Detect(img *image.NRGBA) ([]Face, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}

	found, err := d.recognizer.Recognize(buf.Bytes())
	if err != nil {
		return nil, err
	}

	var faces = make([]Face, 0, len(found))
	for _, f := range found {
		faces = append(faces, Face{Rect: f.Rectangle, Score: 1})
	}
	return faces, nil
}

func (d *dlibDetector) Close() error {
	d.recognizer.Close()
	return nil
}
