package facebluring

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 95

// Encode writes img to dst in the format implied by name's extension.
func Encode(dst io.Writer, img image.Image, name string, quality int) error {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return imaging.Encode(dst, img, format, imaging.JPEGQuality(quality))
}
