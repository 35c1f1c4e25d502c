//go:build !dlib

package facebluring

import (
	"errors"
	"testing"
)

func TestDlibDetectorUnavailable(t *testing.T) {
	_, err := New(&Config{Detector: DetectorDlib})
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("err = %v, want ErrDetectorUnavailable", err)
	}
}
