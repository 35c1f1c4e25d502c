//go:build !dlib

package facebluring

func newDlibDetector(*Config) (Detector, error) {
	return nil, ErrDetectorUnavailable
}
