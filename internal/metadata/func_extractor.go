package metadata

import (
	"time"

	"github.com/go-photocopy/photocopy/internal/model"
)

// FuncExtractor is a test double for Extractor backed by plain closures.
type FuncExtractor struct {
	CaptureFn func(path string) (time.Time, bool)
	GPSFn     func(path string) (model.GPSCoordinate, bool)
	CameraFn  func(path string) (string, bool)
}

func (f *FuncExtractor) GetCapture(path string) (time.Time, bool) {
	if f.CaptureFn == nil {
		return time.Time{}, false
	}
	return f.CaptureFn(path)
}

func (f *FuncExtractor) GetGPS(path string) (model.GPSCoordinate, bool) {
	if f.GPSFn == nil {
		return model.GPSCoordinate{}, false
	}
	return f.GPSFn(path)
}

func (f *FuncExtractor) GetCamera(path string) (string, bool) {
	if f.CameraFn == nil {
		return "", false
	}
	return f.CameraFn(path)
}
