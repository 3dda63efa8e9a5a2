// Package metadata extracts capture date, GPS, and camera information from
// image and video bytes. It is a thin wrapper over a byte-level parsing
// library; the parser itself is a dependency, not part of this design (see
// spec.md §1).
package metadata

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/evanoberholster/imagemeta/exif2"

	"github.com/go-photocopy/photocopy/internal/model"
)

// Extractor is the metadata-extraction contract the EnrichmentPipeline
// depends on. Every method must be safe to call on any file, including
// empty files, non-images, and corrupted images, and must return a zero
// value rather than propagating a panic.
type Extractor interface {
	GetCapture(path string) (time.Time, bool)
	GetGPS(path string) (model.GPSCoordinate, bool)
	GetCamera(path string) (string, bool)
}

// ExifExtractor is the production Extractor, backed by imagemeta.
type ExifExtractor struct{}

// NewExifExtractor constructs the default, library-backed Extractor.
func NewExifExtractor() *ExifExtractor {
	return &ExifExtractor{}
}

// GetCapture returns the EXIF DateTimeOriginal (or nearest equivalent the
// underlying library exposes for HEIC/PNG/TIFF), or false when absent or
// the file could not be decoded. The caller (enrich.Pipeline) falls back to
// filesystem timestamps when this returns false; formats with no embedded
// timestamp, notably video, always take that path.
func (e *ExifExtractor) GetCapture(path string) (time.Time, bool) {
	exif, err := decodeSafe(path)
	if err != nil {
		return time.Time{}, false
	}
	if ts := exif.DateTimeOriginal(); !ts.IsZero() {
		return ts, true
	}
	return time.Time{}, false
}

// GetGPS returns the embedded GPS coordinate, or false when absent.
func (e *ExifExtractor) GetGPS(path string) (model.GPSCoordinate, bool) {
	exif, err := decodeSafe(path)
	if err != nil {
		return model.GPSCoordinate{}, false
	}
	lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude()
	if lat == 0 && lon == 0 {
		return model.GPSCoordinate{}, false
	}
	return model.GPSCoordinate{Latitude: lat, Longitude: lon}, true
}

// GetCamera returns a "Make Model" string, or false when neither tag is
// present.
func (e *ExifExtractor) GetCamera(path string) (string, bool) {
	exif, err := decodeSafe(path)
	if err != nil {
		return "", false
	}
	make := strings.TrimSpace(exif.Make)
	modelName := strings.TrimSpace(exif.Model)
	switch {
	case make == "" && modelName == "":
		return "", false
	case make == "":
		return modelName, true
	case modelName == "":
		return make, true
	default:
		return fmt.Sprintf("%s %s", make, modelName), true
	}
}

// decodeSafe opens path and decodes its EXIF data, recovering from any
// panic the underlying decoder raises on malformed input (the library
// offers no guarantee against panicking on corrupt bytes).
func decodeSafe(path string) (exif exif2.Exif, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return exif2.Exif{}, openErr
	}
	defer f.Close()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while decoding %s: %v", path, rec)
		}
	}()

	return decode(f)
}

func decode(r io.ReadSeeker) (exif2.Exif, error) {
	return imagemeta.Decode(r)
}
