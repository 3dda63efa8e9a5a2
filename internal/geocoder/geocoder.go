package geocoder

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/go-photocopy/photocopy/internal/model"
)

// indexSuffix is the extension of the optional pre-built binary sidecar.
// Its presence is an implementation detail, not an external contract
// (spec.md §4.3).
const indexSuffix = ".geostreamindex"

// Geocoder answers nearest-populated-place queries. Initialize is
// idempotent; a failed initialize puts the Geocoder into an uninitialized
// state in which every query returns nil, with a single warning logged.
type Geocoder struct {
	log           zerolog.Logger
	minPopulation int64

	once        sync.Once
	warnOnce    sync.Once
	initialized bool
	root        *kdNode
}

// New constructs an uninitialized Geocoder. Call Initialize before issuing
// queries.
func New(minPopulation int64, log zerolog.Logger) *Geocoder {
	return &Geocoder{minPopulation: minPopulation, log: log}
}

// Initialize loads the gazetteer at path (or its .geostreamindex sidecar,
// whenever that file exists and decodes; its age is not compared with the
// gazetteer's) and builds the spatial index. It is safe to call
// more than once; only the first call does work.
func (g *Geocoder) Initialize(path string) error {
	var initErr error
	g.once.Do(func() {
		points, err := g.loadPoints(path)
		if err != nil {
			initErr = err
			return
		}
		g.root = buildKDTree(points)
		g.initialized = true
	})
	if initErr != nil {
		g.warnOnce.Do(func() {
			g.log.Warn().Err(initErr).Str("path", path).Msg("geocoder initialization failed; queries will return no location")
		})
	}
	return initErr
}

// Initialized reports whether the gazetteer was successfully loaded.
func (g *Geocoder) Initialized() bool {
	return g.initialized
}

// ReverseGeocode returns the nearest admitted populated place to (lat,
// lon), or nil if the index is uninitialized. There is no radius cap —
// even ocean coordinates yield the nearest land point.
func (g *Geocoder) ReverseGeocode(lat, lon float64) *model.LocationData {
	if !g.initialized || g.root == nil {
		return nil
	}
	p, ok := g.root.nearest(lat, lon)
	if !ok {
		return nil
	}
	loc := p.toLocationData()
	return &loc
}

func (g *Geocoder) loadPoints(path string) ([]place, error) {
	sidecar := path + indexSuffix
	if points, err := loadSidecar(sidecar); err == nil {
		g.log.Debug().Str("path", sidecar).Msg("loaded geocoder index from binary sidecar")
		return points, nil
	}

	points, err := loadGazetteer(path, g.minPopulation, g.log)
	if err != nil {
		return nil, err
	}

	if err := saveSidecar(sidecar, points); err != nil {
		g.log.Warn().Err(err).Str("path", sidecar).Msg("failed to persist geocoder binary sidecar")
	}
	return points, nil
}

func loadSidecar(path string) ([]place, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var points []place
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	return points, nil
}

func saveSidecar(path string, points []place) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(points); err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
