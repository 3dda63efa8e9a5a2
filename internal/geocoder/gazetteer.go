// Package geocoder answers nearest-populated-place queries against a
// GeoNames-format gazetteer, loaded once into an in-memory k-d tree.
package geocoder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-photocopy/photocopy/internal/model"
)

// place is one admitted gazetteer record: a populated place meeting the
// configured minimum population, with the fields needed to answer a query.
type place struct {
	Lat, Lon   float64
	Name       string
	Admin1     string
	Admin2     string
	Country    string
	Population int64
}

// gazetteer column indices, per spec.md §6 (GeoNames allCountries.txt).
const (
	colName           = 1
	colLatitude       = 4
	colLongitude      = 5
	colFeatureClass   = 6
	colFeatureCode    = 7
	colCountry        = 8
	colAdmin1         = 10
	colAdmin2         = 11
	colPopulation     = 14
	minColumns        = 15
	populatedPlaceCls = "P"
)

// loadGazetteer parses a tab-separated GeoNames file, admitting rows whose
// feature class is a populated place and whose population meets
// minPopulation. Malformed or short lines, and rows that are not admitted,
// are skipped and counted in a single warning; no single line aborts the
// load.
func loadGazetteer(path string, minPopulation int64, log zerolog.Logger) ([]place, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 1<<20)
	var places []place
	var lineNo, skipped int

	for {
		lineNo++
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if p, ok := parseLine(strings.TrimRight(line, "\r\n"), minPopulation); ok {
				places = append(places, p)
			} else if strings.TrimSpace(line) != "" {
				skipped++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read gazetteer %s at line %d: %w", path, lineNo, err)
		}
	}

	if skipped > 0 {
		log.Warn().Int("skippedLines", skipped).Str("path", path).Msg("skipped gazetteer lines that were malformed or not admitted")
	}
	return places, nil
}

func parseLine(line string, minPopulation int64) (place, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) < minColumns {
		return place{}, false
	}
	if cols[colFeatureClass] != populatedPlaceCls {
		return place{}, false
	}

	lat, err := strconv.ParseFloat(cols[colLatitude], 64)
	if err != nil {
		return place{}, false
	}
	lon, err := strconv.ParseFloat(cols[colLongitude], 64)
	if err != nil {
		return place{}, false
	}
	population, err := strconv.ParseInt(cols[colPopulation], 10, 64)
	if err != nil {
		population = 0
	}
	if population < minPopulation {
		return place{}, false
	}

	return place{
		Lat:        lat,
		Lon:        lon,
		Name:       cols[colName],
		Admin1:     cols[colAdmin1],
		Admin2:     cols[colAdmin2],
		Country:    cols[colCountry],
		Population: population,
	}, true
}

func (p place) toLocationData() model.LocationData {
	loc := model.LocationData{
		City:       p.Name,
		State:      p.Admin1,
		Country:    p.Country,
		Population: p.Population,
	}
	if p.Admin2 != "" {
		loc.District = p.Admin2
	}
	return loc
}
