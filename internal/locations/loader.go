// Package locations loads the location table consumed by the grid search.
package locations

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

// expected CSV header, one record per row after it.
var header = []string{"id", "longitude", "latitude"}

// Load reads a CSV file of locations with the header line
// "id,longitude,latitude".
func Load(path string) ([]anonymise.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file: %w", err)
	}
	defer f.Close()

	locs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return locs, nil
}

// Parse reads location records from r. The header line is required and
// checked field by field; parse failures report the offending row number.
func Parse(r io.Reader) ([]anonymise.Location, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	head, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header line %q", strings.Join(header, ","))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, want := range header {
		if strings.TrimSpace(strings.ToLower(head[i])) != want {
			return nil, fmt.Errorf("unexpected header %q, want %q",
				strings.Join(head, ","), strings.Join(header, ","))
		}
	}

	var locs []anonymise.Location
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to parse longitude: %w", row, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to parse latitude: %w", row, err)
		}

		locs = append(locs, anonymise.Location{
			ID:        strings.TrimSpace(record[0]),
			Longitude: lon,
			Latitude:  lat,
		})
	}
	return locs, nil
}
