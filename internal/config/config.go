// Package config loads run configuration for the grid anonymiser.
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

// RunConfig is the JSON run configuration. Fields omitted from the file
// retain their default values, so partial configs are safe; the Get* methods
// provide the fallbacks.
type RunConfig struct {
	MinSystems    *int     `json:"min_systems,omitempty"`
	Tolerance     *int     `json:"tolerance,omitempty"`
	Converge      *float64 `json:"converge,omitempty"`
	CellSizeX     *float64 `json:"cell_size_x,omitempty"`
	CellSizeY     *float64 `json:"cell_size_y,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`

	// Extent is [min_lon, min_lat, max_lon, max_lat].
	Extent *[4]float64 `json:"extent,omitempty"`

	// Seed, if set, makes the randomized offset and cell orders reproducible.
	Seed *int64 `json:"seed,omitempty"`
}

// Load reads a RunConfig from a JSON file. The file is validated to ensure
// it has a .json extension and is under the max file size.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate defers the numeric checks to the search parameter validation so
// the config file and the flag surface reject the same inputs.
func (c *RunConfig) Validate() error {
	return c.Params().Validate()
}

// Params assembles search parameters from the config, filling gaps with the
// package defaults.
func (c *RunConfig) Params() anonymise.Params {
	p := anonymise.DefaultParams()
	p.MinSystems = c.GetMinSystems()
	p.Tolerance = c.GetTolerance()
	p.Converge = c.GetConverge()
	p.InitialCellSize = anonymise.CellSize{X: c.GetCellSizeX(), Y: c.GetCellSizeY()}
	p.MaxIterations = c.GetMaxIterations()
	p.Extent = c.GetExtent()
	if c.Seed != nil {
		p.Rand = rand.New(rand.NewSource(*c.Seed))
	}
	return p
}

// GetMinSystems returns the min_systems value or the default.
func (c *RunConfig) GetMinSystems() int {
	if c.MinSystems == nil {
		return anonymise.DefaultMinSystems
	}
	return *c.MinSystems
}

// GetTolerance returns the tolerance value or the default.
func (c *RunConfig) GetTolerance() int {
	if c.Tolerance == nil {
		return anonymise.DefaultTolerance
	}
	return *c.Tolerance
}

// GetConverge returns the converge value or the default.
func (c *RunConfig) GetConverge() float64 {
	if c.Converge == nil {
		return anonymise.DefaultConverge
	}
	return *c.Converge
}

// GetCellSizeX returns the cell_size_x value or the default.
func (c *RunConfig) GetCellSizeX() float64 {
	if c.CellSizeX == nil {
		return anonymise.DefaultInitialCellSize
	}
	return *c.CellSizeX
}

// GetCellSizeY returns the cell_size_y value or the default.
func (c *RunConfig) GetCellSizeY() float64 {
	if c.CellSizeY == nil {
		return anonymise.DefaultInitialCellSize
	}
	return *c.CellSizeY
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *RunConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return anonymise.DefaultMaxIterations
	}
	return *c.MaxIterations
}

// GetExtent returns the extent value or the default UK bounding box.
func (c *RunConfig) GetExtent() anonymise.Extent {
	if c.Extent == nil {
		return anonymise.DefaultExtent
	}
	return anonymise.Extent{
		MinLon: c.Extent[0],
		MinLat: c.Extent[1],
		MaxLon: c.Extent[2],
		MaxLat: c.Extent[3],
	}
}
