package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{"min_systems": 5, "seed": 42}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.GetMinSystems(); got != 5 {
		t.Errorf("GetMinSystems() = %d, want 5", got)
	}
	// Omitted fields fall back to defaults.
	if got := cfg.GetTolerance(); got != anonymise.DefaultTolerance {
		t.Errorf("GetTolerance() = %d, want default %d", got, anonymise.DefaultTolerance)
	}
	if got := cfg.GetConverge(); got != anonymise.DefaultConverge {
		t.Errorf("GetConverge() = %f, want default %f", got, anonymise.DefaultConverge)
	}
	if got := cfg.GetExtent(); got != anonymise.DefaultExtent {
		t.Errorf("GetExtent() = %+v, want default %+v", got, anonymise.DefaultExtent)
	}

	p := cfg.Params()
	if p.Rand == nil {
		t.Error("expected a seeded random source when seed is set")
	}
	if p.MinSystems != 5 {
		t.Errorf("Params().MinSystems = %d, want 5", p.MinSystems)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{
		"min_systems": 4,
		"tolerance": 2,
		"converge": 0.01,
		"cell_size_x": 0.2,
		"cell_size_y": 0.25,
		"max_iterations": 50,
		"extent": [-1.0, 50.0, 1.0, 52.0]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := cfg.Params()
	want := anonymise.Extent{MinLon: -1.0, MinLat: 50.0, MaxLon: 1.0, MaxLat: 52.0}
	if p.Extent != want {
		t.Errorf("extent = %+v, want %+v", p.Extent, want)
	}
	if p.InitialCellSize.X != 0.2 || p.InitialCellSize.Y != 0.25 {
		t.Errorf("cell size = %+v, want (0.2, 0.25)", p.InitialCellSize)
	}
	if p.MaxIterations != 50 {
		t.Errorf("max iterations = %d, want 50", p.MaxIterations)
	}
	if p.Rand != nil {
		t.Error("no seed set: expected nil random source")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "run.yaml", `{}`},
		{"malformed json", "run.json", `{"min_systems": `},
		{"invalid min_systems", "run.json", `{"min_systems": 0}`},
		{"negative tolerance", "run.json", `{"tolerance": -1}`},
		{"inverted extent", "run.json", `{"extent": [1.0, 50.0, -1.0, 52.0]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, c.file, c.content)
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
