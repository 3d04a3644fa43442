// Command anonymiser determines the fishnet grid parameters necessary to
// anonymise a set of point locations, optionally persisting the accepted
// grid and serving past runs over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/db"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/config"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/locations"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/monitoring"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/report"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/version"
)

var (
	infile      = flag.String("infile", "", "CSV file of id,longitude,latitude locations")
	minSystems  = flag.Int("number", anonymise.DefaultMinSystems, "Minimum number of systems per grid cell")
	tolerance   = flag.Int("tolerance", anonymise.DefaultTolerance, "Number of systems that may be discarded to achieve a smaller grid size")
	configPath  = flag.String("config", "", "Optional JSON run configuration file")
	seed        = flag.Int64("seed", 0, "Random seed for reproducible runs (0 seeds from the clock)")
	dbFile      = flag.String("db", "", "SQLite file to record the run in (empty disables persistence)")
	reportDir   = flag.String("report-dir", "", "Directory to write the occupancy chart and convergence plot to (empty disables reporting)")
	listen      = flag.String("listen", "", "Serve the runs API on this address after the search (empty disables serving)")
	quiet       = flag.Bool("quiet", false, "Suppress the progress bar")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

// buildParams assembles the search parameters from the config file (if any)
// and then applies any explicitly set flags on top of it.
func buildParams() (anonymise.Params, error) {
	p := anonymise.DefaultParams()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return anonymise.Params{}, err
		}
		p = cfg.Params()
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "number":
			p.MinSystems = *minSystems
		case "tolerance":
			p.Tolerance = *tolerance
		case "seed":
			p.Rand = rand.New(rand.NewSource(*seed))
		}
	})
	return p, nil
}

func writeReports(dir string, res *anonymise.Result, locs []anonymise.Location, extent anonymise.Extent) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	grid := anonymise.Grid{Offset: res.Offset, Size: res.CellSize}
	counts := anonymise.CellCounts(locs, grid, extent)

	summary := report.Summarise(counts)
	monitoring.Logf("occupancy: %d cells, mean %.2f, median %.1f, p95 %.1f",
		summary.Cells, summary.Mean, summary.Median, summary.P95)

	chartPath := filepath.Join(dir, "occupancy.html")
	f, err := os.Create(chartPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", chartPath, err)
	}
	defer f.Close()
	if err := report.WriteOccupancyChart(f, counts, "Grid cell occupancy"); err != nil {
		return fmt.Errorf("failed to render occupancy chart: %w", err)
	}

	plotPath := filepath.Join(dir, "convergence.png")
	if err := report.WriteConvergencePlot(plotPath, res.Trace); err != nil {
		return fmt.Errorf("failed to render convergence plot: %w", err)
	}

	monitoring.Logf("reports written to %s", dir)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("anonymiser %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *infile == "" {
		log.Fatal("An input file is required (-infile)")
	}

	params, err := buildParams()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	locs, err := locations.Load(*infile)
	if err != nil {
		log.Fatalf("Failed to load locations: %v", err)
	}

	if !*quiet {
		bar := monitoring.NewProgressBar(os.Stdout, "    ", 50)
		params.Progress = func(done, total int) {
			if done == 1 {
				bar.Reset()
			}
			bar.Update(done, total)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.Logf("determining the optimal grid to anonymise %d locations "+
		"(min %d per cell, up to %d discarded)", len(locs), params.MinSystems, params.Tolerance)

	start := time.Now()
	res, err := anonymise.Search(ctx, locs, params)
	if err != nil {
		if errors.Is(err, anonymise.ErrNonConvergence) {
			log.Fatalf("Search failed: %v (raise -tolerance or the iteration budget)", err)
		}
		log.Fatalf("Search failed: %v", err)
	}

	monitoring.Logf("finished in %s (%d iterations, %s)", time.Since(start).Round(time.Millisecond),
		res.Iterations, res.Reason)
	monitoring.Logf("cell size: (%f, %f) offset: (%f, %f)",
		res.CellSize.X, res.CellSize.Y, res.Offset.X, res.Offset.Y)
	monitoring.Logf("%d sparse cells blacklisted, %d locations excluded from publication",
		len(res.SparseCells), len(res.Excluded))

	var database *db.DB
	if *dbFile != "" {
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		runID, err := database.RecordRun(filepath.Base(*infile), params.MinSystems, params.Tolerance, res)
		if err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
		monitoring.Logf("recorded run %s in %s", runID, *dbFile)
	}

	if *reportDir != "" {
		if err := writeReports(*reportDir, res, locs, params.Extent); err != nil {
			log.Fatalf("Failed to write reports: %v", err)
		}
	}

	if *listen != "" {
		if database == nil {
			log.Fatal("Serving requires a database (-db)")
		}
		server := NewServer(database, res, locs, params.Extent)
		httpServer := &http.Server{Addr: *listen, Handler: server.ServeMux()}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		monitoring.Logf("serving runs API on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}
}
