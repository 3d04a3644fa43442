// Package db persists grid anonymiser runs to SQLite so published grids and
// their exclusion lists can be audited later.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS anonymiser_runs (
			run_id            TEXT PRIMARY KEY,
			source            TEXT,
			min_systems       BIGINT,
			tolerance         BIGINT,
			offset_x          DOUBLE,
			offset_y          DOUBLE,
			cell_size_x       DOUBLE,
			cell_size_y       DOUBLE,
			sparse_cells      BIGINT,
			excluded_count    BIGINT,
			iterations        BIGINT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS excluded_locations (
			run_id            TEXT,
			location_id       TEXT,
			longitude         DOUBLE,
			latitude          DOUBLE,
			FOREIGN KEY(run_id) REFERENCES anonymiser_runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS sparse_cells (
			run_id            TEXT,
			lon               DOUBLE,
			lat               DOUBLE,
			FOREIGN KEY(run_id) REFERENCES anonymiser_runs(run_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Run is one persisted anonymiser run.
type Run struct {
	RunID         string
	Source        string
	MinSystems    int
	Tolerance     int
	Offset        anonymise.Offset
	CellSize      anonymise.CellSize
	SparseCells   int
	ExcludedCount int
	Iterations    int
	Timestamp     time.Time
}

func (r *Run) String() string {
	return fmt.Sprintf("Run %s: cell size (%f, %f), offset (%f, %f), %d excluded",
		r.RunID, r.CellSize.X, r.CellSize.Y, r.Offset.X, r.Offset.Y, r.ExcludedCount)
}

// RecordRun stores an accepted search result with its exclusion list and
// blacklisted cells, returning the generated run ID.
func (db *DB) RecordRun(source string, minSystems, tolerance int, res *anonymise.Result) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO anonymiser_runs (
			run_id, source, min_systems, tolerance, offset_x, offset_y,
			cell_size_x, cell_size_y, sparse_cells, excluded_count, iterations
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, source, minSystems, tolerance, res.Offset.X, res.Offset.Y,
		res.CellSize.X, res.CellSize.Y, len(res.SparseCells), len(res.Excluded),
		res.Iterations,
	)
	if err != nil {
		return "", err
	}

	for _, loc := range res.Excluded {
		_, err = tx.Exec(
			"INSERT INTO excluded_locations (run_id, location_id, longitude, latitude) VALUES (?, ?, ?, ?)",
			runID, loc.ID, loc.Longitude, loc.Latitude,
		)
		if err != nil {
			return "", err
		}
	}

	for _, cell := range res.SparseCells {
		_, err = tx.Exec(
			"INSERT INTO sparse_cells (run_id, lon, lat) VALUES (?, ?, ?)",
			runID, cell.Lon, cell.Lat,
		)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// Runs returns the most recent anonymiser runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, source, min_systems, tolerance, offset_x, offset_y,
			cell_size_x, cell_size_y, sparse_cells, excluded_count, iterations, timestamp
		FROM anonymiser_runs ORDER BY timestamp DESC LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.RunID, &r.Source, &r.MinSystems, &r.Tolerance, &r.Offset.X, &r.Offset.Y,
			&r.CellSize.X, &r.CellSize.Y, &r.SparseCells, &r.ExcludedCount,
			&r.Iterations, &r.Timestamp,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// RunExclusions returns the locations excluded from publication by a run.
func (db *DB) RunExclusions(runID string) ([]anonymise.Location, error) {
	rows, err := db.Query(
		"SELECT location_id, longitude, latitude FROM excluded_locations WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []anonymise.Location
	for rows.Next() {
		var loc anonymise.Location
		if err := rows.Scan(&loc.ID, &loc.Longitude, &loc.Latitude); err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locs, nil
}

// RunSparseCells returns the blacklisted cells recorded for a run.
func (db *DB) RunSparseCells(runID string) ([]anonymise.Cell, error) {
	rows, err := db.Query("SELECT lon, lat FROM sparse_cells WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []anonymise.Cell
	for rows.Next() {
		var c anonymise.Cell
		if err := rows.Scan(&c.Lon, &c.Lat); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cells, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://anonymiser.db", db.DB, &tailsql.DBOptions{
		Label: "Anonymiser runs DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
