package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/db"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/report"
)

// Server exposes recorded anonymiser runs and the occupancy of the most
// recent accepted grid.
type Server struct {
	db        *db.DB
	result    *anonymise.Result
	locations []anonymise.Location
	extent    anonymise.Extent
}

func NewServer(db *db.DB, result *anonymise.Result, locations []anonymise.Location, extent anonymise.Extent) *Server {
	return &Server{
		db:        db,
		result:    result,
		locations: locations,
		extent:    extent,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	// Handle the home page
	w.Write([]byte("Welcome to the Grid Anonymiser Server!"))
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/exclusions", s.listExclusions)
	mux.HandleFunc("/api/runs/sparse-cells", s.listSparseCells)
	mux.HandleFunc("/api/chart", s.occupancyChart)
	mux.HandleFunc("/api/summary", s.occupancySummary)
	mux.HandleFunc("/", s.homeHandler)
	s.db.AttachAdminRoutes(mux)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runs, err := s.db.Runs()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

func (s *Server) listExclusions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	locs, err := s.db.RunExclusions(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve exclusions: %v", err), http.StatusInternalServerError)
		return
	}
	if locs == nil {
		locs = []anonymise.Location{}
	}
	s.writeJSON(w, locs)
}

func (s *Server) listSparseCells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	cells, err := s.db.RunSparseCells(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve sparse cells: %v", err), http.StatusInternalServerError)
		return
	}
	if cells == nil {
		cells = []anonymise.Cell{}
	}
	s.writeJSON(w, cells)
}

// occupancyChart renders the occupancy histogram of the current run's grid.
func (s *Server) occupancyChart(w http.ResponseWriter, r *http.Request) {
	if s.result == nil {
		http.Error(w, "No run loaded", http.StatusNotFound)
		return
	}

	grid := anonymise.Grid{Offset: s.result.Offset, Size: s.result.CellSize}
	counts := anonymise.CellCounts(s.locations, grid, s.extent)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteOccupancyChart(w, counts, "Grid cell occupancy"); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) occupancySummary(w http.ResponseWriter, r *http.Request) {
	if s.result == nil {
		http.Error(w, "No run loaded", http.StatusNotFound)
		return
	}

	grid := anonymise.Grid{Offset: s.result.Offset, Size: s.result.CellSize}
	counts := anonymise.CellCounts(s.locations, grid, s.extent)
	s.writeJSON(w, report.Summarise(counts))
}
