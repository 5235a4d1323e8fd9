package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/pkg/storage"
)

// RunSummary is one entry of the recent runs listing.
type RunSummary struct {
	RunID    uuid.UUID `json:"run_id"`
	Seed     string    `json:"seed"`
	Scenario string    `json:"scenario"`
}

type RunsHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewRunsHandler(log *slog.Logger, store storage.Storage) *RunsHandler {
	return &RunsHandler{
		log:     log,
		storage: store,
	}
}

func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/runs"), "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case rest == "":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		id, err := uuid.Parse(rest)
		if err != nil {
			writeError(w, h.log, http.StatusBadRequest, "Invalid run ID")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (h *RunsHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	run, err := h.storage.LoadRun(r.Context(), id)
	if err != nil {
		h.log.Error("Failed to load run", "error", err, "run_id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to load run")
		return
	}
	if run == nil {
		writeError(w, h.log, http.StatusNotFound, "Run not found")
		return
	}
	writeJSON(w, h.log, http.StatusOK, run)
}

func (h *RunsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteRun(r.Context(), id); err != nil {
		h.log.Error("Failed to delete run", "error", err, "run_id", id)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleList returns the most recent runs, newest first. The optional limit
// query parameter caps the list.
func (h *RunsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := storage.RecentRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.log, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx := r.Context()
	ids, err := h.storage.RecentRuns(ctx, limit)
	if err != nil {
		h.log.Error("Failed to list runs", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	runs := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		run, err := h.storage.LoadRun(ctx, id)
		if err != nil {
			h.log.Warn("Skipping unreadable run", "error", err, "run_id", id)
			continue
		}
		if run == nil {
			continue
		}
		runs = append(runs, RunSummary{RunID: run.ID, Seed: run.Seed, Scenario: run.Scenario})
	}
	writeJSON(w, h.log, http.StatusOK, runs)
}
