package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/constraint/internal/generator"
)

type ScenariosHandler struct {
	log *slog.Logger
	gen *generator.Generator
}

func NewScenariosHandler(log *slog.Logger, gen *generator.Generator) *ScenariosHandler {
	return &ScenariosHandler{
		log: log,
		gen: gen,
	}
}

func (h *ScenariosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleList returns a map of scenario names to the files that define them.
func (h *ScenariosHandler) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.gen.ListScenarios()
	if err != nil {
		h.log.Error("Failed to list scenarios", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}
	writeJSON(w, h.log, http.StatusOK, names)
}
