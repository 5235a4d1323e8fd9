package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/internal/generator"
	"github.com/jwebster45206/constraint/pkg/eval"
	"github.com/jwebster45206/constraint/pkg/render"
	"github.com/jwebster45206/constraint/pkg/storage"
	"github.com/jwebster45206/constraint/pkg/template"
)

const maxRequestBytes = 1 << 16

type GenerateRequest struct {
	Scenarios    []string `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
	DesiredItems []string `json:"desired_items,omitempty" yaml:"desired_items,omitempty"`
	Seed         string   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

type GenerateResponse struct {
	RunID    uuid.UUID    `json:"run_id"`
	Seed     string       `json:"seed"`
	Scenario string       `json:"scenario"`
	File     string       `json:"file"`
	Events   []eval.Event `json:"events"`
	Text     string       `json:"text"`
}

type GenerateHandler struct {
	log     *slog.Logger
	gen     *generator.Generator
	storage storage.Storage
	width   int
}

// NewGenerateHandler creates a handler that generates and stores runs.
// Text is wrapped at width, or render.MaxWidth when width is not positive.
func NewGenerateHandler(log *slog.Logger, gen *generator.Generator, store storage.Storage, width int) *GenerateHandler {
	if width <= 0 {
		width = render.MaxWidth
	}
	return &GenerateHandler{
		log:     log,
		gen:     gen,
		storage: store,
		width:   width,
	}
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleGenerate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GenerateHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	// An empty body generates from every scenario.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("Invalid generate request", "error", err)
		writeError(w, h.log, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	ctx := r.Context()
	res, err := h.gen.Generate(ctx, generator.Request{
		Scenarios: req.Scenarios,
		Desired:   req.DesiredItems,
		Seed:      req.Seed,
	})
	if err != nil {
		h.writeGenerateError(w, req, err)
		return
	}

	run := res.Record(req.DesiredItems, h.width)
	if err := h.storage.SaveRun(ctx, run); err != nil {
		h.log.Error("Failed to save run", "error", err, "run_id", run.ID)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to save run")
		return
	}

	writeJSON(w, h.log, http.StatusOK, GenerateResponse{
		RunID:    run.ID,
		Seed:     run.Seed,
		Scenario: run.Scenario,
		File:     run.File,
		Events:   run.Events,
		Text:     run.Text,
	})
}

func (h *GenerateHandler) writeGenerateError(w http.ResponseWriter, req GenerateRequest, err error) {
	switch {
	case errors.Is(err, generator.ErrNoScenarioFiles):
		var suggestions []string
		for _, p := range req.Scenarios {
			suggestions = append(suggestions, h.gen.Suggest(p)...)
		}
		writeJSON(w, h.log, http.StatusNotFound, ErrorResponse{
			Error:       "Could not find matching scenario files",
			Suggestions: suggestions,
		})
	case errors.Is(err, eval.ErrUnboundVariable),
		errors.Is(err, eval.ErrInvalidInstruction),
		errors.Is(err, template.ErrTemplate):
		h.log.Warn("Scenario could not be evaluated", "error", err)
		writeError(w, h.log, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("Failed to generate instructions", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to generate instructions")
	}
}
