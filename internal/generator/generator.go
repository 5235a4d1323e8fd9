// Package generator ties loading, scenario selection and evaluation together
// for the command-line tools and the HTTP service.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/internal/logger"
	"github.com/jwebster45206/constraint/pkg/eval"
	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/render"
	"github.com/jwebster45206/constraint/pkg/rng"
	"github.com/jwebster45206/constraint/pkg/scenario"
	"github.com/jwebster45206/constraint/pkg/storage"
	"github.com/jwebster45206/constraint/pkg/template"
	"golang.org/x/sync/errgroup"
)

// ErrNoScenarioFiles is returned when no scenario file matches the
// requested patterns.
var ErrNoScenarioFiles = errors.New("could not find matching scenario files")

// MaxSuggestions caps the "did you mean" list.
const MaxSuggestions = 3

type Options struct {
	InventoryFile string
	ScenarioPath  string
	// Engine names the template engine; empty selects jinja.
	Engine string
	Logger *slog.Logger
}

// Generator is safe for concurrent use. The inventory is loaded once; scenario
// files are read on every request so edits show up without a restart.
type Generator struct {
	items inventory.Collection
	dir   string
	eng   template.Engine
	log   *slog.Logger
}

func New(opts Options) (*Generator, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	items, err := inventory.Load(opts.InventoryFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read inventory: %w", err)
	}
	eng, err := template.NewEngine(opts.Engine)
	if err != nil {
		return nil, err
	}

	log.Debug("Inventory loaded", "file", opts.InventoryFile, "items", items.Len())
	return &Generator{items: items, dir: opts.ScenarioPath, eng: eng, log: log}, nil
}

// Request describes one generation.
type Request struct {
	// Scenarios are file name patterns; empty means every scenario.
	Scenarios []string
	// Desired are description substrings item selectors should prefer.
	Desired []string
	// Seed makes the run reproducible; empty draws a fresh one.
	Seed string
}

// Result is the outcome of one generation.
type Result struct {
	RunID    uuid.UUID
	Seed     string
	Scenario string
	File     string
	// Matched lists the base names of the files the scenario was chosen from.
	Matched   []string
	Events    []eval.Event
	Variables map[string]any
}

// Text renders the events at the given width.
func (r *Result) Text(width int) string {
	return render.Text(r.Events, width)
}

// Record converts the result into a storable run.
func (r *Result) Record(desired []string, width int) *storage.Run {
	return &storage.Run{
		ID:           r.RunID,
		Seed:         r.Seed,
		Scenario:     r.Scenario,
		File:         r.File,
		DesiredItems: desired,
		Events:       r.Events,
		Text:         r.Text(width),
		Variables:    r.Variables,
		CreatedAt:    time.Now(),
	}
}

// Match resolves scenario patterns against the scenario directory and
// returns the matching paths.
func (g *Generator) Match(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	files, err := scenario.Match(g.dir, patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoScenarioFiles
	}
	return files, nil
}

// Suggest returns scenario file names close to pattern.
func (g *Generator) Suggest(pattern string) []string {
	return scenario.Suggest(g.dir, pattern, MaxSuggestions)
}

// ListScenarios maps scenario names to their files.
func (g *Generator) ListScenarios() (map[string]string, error) {
	return scenario.List(g.dir)
}

type candidates struct {
	scenarios []scenario.Scenario
	matched   []string
}

func (g *Generator) load(patterns []string) (*candidates, error) {
	files, err := g.Match(patterns)
	if err != nil {
		return nil, err
	}
	scenarios, err := scenario.LoadFiles(files)
	if err != nil {
		return nil, fmt.Errorf("cannot read a scenario file: %w", err)
	}

	matched := make([]string, len(files))
	for i, f := range files {
		matched[i] = filepath.Base(f)
	}
	return &candidates{scenarios: scenarios, matched: matched}, nil
}

func (g *Generator) seed(seed string) (string, error) {
	if seed != "" {
		return seed, nil
	}
	seed, err := rng.NewSeed()
	if err != nil {
		return "", err
	}
	g.log.Info("Generated seed", "seed", seed)
	return seed, nil
}

// Generate picks one matching scenario and evaluates it.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := g.load(req.Scenarios)
	if err != nil {
		return nil, err
	}
	seed, err := g.seed(req.Seed)
	if err != nil {
		return nil, err
	}
	return g.run(c, req.Desired, seed)
}

// Batch generates n independent runs seeded "<seed>#0" to "<seed>#n-1".
// Runs are evaluated concurrently and returned in seed order.
func (g *Generator) Batch(ctx context.Context, req Request, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", n)
	}
	c, err := g.load(req.Scenarios)
	if err != nil {
		return nil, err
	}
	base, err := g.seed(req.Seed)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, n)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			res, err := g.run(c, req.Desired, fmt.Sprintf("%s#%d", base, i))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Generator) run(c *candidates, desired []string, seed string) (*Result, error) {
	src := rng.NewSource(seed)
	s, err := scenario.Choose(src, c.scenarios)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    uuid.New(),
		Seed:     seed,
		Scenario: s.Name,
		File:     s.File,
		Matched:  c.matched,
	}
	log := logger.WithRunID(g.log, res.RunID.String())

	rec := &eval.Recorder{}
	ev := eval.New(eval.Options{
		Inventory: g.items,
		Desired:   desired,
		Source:    src,
		Engine:    g.eng,
		Sink:      rec,
		Logger:    log,
	})
	vars, err := ev.Run(s)
	if err != nil {
		logger.WithError(log, err).Error("Scenario evaluation failed", "scenario", s.Name, "seed", seed)
		return nil, err
	}

	res.Events = rec.Events
	res.Variables = vars.Map()
	log.Info("Scenario generated", "scenario", s.Name, "file", s.File, "seed", seed, "events", len(res.Events))
	return res, nil
}
