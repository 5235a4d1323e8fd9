// Command constraint prints randomized instructions generated from scenario
// files and an item inventory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/jwebster45206/constraint/internal/config"
	"github.com/jwebster45206/constraint/internal/generator"
	"github.com/jwebster45206/constraint/internal/logger"
	"github.com/jwebster45206/constraint/pkg/render"
)

func main() {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("%v", err)
	}
	log := logger.Setup(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gen, err := generator.New(generator.Options{
		InventoryFile: cfg.InventoryFile,
		ScenarioPath:  cfg.ScenarioPath,
		Engine:        cfg.TemplateEngine,
		Logger:        log,
	})
	if err != nil {
		config.Exitf("%v", err)
	}

	out := render.New(os.Stdout, cfg.Width).WithStyle(term.IsTerminal(os.Stdout.Fd()))
	if err := run(ctx, out, gen, cfg); err != nil {
		config.Exitf("%v", err)
	}
}

func run(ctx context.Context, out *render.Renderer, gen *generator.Generator, cfg *config.Config) error {
	files, err := gen.Match(cfg.Scenarios)
	if errors.Is(err, generator.ErrNoScenarioFiles) {
		out.Println("Could not find matching scenario files")
		printSuggestions(out, gen, cfg.Scenarios)
		return out.Err()
	}
	if err != nil {
		return err
	}

	if !cfg.AllScenarios() {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		out.Println("Matching scenarios:")
		out.Println("  " + strings.Join(names, ", "))
		out.StartParagraph()
	}

	req := generator.Request{
		Scenarios: cfg.Scenarios,
		Desired:   cfg.DesiredItems,
		Seed:      cfg.Seed,
	}

	if cfg.Count == 1 {
		res, err := gen.Generate(ctx, req)
		if err != nil {
			return err
		}
		printResult(out, res)
		return out.Err()
	}

	results, err := gen.Batch(ctx, req, cfg.Count)
	if err != nil {
		return err
	}
	for i, res := range results {
		if i > 0 {
			out.StartParagraph()
			out.Println(strings.Repeat("─", out.Width()))
			out.StartParagraph()
		}
		out.Println(fmt.Sprintf("Seed: %s", res.Seed))
		out.StartParagraph()
		printResult(out, res)
	}
	return out.Err()
}

func printResult(out *render.Renderer, res *generator.Result) {
	out.Title("Instructions:")
	for _, ev := range res.Events {
		out.Emit(ev)
	}
}

func printSuggestions(out *render.Renderer, gen *generator.Generator, patterns []string) {
	var suggestions []string
	for _, p := range patterns {
		suggestions = append(suggestions, gen.Suggest(p)...)
	}
	if len(suggestions) > 0 {
		out.Println(fmt.Sprintf("Did you mean: %s?", strings.Join(suggestions, ", ")))
	}
}
