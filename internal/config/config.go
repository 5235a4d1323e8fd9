package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultPattern matches every scenario file.
const DefaultPattern = "*"

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	InventoryFile  string        `env:"CONSTRAINT_INVENTORY_FILE" envDefault:"inventory.yaml"`
	ScenarioPath   string        `env:"CONSTRAINT_SCENARIO_PATH" envDefault:"scenarios"`
	TemplateEngine string        `env:"CONSTRAINT_TEMPLATE_ENGINE" envDefault:"jinja"`
	Width          int           `env:"CONSTRAINT_WIDTH" envDefault:"0"`
	RedisURL       string        `env:"REDIS_URL"`
	RunTTL         time.Duration `env:"RUN_TTL" envDefault:"24h"`

	// Command-line only.
	DesiredItems []string
	Seed         string
	Count        int
	Scenarios    []string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.Count = 1
	return cfg, nil
}

// ParseFlags loads the environment and then lets command-line flags override
// it. Positional arguments are scenario name patterns, defaulting to every
// scenario.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	fs.Var((*listFlag)(&cfg.DesiredItems), "desired-items",
		"items the scenario should use if it is able to; substrings of descriptions, comma separated or repeated")
	fs.StringVar(&cfg.InventoryFile, "inventory-file", cfg.InventoryFile, "path to the inventory file")
	fs.StringVar(&cfg.ScenarioPath, "scenario-path", cfg.ScenarioPath, "the directory to read scenario files from")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "rng seed; the same seed generates the same scenario every time")
	fs.IntVar(&cfg.Count, "count", cfg.Count, "number of scenarios to generate")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "wrap width (0 uses the terminal width, up to 72)")
	fs.StringVar(&cfg.TemplateEngine, "engine", cfg.TemplateEngine, "template engine: jinja or go")
	fs.StringVar(&cfg.LogLevelRaw, "log-level", cfg.LogLevelRaw, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", cfg.Count)
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.Scenarios = fs.Args()
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = []string{DefaultPattern}
	}
	return cfg, nil
}

// AllScenarios reports whether the scenario patterns are the default
// match-everything pattern.
func (c *Config) AllScenarios() bool {
	return len(c.Scenarios) == 1 && c.Scenarios[0] == DefaultPattern
}

// listFlag collects repeated or comma separated values.
type listFlag []string

func (l *listFlag) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
