// Package scenario models scenario files and their instruction trees.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/jwebster45206/constraint/pkg/rng"
	"gopkg.in/yaml.v3"
)

// FileExt is the extension appended to scenario names that lack one.
const FileExt = ".yaml"

// ErrNoScenario is returned when there is nothing to choose from.
var ErrNoScenario = errors.New("no matching scenario")

// Scenario is a named, weighted list of top-level instructions.
type Scenario struct {
	Name         string        `yaml:"name"`
	Odds         *int          `yaml:"odds,omitempty"`
	Instructions []Instruction `yaml:"instructions"`

	// File is the base name of the file the scenario was loaded from.
	File string `yaml:"-"`
}

// Weight implements rng.Weighted.
func (s Scenario) Weight() (int, bool) {
	if s.Odds == nil {
		return 0, false
	}
	return *s.Odds, true
}

// Parse decodes a scenario file: a YAML list of scenarios.
func Parse(data []byte) ([]Scenario, error) {
	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// LoadFile reads every scenario in path.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenarios, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	base := filepath.Base(path)
	for i := range scenarios {
		scenarios[i].File = base
	}
	return scenarios, nil
}

// LoadFiles concatenates the scenarios of every file, in order.
func LoadFiles(paths []string) ([]Scenario, error) {
	var all []Scenario
	for _, p := range paths {
		scenarios, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, scenarios...)
	}
	return all, nil
}

// Match resolves scenario name patterns against dir. A pattern without the
// .yaml extension gets it appended; wildcards follow filepath.Match. Results
// of each pattern are appended in order, so a file matched twice is
// returned twice.
func Match(dir string, patterns []string) ([]string, error) {
	var files []string
	for _, name := range patterns {
		if filepath.Ext(name) != FileExt {
			name += FileExt
		}
		matches, err := filepath.Glob(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("invalid scenario pattern %q: %w", name, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// Choose picks one scenario by weight.
func Choose(src rng.Source, scenarios []Scenario) (*Scenario, error) {
	s, ok, err := rng.Pick(src, scenarios)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoScenario
	}
	return &s, nil
}

// List maps scenario names to the file that defines them.
func List(dir string) (map[string]string, error) {
	files, err := Match(dir, []string{"*"})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, f := range files {
		scenarios, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, s := range scenarios {
			out[s.Name] = s.File
		}
	}
	return out, nil
}

// Suggest returns up to max scenario file names in dir that are close to
// pattern, closest first.
func Suggest(dir, pattern string, max int) []string {
	files, err := Match(dir, []string{"*"})
	if err != nil || len(files) == 0 {
		return nil
	}

	want := strings.TrimSuffix(strings.Trim(pattern, "*?"), FileExt)
	if want == "" {
		return nil
	}

	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), FileExt)
		dist := levenshtein.ComputeDistance(want, name)
		if dist > suggestLimit(len(name)) && !strings.Contains(name, want) {
			continue
		}
		cands = append(cands, candidate{name: name, dist: dist})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	var out []string
	for _, c := range cands {
		if len(out) >= max {
			break
		}
		out = append(out, c.name)
	}
	return out
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
