package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/constraint/internal/config"
	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/scenario"
	"gopkg.in/yaml.v3"
)

func main() {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("%v", err)
	}

	validator := &Validator{}
	validator.validateInventory(cfg.InventoryFile)

	files, err := scenario.Match(cfg.ScenarioPath, cfg.Scenarios)
	if err != nil {
		config.Exitf("%v", err)
	}
	if len(files) == 0 {
		config.Exitf("no scenario files match %s in %s", strings.Join(cfg.Scenarios, ", "), cfg.ScenarioPath)
	}
	for _, f := range files {
		validator.validateScenarioFile(f)
	}

	if !validator.report(os.Stdout) {
		os.Exit(1)
	}
	fmt.Println("All files are valid!")
}

// Validator collects problems across files.
type Validator struct {
	errors []string
	failed int
}

func (v *Validator) validateInventory(filename string) {
	fmt.Printf("Validating %s...\n", filename)
	start := len(v.errors)

	data, err := os.ReadFile(filename)
	if err != nil {
		v.addError(fmt.Sprintf("failed to read file %s: %v", filename, err))
		v.finishFile(start)
		return
	}

	var items []inventory.Item
	if err := decodeStrict(data, &items); err != nil {
		v.addError(fmt.Sprintf("file %s failed strict YAML decoding: %v", filename, err))
		v.finishFile(start)
		return
	}

	for _, p := range inventory.Validate(items) {
		v.addError(p)
	}
	v.finishFile(start)
}

func (v *Validator) validateScenarioFile(filename string) {
	fmt.Printf("Validating %s...\n", filename)
	start := len(v.errors)

	baseName := filepath.Base(filename)
	nameWithoutExt := strings.TrimSuffix(baseName, scenario.FileExt)
	if !isValidScenarioFilename(nameWithoutExt) {
		v.addError(fmt.Sprintf("scenario filename '%s' must be lowercase snake_case (e.g., bed_time.yaml, not bed-time.yaml or BedTime.yaml)", baseName))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		v.addError(fmt.Sprintf("failed to read file %s: %v", filename, err))
		v.finishFile(start)
		return
	}

	var scenarios []scenario.Scenario
	if err := decodeStrict(data, &scenarios); err != nil {
		v.addError(fmt.Sprintf("file %s failed strict YAML decoding: %v", filename, err))
		v.finishFile(start)
		return
	}
	if len(scenarios) == 0 {
		v.addError(fmt.Sprintf("file %s defines no scenarios", filename))
	}

	names := make(map[string]bool)
	for _, s := range scenarios {
		if s.Name != "" && names[s.Name] {
			v.addError(fmt.Sprintf("scenario %q is defined more than once", s.Name))
		}
		names[s.Name] = true
		for _, p := range scenario.Validate(s) {
			v.addError(p)
		}
	}
	v.finishFile(start)
}

func (v *Validator) finishFile(start int) {
	if len(v.errors) > start {
		v.failed++
	}
}

// report prints every problem and returns true when there were none.
func (v *Validator) report(w io.Writer) bool {
	if len(v.errors) == 0 {
		return true
	}
	fmt.Fprintf(w, "\nValidation failed for %d file(s):\n%s\n", v.failed, strings.Join(v.errors, "\n"))
	return false
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
