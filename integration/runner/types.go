package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/internal/handlers"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `yaml:"name"`
	Steps []TestStep `yaml:"steps,omitempty"` // Used for regular tests
	Cases []string   `yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one generate request and its expected outcome.
type TestStep struct {
	Name         string                   `yaml:"name,omitempty"`
	Request      handlers.GenerateRequest `yaml:"request"`
	Expectations Expectations             `yaml:"expect"`
}

// Expectations defines what to check after a step executes.
type Expectations struct {
	// Status defaults to 200.
	Status   *int    `yaml:"status,omitempty"`
	Scenario *string `yaml:"scenario,omitempty"`
	File     *string `yaml:"file,omitempty"`
	// Suggestions must all appear in a 404 response.
	Suggestions []string `yaml:"suggestions,omitempty"`
	MinEvents   *int     `yaml:"min_events,omitempty"`

	// Reproducible re-runs the request with the returned seed and requires
	// identical events.
	Reproducible bool `yaml:"reproducible,omitempty"`
	// Stored requires the run to be readable from /v1/runs/{id}.
	Stored bool `yaml:"stored,omitempty"`

	// Text analysis
	TextContains    []string `yaml:"text_contains,omitempty"`
	TextNotContains []string `yaml:"text_not_contains,omitempty"`
	TextRegex       string   `yaml:"text_regex,omitempty"`
	MaxLineWidth    *int     `yaml:"max_line_width,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	RunID    uuid.UUID
	Text     string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Duration time.Duration
	Error    error
}
