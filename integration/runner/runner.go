package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/internal/handlers"
	"github.com/jwebster45206/constraint/pkg/storage"
	"gopkg.in/yaml.v3"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running constraint API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	ScenarioOverride  string // If set, overrides the scenarios of every step
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	req := step.Request
	if r.ScenarioOverride != "" {
		req.Scenarios = []string{r.ScenarioOverride}
	}

	status, body, err := r.postGenerate(ctx, req)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	result.Error = r.checkExpectations(ctx, step.Expectations, req, status, body, &result)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) postGenerate(ctx context.Context, req handlers.GenerateRequest) (int, []byte, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/generate", bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return r.do(httpReq)
}

func (r *Runner) getRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/runs/%s", r.BaseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	status, body, err := r.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET /v1/runs/%s returned status %d: %s", id, status, string(body))
	}

	var run storage.Run
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

func (r *Runner) do(req *http.Request) (int, []byte, error) {
	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (r *Runner) checkExpectations(ctx context.Context, exp Expectations, req handlers.GenerateRequest, status int, body []byte, result *TestResult) error {
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if status != wantStatus {
		return fmt.Errorf("expected status %d, got %d: %s", wantStatus, status, strings.TrimSpace(string(body)))
	}

	if status != http.StatusOK {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("failed to parse error response: %w", err)
		}
		for _, s := range exp.Suggestions {
			if !slices.Contains(errResp.Suggestions, s) {
				return fmt.Errorf("expected suggestion '%s', got %v", s, errResp.Suggestions)
			}
		}
		return nil
	}

	var run handlers.GenerateResponse
	if err := json.Unmarshal(body, &run); err != nil {
		return fmt.Errorf("failed to parse generate response: %w", err)
	}
	result.RunID = run.RunID
	result.Text = run.Text

	if exp.Scenario != nil && run.Scenario != *exp.Scenario {
		return fmt.Errorf("expected scenario %s, got %s", *exp.Scenario, run.Scenario)
	}
	if exp.File != nil && run.File != *exp.File {
		return fmt.Errorf("expected file %s, got %s", *exp.File, run.File)
	}
	if exp.MinEvents != nil && len(run.Events) < *exp.MinEvents {
		return fmt.Errorf("expected at least %d events, got %d", *exp.MinEvents, len(run.Events))
	}

	lowerText := strings.ToLower(run.Text)
	for _, expectedText := range exp.TextContains {
		if !strings.Contains(lowerText, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected text to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.TextNotContains {
		if strings.Contains(lowerText, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected text to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.TextRegex != "" {
		matched, err := regexp.MatchString(exp.TextRegex, run.Text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("text didn't match regex pattern: %s", exp.TextRegex)
		}
	}

	if exp.MaxLineWidth != nil {
		for _, line := range strings.Split(run.Text, "\n") {
			if n := utf8.RuneCountInString(line); n > *exp.MaxLineWidth {
				return fmt.Errorf("line %q is %d wide, expected at most %d", line, n, *exp.MaxLineWidth)
			}
		}
	}

	if exp.Reproducible {
		again := req
		again.Seed = run.Seed
		status, body, err := r.postGenerate(ctx, again)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("re-run with seed %s returned status %d", run.Seed, status)
		}
		var second handlers.GenerateResponse
		if err := json.Unmarshal(body, &second); err != nil {
			return fmt.Errorf("failed to parse generate response: %w", err)
		}
		if second.Text != run.Text || second.Scenario != run.Scenario {
			return fmt.Errorf("seed %s did not reproduce the same run", run.Seed)
		}
	}

	if exp.Stored {
		stored, err := r.getRun(ctx, run.RunID)
		if err != nil {
			return err
		}
		if stored.Text != run.Text || stored.Seed != run.Seed {
			return fmt.Errorf("stored run %s does not match the response", run.RunID)
		}
	}

	return nil
}
