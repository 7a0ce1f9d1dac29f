// Package report records the outcome of a bsscheck run and writes it as JSON.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/ternarybob/bsscheck/internal/common"
)

const Title = "BS-Select Test Automation Report"

type Outcome string

const (
	Passed  Outcome = "passed"
	Failed  Outcome = "failed"
	Errored Outcome = "error"
	Skipped Outcome = "skipped"
)

// Check is one verification within a run.
type Check struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Outcome     Outcome        `json:"outcome"`
	Started     time.Time      `json:"started"`
	DurationMS  int64          `json:"duration_ms"`
	Error       string         `json:"error,omitempty"`
	Screenshot  string         `json:"screenshot,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Run collects checks for one invocation. It is safe for concurrent use.
type Run struct {
	ID              string                       `json:"id"`
	Title           string                       `json:"title"`
	Version         string                       `json:"version"`
	Environment     string                       `json:"environment"`
	BaseURL         string                       `json:"base_url"`
	Started         time.Time                    `json:"started"`
	Finished        time.Time                    `json:"finished"`
	EnvironmentData map[string]map[string]string `json:"environment_data,omitempty"`
	Checks          []Check                      `json:"checks"`

	mu sync.Mutex
}

// NewRun starts a run against baseURL in environment.
func NewRun(environment, baseURL string) *Run {
	return &Run{
		ID:          common.NewRunID(),
		Title:       Title,
		Version:     common.GetFullVersion(),
		Environment: environment,
		BaseURL:     baseURL,
		Started:     time.Now().UTC(),
		Checks:      []Check{},
	}
}

// SetEnvironmentData attaches a section of deployment details, e.g. "Application Details".
func (r *Run) SetEnvironmentData(section string, values map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EnvironmentData == nil {
		r.EnvironmentData = map[string]map[string]string{}
	}
	r.EnvironmentData[section] = values
}

// Record appends a finished check.
func (r *Run) Record(c Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Checks = append(r.Checks, c)
}

// Time runs fn as a check named name and records the outcome. An error from fn
// marks the check errored unless failed reports it as an assertion failure.
func (r *Run) Time(name, description string, fn func(c *Check) error, failed func(error) bool) Check {
	c := Check{Name: name, Description: description, Started: time.Now().UTC(), Outcome: Passed}
	err := fn(&c)
	c.DurationMS = time.Since(c.Started).Milliseconds()
	switch {
	case err == nil:
	case failed != nil && failed(err):
		c.Outcome = Failed
		c.Error = err.Error()
	default:
		c.Outcome = Errored
		c.Error = err.Error()
	}
	r.Record(c)
	return c
}

// Counts returns the number of checks per outcome.
func (r *Run) Counts() map[Outcome]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[Outcome]int{}
	for _, c := range r.Checks {
		counts[c.Outcome]++
	}
	return counts
}

// OK reports whether no check failed or errored.
func (r *Run) OK() bool {
	counts := r.Counts()
	return counts[Failed] == 0 && counts[Errored] == 0
}

// Finish stamps the end time.
func (r *Run) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = time.Now().UTC()
}

// Write saves the run as dir/<id>.json and returns the path.
func (r *Run) Write(dir string) (string, error) {
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(dir, r.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Load reads a report written by Write.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}
