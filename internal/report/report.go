// Package report assembles the validation report consumed by CLI and CI
// collaborators, in both human text and machine-readable JSON form.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
)

// Severity mirrors issue severities across validation and coherence.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is the unified finding record.
type Issue struct {
	Type       string   `json:"type"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Location   string   `json:"location,omitempty"`
	Expected   string   `json:"expected,omitempty"`
	Found      string   `json:"found,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary counts findings by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Report is one invocation's full result. Per-file failures are isolated:
// the report always carries the complete issue set across all files.
type Report struct {
	RunID   string  `json:"run_id"`
	Valid   bool    `json:"valid"`
	Summary Summary `json:"summary"`
	Issues  []Issue `json:"issues"`
}

// New creates an empty, valid report with a fresh run ID.
func New() *Report {
	return &Report{RunID: uuid.NewString(), Valid: true}
}

// Add appends issues, updating the summary and validity.
func (r *Report) Add(issues ...Issue) {
	for _, issue := range issues {
		r.Issues = append(r.Issues, issue)
		switch issue.Severity {
		case SeverityError:
			r.Summary.Errors++
			r.Valid = false
		case SeverityWarning:
			r.Summary.Warnings++
		}
	}
}

// Sort orders issues by location then message for stable output.
func (r *Report) Sort() {
	sort.Slice(r.Issues, func(i, j int) bool {
		if r.Issues[i].Location != r.Issues[j].Location {
			return r.Issues[i].Location < r.Issues[j].Location
		}
		return r.Issues[i].Message < r.Issues[j].Message
	})
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	r.Sort()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders the report for humans.
func (r *Report) WriteText(w io.Writer) error {
	r.Sort()
	for _, issue := range r.Issues {
		loc := issue.Location
		if loc == "" {
			loc = "-"
		}
		if _, err := fmt.Fprintf(w, "%-7s %-24s %s %s\n", issue.Severity, issue.Type, loc, issue.Message); err != nil {
			return err
		}
		if issue.Expected != "" || issue.Found != "" {
			fmt.Fprintf(w, "        expected: %s\n        found:    %s\n", issue.Expected, issue.Found)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "        hint: %s\n", issue.Suggestion)
		}
	}
	status := "PASS"
	if !r.Valid {
		status = "FAIL"
	}
	_, err := fmt.Fprintf(w, "%s: %d errors, %d warnings\n", status, r.Summary.Errors, r.Summary.Warnings)
	return err
}
