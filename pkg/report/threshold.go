package report

import (
	"fmt"
	"strings"

	"github.com/Azure/covreport/pkg/badge"
)

// Classify classifies pct against the thresholds.
func (t Thresholds) Classify(pct float64) badge.Classification {
	return badge.Classify(pct, t.Upper, t.Lower)
}

// Verdict is the outcome of the threshold and regression gates for a run.
type Verdict struct {
	// BelowLower lists projects whose current percentage is below the lower threshold.
	BelowLower []string
	// Regressions lists projects whose coverage decreased against their baseline.
	Regressions []string
	// TotalRegression is set when the total coverage decreased.
	TotalRegression bool
	// Uncovered lists projects without any coverage. They don't fail the run.
	Uncovered []string
}

// Success reports whether no project is failing and nothing regressed.
func (v *Verdict) Success() bool {
	return len(v.BelowLower) == 0 && len(v.Regressions) == 0 && !v.TotalRegression
}

// String describes why the verdict failed, it's empty on success.
func (v *Verdict) String() string {
	var reasons []string
	if len(v.BelowLower) > 0 {
		reasons = append(reasons, fmt.Sprintf("coverage below lower threshold: %s", strings.Join(v.BelowLower, ", ")))
	}
	if len(v.Regressions) > 0 {
		reasons = append(reasons, fmt.Sprintf("coverage decreased: %s", strings.Join(v.Regressions, ", ")))
	}
	if v.TotalRegression {
		reasons = append(reasons, "total coverage decreased")
	}
	return strings.Join(reasons, "; ")
}

// Evaluate runs the threshold gate and the no-decrease gate over all projects.
func Evaluate(projects []*CoveredProject, t Thresholds) *Verdict {
	v := &Verdict{}
	for _, p := range projects {
		if !p.HasCoverage() {
			v.Uncovered = append(v.Uncovered, p.Name)
			continue
		}
		if pct, ok := ProjectPercentage(p); ok && t.Classify(pct) == badge.Fail {
			v.BelowLower = append(v.BelowLower, p.Name)
		}
		if diff, ok := Diff(p); ok && diff < 0 {
			v.Regressions = append(v.Regressions, p.Name)
		}
	}
	if diff, ok := TotalDiff(projects); ok && diff < 0 {
		v.TotalRegression = true
	}
	return v
}

// OverallSuccess is a shortcut for Evaluate(projects, t).Success().
func OverallSuccess(projects []*CoveredProject, t Thresholds) bool {
	return Evaluate(projects, t).Success()
}
