package report

import "github.com/Azure/covreport/pkg/lcov"

// PercentageOf returns 100 * sum(hit) / sum(found) over the given records.
// The second result is false when there is no measurable line at all.
func PercentageOf(files []*lcov.File) (float64, bool) {
	var found, hit int64
	for _, f := range files {
		found += int64(f.LinesFound)
		hit += int64(f.LinesHit)
	}
	if found == 0 {
		return 0, false
	}
	return float64(hit) / float64(found) * 100, true
}

// ProjectPercentage returns the current percentage of a project.
func ProjectPercentage(p *CoveredProject) (float64, bool) {
	if !p.HasCoverage() {
		return 0, false
	}
	return PercentageOf(p.Coverage.Files)
}

// TotalPercentage returns the percentage over the records of all projects.
// Projects without coverage are skipped.
func TotalPercentage(projects []*CoveredProject) (float64, bool) {
	var files []*lcov.File
	for _, p := range projects {
		if p.HasCoverage() {
			files = append(files, p.Coverage.Files...)
		}
	}
	return PercentageOf(files)
}

// ProjectPercentageBefore returns the baseline percentage of a project.
// A zero baseline is 0%.
func ProjectPercentageBefore(p *CoveredProject) (float64, bool) {
	switch p.Baseline.State {
	case BaselineZero:
		return 0, true
	case BaselinePresent:
		return PercentageOf(p.Baseline.Files)
	default:
		return 0, false
	}
}

// TotalPercentageBefore returns the baseline percentage over all projects.
// Absent baselines are skipped. A zero baseline contributes no records but
// still counts, so the total is 0% rather than undefined when nothing
// measurable existed before.
func TotalPercentageBefore(projects []*CoveredProject) (float64, bool) {
	var (
		files   []*lcov.File
		hasZero bool
	)
	for _, p := range projects {
		switch p.Baseline.State {
		case BaselineZero:
			hasZero = true
		case BaselinePresent:
			files = append(files, p.Baseline.Files...)
		}
	}

	if pct, ok := PercentageOf(files); ok {
		return pct, true
	}
	return 0, hasZero
}
