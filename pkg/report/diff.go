package report

import "fmt"

// Diff returns the current percentage minus the baseline percentage.
// It's undefined when the project has no coverage or the baseline is absent.
func Diff(p *CoveredProject) (float64, bool) {
	current, ok := ProjectPercentage(p)
	if !ok {
		return 0, false
	}
	before, ok := ProjectPercentageBefore(p)
	if !ok {
		return 0, false
	}
	return current - before, true
}

// TotalDiff returns TotalPercentage minus TotalPercentageBefore.
func TotalDiff(projects []*CoveredProject) (float64, bool) {
	current, ok := TotalPercentage(projects)
	if !ok {
		return 0, false
	}
	before, ok := TotalPercentageBefore(projects)
	if !ok {
		return 0, false
	}
	return current - before, true
}

// FormatDiff renders a diff cell. "-" means there is no baseline to compare with.
func FormatDiff(diff float64, ok bool) string {
	switch {
	case !ok:
		return "-"
	case diff == 0:
		return fmt.Sprintf("➡️ %.2f%%", diff)
	case diff > 0:
		return fmt.Sprintf("⬆️ +%.2f%%", diff)
	default:
		return fmt.Sprintf("⬇️ %.2f%%", diff)
	}
}
