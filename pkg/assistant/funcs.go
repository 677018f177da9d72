package assistant

import (
	"fmt"
	"path/filepath"

	"github.com/Azure/covreport/pkg/badge"
	"github.com/Azure/covreport/pkg/report"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var classificationColors = map[badge.Classification]*color.Color{
	badge.Pass:    color.New(color.FgGreen),
	badge.Warning: color.New(color.FgYellow),
	badge.Fail:    color.New(color.FgRed, color.Bold),
}

// dump logs the coverage summary of every project.
func dump(projects []*report.CoveredProject, t report.Thresholds, logger logrus.FieldLogger) {
	logger.Info("Summary of coverage:")

	for _, p := range projects {
		pct, ok := report.ProjectPercentage(p)
		diff, diffOK := report.Diff(p)
		logger.Info(summaryLine(p.Name, pct, ok, diff, diffOK, t))
	}
	if len(projects) > 1 {
		pct, ok := report.TotalPercentage(projects)
		diff, diffOK := report.TotalDiff(projects)
		logger.Info(summaryLine("total", pct, ok, diff, diffOK, t))
	}
}

func summaryLine(name string, pct float64, ok bool, diff float64, diffOK bool, t report.Thresholds) string {
	if !ok {
		return fmt.Sprintf("%s %s", name, color.New(color.Faint).Sprint("no coverage"))
	}
	class := t.Classify(pct)
	return fmt.Sprintf("%s %s %s",
		name,
		classificationColors[class].Sprintf("%.2f%% (%s)", pct, class),
		report.FormatDiff(diff, diffOK),
	)
}

// relativePath returns target relative to base, both resolved to absolute paths without symlinks.
func relativePath(base, target string) (string, error) {
	resolve := func(p string) (string, error) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			return resolved, nil
		}
		return abs, nil
	}

	b, err := resolve(base)
	if err != nil {
		return "", err
	}
	t, err := resolve(target)
	if err != nil {
		return "", err
	}
	return filepath.Rel(b, t)
}
