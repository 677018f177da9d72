package assistant

import (
	"io"

	"github.com/Azure/covreport/pkg/finder"
	"github.com/Azure/covreport/pkg/report"
	"github.com/sirupsen/logrus"
)

const (
	DefaultUpperThreshold = 100.0
	DefaultLowerThreshold = 0.0
	DefaultReportName     = "coverage"
	DefaultBadgeMessage   = "chore: coverage badges [skip ci]"
)

// ReportOption contains the input for the report command.
type ReportOption struct {
	// RootDir is the directory searched for projects.
	RootDir string
	// RepositoryPath is any path inside the git repository.
	RepositoryPath string
	// Patterns are the manifest globs used to find projects.
	Patterns []string
	// Excludes are the globs of manifests to skip.
	Excludes []string
	// LcovPath is the tracefile path inside each project.
	LcovPath string
	// CompareRef is the git revision of the baseline, empty disables diffs.
	CompareRef string

	Thresholds report.Thresholds

	// RepoURL and CommitSHA default to the origin remote and HEAD.
	RepoURL   string
	CommitSHA string

	ReportFormat string
	ReportName   string
	OutputDir    string
	Style        string

	// Badges writes a badge file into every covered project.
	Badges bool
	// Push commits the badge files and pushes them.
	Push          bool
	CommitMessage string

	// Writer receives the markdown report, nil disables it.
	Writer io.Writer
	Logger logrus.FieldLogger
}

// NewReportOption returns a ReportOption with default values.
func NewReportOption() *ReportOption {
	return &ReportOption{
		RootDir:        ".",
		RepositoryPath: ".",
		Patterns:       finder.DefaultPatterns,
		Excludes:       finder.DefaultExcludes,
		LcovPath:       finder.DefaultLcovPath,
		Thresholds: report.Thresholds{
			Upper: DefaultUpperThreshold,
			Lower: DefaultLowerThreshold,
		},
		ReportFormat:  string(report.MarkdownFormat),
		ReportName:    DefaultReportName,
		Style:         "github",
		CommitMessage: DefaultBadgeMessage,
	}
}

func (o *ReportOption) Validate() error {
	return o.Thresholds.Validate()
}
