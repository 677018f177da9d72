package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Azure/covreport/pkg/assistant"
	"github.com/Azure/covreport/pkg/report"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	reportLong = `Generate a coverage report for the projects of a repository.

Use this tool to aggregate the lcov coverage of every project found in the repository,
compare it with the coverage at a baseline revision, and render a markdown report with
coverage badges. The command fails when a project is below the lower threshold or
when coverage decreased.
`

	reportExample = `# Print the report of all projects, comparing with origin/main
covreport report --compare-ref origin/main --upper-threshold 90 --lower-threshold 70

# Write an html preview of the report into /tmp and update the committed badges
covreport report --format html --output /tmp --badges --push
`
)

const (
	FlagVerbose      = "verbose"
	FlagVerboseShort = "v"

	EnvUpperThreshold = "COVERAGE_UPPER_THRESHOLD"
	EnvLowerThreshold = "COVERAGE_LOWER_THRESHOLD"
	EnvCompareRef     = "COVERAGE_COMPARE_REF"
	EnvBaseRef        = "GITHUB_BASE_REF"
	EnvSha            = "GITHUB_SHA"
	EnvServerURL      = "GITHUB_SERVER_URL"
	EnvRepository     = "GITHUB_REPOSITORY"
)

// set by the build with -ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func createLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	verbose, err := cmd.Flags().GetBool(FlagVerbose)
	if err != nil {
		// no verbose flag on the command, It's OK.
		verbose = false
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// NewCovReportCommand creates a command object for generating coverage reports.
func NewCovReportCommand() *cobra.Command {
	// variables from a .env file become flag defaults, a missing file is fine.
	_ = godotenv.Load()

	cmd := &cobra.Command{
		Use:          "covreport",
		Short:        "coverage report tool for lcov projects",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP(FlagVerbose, FlagVerboseShort, false, "verbose output")

	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newVersionCommand(buildInfo{Version: version, Commit: commit, Date: date}))
	return cmd
}

func newReportCommand() *cobra.Command {
	o := assistant.NewReportOption()
	o.CompareRef = defaultCompareRef()
	o.CommitSHA = os.Getenv(EnvSha)
	o.RepoURL = defaultRepoURL()
	o.Thresholds.Upper = envFloat(EnvUpperThreshold, o.Thresholds.Upper)
	o.Thresholds.Lower = envFloat(EnvLowerThreshold, o.Thresholds.Lower)

	cmd := &cobra.Command{
		Use:     "report",
		Short:   "generate coverage report for lcov projects",
		Long:    reportLong,
		Example: reportExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Logger = createLogger(cmd)
			o.Writer = cmd.OutOrStdout()

			a, err := assistant.NewReportAssistant(o)
			if err != nil {
				return fmt.Errorf("new report: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&o.RootDir, "root", o.RootDir, "directory to search projects in")
	cmd.Flags().StringVar(&o.RepositoryPath, "repository-path", o.RepositoryPath, "the root directory of git repository")
	cmd.Flags().StringSliceVar(&o.Patterns, "patterns", o.Patterns, "glob patterns of project manifests")
	cmd.Flags().StringSliceVar(&o.Excludes, "excludes", o.Excludes, "glob patterns of project manifests to skip")
	cmd.Flags().StringVar(&o.LcovPath, "lcov-path", o.LcovPath, "lcov tracefile path relative to each project")
	cmd.Flags().StringVar(&o.CompareRef, "compare-ref", o.CompareRef, "git revision to compare coverage with, empty disables diffs")
	cmd.Flags().Float64Var(&o.Thresholds.Upper, "upper-threshold", o.Thresholds.Upper, "coverage at or above it passes")
	cmd.Flags().Float64Var(&o.Thresholds.Lower, "lower-threshold", o.Thresholds.Lower, "coverage below it fails the command")
	cmd.Flags().StringVar(&o.RepoURL, "repo-url", o.RepoURL, "repository web url used for commit links, defaults to the origin remote")
	cmd.Flags().StringVar(&o.CommitSHA, "sha", o.CommitSHA, "commit of the report, defaults to HEAD")
	cmd.Flags().StringVar(&o.ReportFormat, "format", o.ReportFormat, fmt.Sprintf("format of the report file, one of: %s, %s", report.MarkdownFormat, report.HTMLFormat))
	cmd.Flags().StringVarP(&o.OutputDir, "output", "o", o.OutputDir, "directory of the report file, empty only prints the report")
	cmd.Flags().StringVar(&o.ReportName, "report-name", o.ReportName, "report file name without extension")
	cmd.Flags().StringVar(&o.Style, "style", o.Style, "html report style, refer to https://pygments.org/docs/styles for more information")
	cmd.Flags().BoolVar(&o.Badges, "badges", o.Badges, "write a coverage badge file into every covered project")
	cmd.Flags().BoolVar(&o.Push, "push", o.Push, "commit and push the badge files")
	cmd.Flags().StringVar(&o.CommitMessage, "commit-message", o.CommitMessage, "commit message of the badge files")

	return cmd
}

func defaultCompareRef() string {
	if ref := os.Getenv(EnvCompareRef); ref != "" {
		return ref
	}
	if base := os.Getenv(EnvBaseRef); base != "" {
		return "origin/" + base
	}
	return ""
}

func defaultRepoURL() string {
	server, repository := os.Getenv(EnvServerURL), os.Getenv(EnvRepository)
	if server == "" || repository == "" {
		return ""
	}
	return server + "/" + repository
}

func envFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
