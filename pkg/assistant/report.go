package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Azure/covreport/pkg/badge"
	"github.com/Azure/covreport/pkg/finder"
	"github.com/Azure/covreport/pkg/gittool"
	"github.com/Azure/covreport/pkg/report"
	"github.com/sirupsen/logrus"
)

var (
	ErrConditionsNotMet = errors.New("configured conditions were not met")
)

// NewReportAssistant creates the assistant behind the report command.
// A missing git repository is not fatal, the report then has no baseline
// and needs RepoURL and CommitSHA to be given.
func NewReportAssistant(o *ReportOption) (Assistant, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
	}
	logger = logger.WithField("source", "report")

	rootDir, err := filepath.Abs(o.RootDir)
	if err != nil {
		return nil, fmt.Errorf("get absolute path of root: %w", err)
	}

	var generator report.ReportGenerator
	if o.OutputDir != "" {
		generator, err = report.NewReportGenerator(report.Format(o.ReportFormat), o.Style, o.OutputDir, o.ReportName, logger)
		if err != nil {
			return nil, err
		}
	}

	gitClient, err := gittool.NewGitClient(o.RepositoryPath)
	if err != nil {
		logger.WithError(err).Warn("git repository unavailable")
		gitClient = nil
	}

	logger.Debugf("root dir: %s, compare ref: %s, output dir: %s", rootDir, o.CompareRef, o.OutputDir)

	return &reportAssistant{
		option:          o,
		rootDir:         rootDir,
		gitClient:       gitClient,
		reportGenerator: generator,
		writer:          o.Writer,
		logger:          logger,
	}, nil
}

var _ Assistant = (*reportAssistant)(nil)

type reportAssistant struct {
	option          *ReportOption
	rootDir         string
	gitClient       gittool.GitClient
	reportGenerator report.ReportGenerator
	writer          io.Writer

	logger logrus.FieldLogger
}

func (r *reportAssistant) Run(ctx context.Context) error {
	r.logger.Info("Finding projects...")
	projects, err := finder.Find(r.rootDir, r.option.Patterns, r.option.Excludes, r.logger)
	if err != nil {
		return WrapError(err, "find projects")
	}
	r.logger.Infof("Found %d projects", len(projects))

	r.logger.Info("Parsing coverage...")
	covered, err := finder.Cover(ctx, projects, r.coverOption())
	if err != nil {
		return WrapError(err, "parse coverage")
	}
	r.logger.Infof("%d projects covered.", countCovered(covered))

	if r.option.Badges {
		r.badges(ctx, covered)
	}

	repoURL, sha := r.commitInfo()

	r.logger.Info("Building message...")
	message := report.BuildMessage(covered, r.option.Thresholds, repoURL, sha)
	if r.writer != nil {
		if _, err := io.WriteString(r.writer, message); err != nil {
			return WrapError(err, "write message")
		}
	}
	if r.reportGenerator != nil {
		if err := r.reportGenerator.GenerateReport(message); err != nil {
			return WrapError(err, "generate report")
		}
	}

	dump(covered, r.option.Thresholds, r.logger)

	verdict := report.Evaluate(covered, r.option.Thresholds)
	for _, name := range verdict.Uncovered {
		r.logger.Warnf("project %s has no coverage", name)
	}
	if !verdict.Success() {
		return WrapErrorWithCode(fmt.Errorf("%w: %s", ErrConditionsNotMet, verdict), LowCoverageErrorExitCode, "")
	}
	return nil
}

func (r *reportAssistant) coverOption() *finder.CoverOption {
	o := &finder.CoverOption{
		Root:     r.rootDir,
		LcovPath: r.option.LcovPath,
		Logger:   r.logger,
	}
	if r.gitClient == nil || r.option.CompareRef == "" {
		return o
	}

	root, err := r.gitClient.Root()
	if err != nil {
		r.logger.WithError(err).Warn("skip baseline")
		return o
	}
	rel, err := relativePath(root, r.rootDir)
	if err != nil {
		r.logger.WithError(err).Warn("skip baseline")
		return o
	}

	o.CompareRef = r.option.CompareRef
	o.RootInRepository = filepath.ToSlash(rel)
	o.Baseline = r.gitClient
	return o
}

// commitInfo falls back to the git repository for values not given as options.
func (r *reportAssistant) commitInfo() (string, string) {
	repoURL, sha := r.option.RepoURL, r.option.CommitSHA
	if r.gitClient == nil {
		return repoURL, sha
	}

	if repoURL == "" {
		u, err := r.gitClient.RemoteURL(gittool.DefaultRemote)
		if err != nil {
			r.logger.WithError(err).Warn("resolve repository url")
		}
		repoURL = u
	}
	if sha == "" {
		h, err := r.gitClient.HeadCommit()
		if err != nil {
			r.logger.WithError(err).Warn("resolve HEAD commit")
		}
		sha = h
	}
	return repoURL, sha
}

// badges writes a badge file into each covered project and optionally commits
// and pushes them. Failures are logged and don't stop the report.
func (r *reportAssistant) badges(ctx context.Context, covered []*report.CoveredProject) {
	r.logger.Info("Updating coverage badges...")

	var written []string
	for _, p := range covered {
		pct, ok := report.ProjectPercentage(p)
		if !ok {
			continue
		}
		filename, err := badge.WriteEndpoint(filepath.Join(r.rootDir, filepath.FromSlash(p.Dir)), "", r.option.Thresholds.Upper, r.option.Thresholds.Lower, pct)
		if err != nil {
			r.logger.WithError(err).Warnf("write badge of %s", p.Name)
			continue
		}
		written = append(written, filename)
	}

	if !r.option.Push || len(written) == 0 {
		return
	}
	if r.gitClient == nil {
		r.logger.Warn("Failed to commit and push coverage badges: no git repository.")
		return
	}
	if err := r.commitAndPush(ctx, written); err != nil {
		r.logger.Warnf("Failed to commit and push coverage badges due to %s.", err)
	}
}

func (r *reportAssistant) commitAndPush(ctx context.Context, files []string) error {
	root, err := r.gitClient.Root()
	if err != nil {
		return err
	}

	var paths []string
	for _, f := range files {
		rel, err := relativePath(root, f)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
	}

	sha, err := r.gitClient.CommitAll(r.option.CommitMessage, paths)
	if err != nil {
		return err
	}
	r.logger.Debugf("committed badges in %s", sha)
	return r.gitClient.Push(ctx)
}

func countCovered(projects []*report.CoveredProject) int {
	n := 0
	for _, p := range projects {
		if p.HasCoverage() {
			n++
		}
	}
	return n
}
