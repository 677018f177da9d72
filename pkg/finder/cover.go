package finder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/Azure/covreport/pkg/gittool"
	"github.com/Azure/covreport/pkg/lcov"
	"github.com/Azure/covreport/pkg/report"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DefaultLcovPath is where the tracefile lives, relative to the project directory.
const DefaultLcovPath = "coverage/lcov.info"

// BaselineSource reads files at a prior revision.
// ReadFile must return an error wrapping gittool.ErrFileNotFound for missing files.
type BaselineSource interface {
	ReadFile(ref string, file string) ([]byte, error)
	HasDir(ref string, dir string) (bool, error)
}

// CoverOption contains the input for loading coverage of projects.
type CoverOption struct {
	// Root is the directory the project directories are relative to.
	Root string
	// LcovPath is the tracefile location inside each project.
	LcovPath string
	// CompareRef is the revision to read baselines from, empty disables baselines.
	CompareRef string
	// RootInRepository is Root relative to the repository root, used to address files in git.
	RootInRepository string
	// Baseline reads tracefiles at CompareRef.
	Baseline BaselineSource

	Logger logrus.FieldLogger
}

// Cover loads the current and the baseline coverage of every project.
// Projects are loaded concurrently, the result keeps the order of projects.
func Cover(ctx context.Context, projects []*Project, o *CoverOption) ([]*report.CoveredProject, error) {
	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
	}
	logger = logger.WithField("source", "finder")

	lcovPath := o.LcovPath
	if lcovPath == "" {
		lcovPath = DefaultLcovPath
	}

	covered := make([]*report.CoveredProject, len(projects))
	errs := make([]error, len(projects))

	wg := new(sync.WaitGroup)
	for i, project := range projects {
		wg.Add(1)
		go func(i int, project *Project) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			covered[i], errs[i] = coverProject(project, o, lcovPath, logger.WithField("project", project.Name))
		}(i, project)
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return covered, nil
}

func coverProject(project *Project, o *CoverOption, lcovPath string, logger logrus.FieldLogger) (*report.CoveredProject, error) {
	cp := &report.CoveredProject{
		Name:        project.Name,
		Description: project.Description,
		Dir:         project.Dir,
		Baseline:    report.NoBaseline(),
	}

	tracefile := filepath.Join(o.Root, filepath.FromSlash(project.Dir), filepath.FromSlash(lcovPath))
	files, err := lcov.ParseFile(tracefile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warnf("no coverage found at %s", tracefile)
	case err != nil:
		return nil, fmt.Errorf("project %s: %w", project.Name, err)
	default:
		logger.Debugf("parsed %d files from %s", len(files), tracefile)
		cp.Coverage = &report.Coverage{Files: files}
	}

	if o.Baseline == nil || o.CompareRef == "" {
		return cp, nil
	}

	baseline, err := loadBaseline(project, o, lcovPath)
	if err != nil {
		return nil, fmt.Errorf("project %s baseline: %w", project.Name, err)
	}
	logger.Debugf("baseline at %s: %s", o.CompareRef, baseline.State)
	cp.Baseline = baseline
	return cp, nil
}

// loadBaseline maps the state of the project at CompareRef to a baseline:
// the project directory doesn't exist -> absent, no tracefile or an empty one -> zero,
// otherwise the parsed records.
func loadBaseline(project *Project, o *CoverOption, lcovPath string) (report.Baseline, error) {
	dir := path.Join(filepath.ToSlash(o.RootInRepository), project.Dir)

	exists, err := o.Baseline.HasDir(o.CompareRef, dir)
	if err != nil {
		return report.NoBaseline(), err
	}
	if !exists {
		return report.NoBaseline(), nil
	}

	data, err := o.Baseline.ReadFile(o.CompareRef, path.Join(dir, lcovPath))
	if errors.Is(err, gittool.ErrFileNotFound) {
		return report.ZeroBaseline(), nil
	}
	if err != nil {
		return report.NoBaseline(), err
	}

	files, err := lcov.Parse(bytes.NewReader(data))
	if err != nil {
		return report.NoBaseline(), err
	}
	if len(files) == 0 {
		return report.ZeroBaseline(), nil
	}
	return report.BaselineOf(files), nil
}
