package finder

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

const (
	PubspecManifest = "pubspec.yaml"
	GoModManifest   = "go.mod"
)

var (
	// DefaultPatterns match the manifests of the supported project kinds.
	DefaultPatterns = []string{"**/" + PubspecManifest, "**/" + GoModManifest}
	// DefaultExcludes skip hidden, vendored and dependency directories.
	DefaultExcludes = []string{"**/.*/**", "**/vendor/**", "**/node_modules/**", "**/build/**"}

	ErrUnknownManifest = errors.New("unknown project manifest")
	ErrEmptyName       = errors.New("project manifest has no name")
)

// Project is a project found on disk.
type Project struct {
	// Name from the manifest.
	Name string
	// Description from the manifest, may be empty.
	Description string
	// Dir is the project directory relative to the search root, "." for the root itself.
	Dir string
	// Manifest is the manifest file name the project was found by.
	Manifest string
}

// Find globs root for project manifests and returns the projects sorted by directory.
// A directory matched by several patterns yields the project of the first pattern.
func Find(root string, patterns, excludes []string, logger logrus.FieldLogger) ([]*Project, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	fsys := os.DirFS(root)

	seen := make(map[string]bool)
	var projects []*Project
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}

		for _, match := range matches {
			if excluded(match, excludes) {
				logger.Debugf("skip excluded manifest %s", match)
				continue
			}
			dir := path.Dir(match)
			if seen[dir] {
				continue
			}

			project, err := readManifest(filepath.Join(root, filepath.FromSlash(match)))
			if err != nil {
				return nil, fmt.Errorf("read manifest %s: %w", match, err)
			}
			project.Dir = dir
			seen[dir] = true
			projects = append(projects, project)
			logger.Debugf("found project %s in %s", project.Name, dir)
		}
	}

	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].Dir < projects[j].Dir
	})
	return projects, nil
}

func excluded(match string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, err := doublestar.Match(pattern, match); err == nil && ok {
			return true
		}
	}
	return false
}

func readManifest(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var project *Project
	switch filepath.Base(filename) {
	case PubspecManifest:
		project, err = parsePubspec(data)
	case GoModManifest:
		project, err = parseGoMod(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownManifest, filename)
	}
	if err != nil {
		return nil, err
	}
	if project.Name == "" {
		return nil, ErrEmptyName
	}
	project.Manifest = filepath.Base(filename)
	return project, nil
}

type pubspec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func parsePubspec(data []byte) (*Project, error) {
	var spec pubspec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return &Project{
		Name:        spec.Name,
		Description: strings.Join(strings.Fields(spec.Description), " "),
	}, nil
}

// parseGoMod uses the module path as name and the comment above the
// module directive as description.
func parseGoMod(filename string, data []byte) (*Project, error) {
	f, err := modfile.ParseLax(filename, data, nil)
	if err != nil {
		return nil, err
	}
	if f.Module == nil {
		return &Project{}, nil
	}

	var lines []string
	for _, c := range f.Module.Syntax.Before {
		lines = append(lines, strings.TrimSpace(strings.TrimPrefix(c.Token, "//")))
	}
	return &Project{
		Name:        f.Module.Mod.Path,
		Description: strings.TrimSpace(strings.Join(lines, " ")),
	}, nil
}
