package finder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/covreport/pkg/gittool"
	"github.com/Azure/covreport/pkg/lcov"
	"github.com/Azure/covreport/pkg/report"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBaselineSource struct {
	readFileFn func(ref, file string) ([]byte, error)
	hasDirFn   func(ref, dir string) (bool, error)
}

func (m *mockBaselineSource) ReadFile(ref string, file string) ([]byte, error) {
	return m.readFileFn(ref, file)
}

func (m *mockBaselineSource) HasDir(ref string, dir string) (bool, error) {
	return m.hasDirFn(ref, dir)
}

// baselineFiles serves tracefiles from a map, directories listed in dirs exist.
func baselineFiles(dirs []string, files map[string]string) *mockBaselineSource {
	return &mockBaselineSource{
		readFileFn: func(ref, file string) ([]byte, error) {
			if ref != "origin/main" {
				return nil, gittool.ErrRevisionNotFound
			}
			contents, ok := files[file]
			if !ok {
				return nil, fmt.Errorf("%w: %s", gittool.ErrFileNotFound, file)
			}
			return []byte(contents), nil
		},
		hasDirFn: func(ref, dir string) (bool, error) {
			for _, d := range dirs {
				if d == dir {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

func TestCover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/coverage/lcov.info", "SF:lib/a.dart\nDA:1,1\nDA:2,0\nend_of_record\n")
	writeFile(t, root, "b/coverage/lcov.info", "SF:lib/b.dart\nDA:1,1\nend_of_record\n")
	writeFile(t, root, "d/coverage/lcov.info", "SF:lib/d.dart\nDA:1,1\nend_of_record\n")

	projects := []*Project{
		{Name: "a", Dir: "a"},
		{Name: "b", Dir: "b"},
		{Name: "c", Dir: "c"},
		{Name: "d", Dir: "d"},
	}

	source := baselineFiles(
		[]string{"mono/a", "mono/b", "mono/c"},
		map[string]string{
			"mono/a/coverage/lcov.info": "SF:lib/a.dart\nDA:1,0\nDA:2,0\nend_of_record\n",
			"mono/c/coverage/lcov.info": "",
		},
	)

	covered, err := Cover(context.Background(), projects, &CoverOption{
		Root:             root,
		CompareRef:       "origin/main",
		RootInRepository: "mono",
		Baseline:         source,
		Logger:           logrus.New(),
	})
	require.NoError(t, err)
	require.Len(t, covered, 4)

	// order is preserved
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, covered[i].Name)
	}

	assert.True(t, covered[0].HasCoverage())
	assert.Equal(t, report.BaselinePresent, covered[0].Baseline.State)
	diff, ok := report.Diff(covered[0])
	assert.True(t, ok)
	assert.InDelta(t, 50.0, diff, 1e-9)

	// directory exists, tracefile doesn't
	assert.Equal(t, report.BaselineZero, covered[1].Baseline.State)

	// no current coverage, empty tracefile at baseline
	assert.False(t, covered[2].HasCoverage())
	assert.Equal(t, report.BaselineZero, covered[2].Baseline.State)
	_, ok = report.Diff(covered[2])
	assert.False(t, ok)

	// directory didn't exist at baseline
	assert.Equal(t, report.BaselineAbsent, covered[3].Baseline.State)
}

func TestCoverWithoutBaseline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "coverage/out.info", "SF:main.go\nDA:1,1\nend_of_record\n")

	covered, err := Cover(context.Background(), []*Project{{Name: "root", Dir: "."}}, &CoverOption{
		Root:     root,
		LcovPath: "coverage/out.info",
	})
	require.NoError(t, err)
	require.Len(t, covered, 1)
	assert.Equal(t, []*lcov.File{lcov.NewFile("main.go", []lcov.LineHit{{Line: 1, Hits: 1}})}, covered[0].Coverage.Files)
	assert.Equal(t, report.BaselineAbsent, covered[0].Baseline.State)
}

func TestCoverErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/coverage/lcov.info", "SF:a\nLF:1\nLH:2\nend_of_record\n")
	writeFile(t, root, "b/coverage/lcov.info", "SF:b\nDA:1,1\nend_of_record\n")
	writeFile(t, root, "c/coverage/lcov.info", "SF:c\nDA:1,x\nend_of_record\n")

	projects := []*Project{{Name: "a", Dir: "a"}, {Name: "b", Dir: "b"}, {Name: "c", Dir: "c"}}

	t.Run("malformed tracefiles are rejected", func(t *testing.T) {
		_, err := Cover(context.Background(), projects, &CoverOption{Root: root})
		assert.ErrorIs(t, err, lcov.ErrMalformedRecord)
		assert.Contains(t, err.Error(), "project a")
		assert.Contains(t, err.Error(), "project c")
	})

	t.Run("baseline errors", func(t *testing.T) {
		source := &mockBaselineSource{
			hasDirFn: func(ref, dir string) (bool, error) {
				return false, gittool.ErrRevisionNotFound
			},
		}
		_, err := Cover(context.Background(), projects[1:2], &CoverOption{Root: root, CompareRef: "nonexist", Baseline: source})
		assert.True(t, errors.Is(err, gittool.ErrRevisionNotFound))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Cover(ctx, projects[1:2], &CoverOption{Root: root})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// packedRepository commits the given files into a new repository at root, points
// refs/remotes/origin/main at the commit and packs every object.
func packedRepository(t *testing.T, root string, files map[string]string) {
	t.Helper()
	repo, err := gogit.PlainInit(root, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for name, contents := range files {
		writeFile(t, root, name, contents)
		_, err := worktree.Add(name)
		require.NoError(t, err)
	}
	hash, err := worktree.Commit("baseline", &gogit.CommitOptions{
		Author: &object.Signature{Name: "foo", Email: "foo@bar.org", When: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference("refs/remotes/origin/main", hash)))

	require.NoError(t, repo.RepackObjects(&gogit.RepackConfig{}))
	loose, ok := repo.Storer.(storer.LooseObjectStorer)
	require.True(t, ok)
	var hashes []plumbing.Hash
	require.NoError(t, loose.ForEachObjectHash(func(h plumbing.Hash) error {
		hashes = append(hashes, h)
		return nil
	}))
	for _, h := range hashes {
		require.NoError(t, loose.DeleteLooseObject(h))
	}
}

func TestCoverWithGitBaseline(t *testing.T) {
	const count = 40
	root := t.TempDir()

	committed := map[string]string{"zero/README.md": "no coverage yet\n"}
	var projects []*Project
	for i := 0; i < count; i++ {
		dir := fmt.Sprintf("p%02d", i)
		committed[dir+"/coverage/lcov.info"] = "SF:lib/a.dart\nDA:1,1\nDA:2,0\nend_of_record\n"
		projects = append(projects, &Project{Name: dir, Dir: dir})
	}
	packedRepository(t, root, committed)

	for _, p := range projects {
		writeFile(t, root, p.Dir+"/coverage/lcov.info", "SF:lib/a.dart\nDA:1,1\nDA:2,1\nend_of_record\n")
	}
	writeFile(t, root, "zero/coverage/lcov.info", "SF:lib/z.dart\nDA:1,1\nend_of_record\n")
	writeFile(t, root, "fresh/coverage/lcov.info", "SF:lib/f.dart\nDA:1,1\nend_of_record\n")
	projects = append(projects, &Project{Name: "zero", Dir: "zero"}, &Project{Name: "fresh", Dir: "fresh"})

	client, err := gittool.NewGitClient(root)
	require.NoError(t, err)

	covered, err := Cover(context.Background(), projects, &CoverOption{
		Root:             root,
		CompareRef:       "origin/main",
		RootInRepository: ".",
		Baseline:         client,
		Logger:           logrus.New(),
	})
	require.NoError(t, err)
	require.Len(t, covered, count+2)

	for _, p := range covered[:count] {
		assert.Equal(t, report.BaselinePresent, p.Baseline.State, p.Name)
		diff, ok := report.Diff(p)
		assert.True(t, ok, p.Name)
		assert.InDelta(t, 50.0, diff, 1e-9, p.Name)
	}
	assert.Equal(t, report.BaselineZero, covered[count].Baseline.State)
	assert.Equal(t, report.BaselineAbsent, covered[count+1].Baseline.State)

	_, err = os.Stat(filepath.Join(root, ".git", "objects", "pack"))
	assert.NoError(t, err)
}
