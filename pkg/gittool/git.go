package gittool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	DefaultRemote      = "origin"
	DefaultAuthorName  = "github-actions[bot]"
	DefaultAuthorEmail = "github-actions[bot]@users.noreply.github.com"

	remoteRefPrefix = "refs/remotes/"
)

var (
	ErrFileNotFound     = errors.New("file not found at revision")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrNoRemoteURL      = errors.New("remote has no url")
)

// GitClient is the subset of git operations needed around a coverage report.
type GitClient interface {
	// Root returns the absolute path of the working tree.
	Root() (string, error)
	// HeadCommit returns the hash of the HEAD commit.
	HeadCommit() (string, error)
	// RemoteURL returns the web address of the named remote.
	RemoteURL(name string) (string, error)
	// ReadFile returns the contents of a file at the given revision.
	ReadFile(ref string, file string) ([]byte, error)
	// HasDir reports whether the directory exists at the given revision.
	HasDir(ref string, dir string) (bool, error)
	// CommitAll stages the given paths and commits them, returning the new commit hash.
	CommitAll(message string, paths []string) (string, error)
	// Push pushes the current branch to the default remote.
	Push(ctx context.Context) error
}

// NewGitClient opens the repository containing repositoryPath.
func NewGitClient(repositoryPath string) (GitClient, error) {
	repository, err := gogit.PlainOpenWithOptions(repositoryPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repositoryPath, err)
	}

	return &gitClient{
		repositoryPath: repositoryPath,
		repository:     repository,
	}, nil
}

// gitClient is safe for concurrent use, every access to repository holds mu.
// go-git's filesystem storage is not.
type gitClient struct {
	repositoryPath string

	mu         sync.Mutex
	repository *gogit.Repository
}

var _ GitClient = (*gitClient)(nil)

func (g *gitClient) Root() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	worktree, err := g.repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	return worktree.Filesystem.Root(), nil
}

func (g *gitClient) HeadCommit() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	head, err := g.repository.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func (g *gitClient) RemoteURL(name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	remote, err := g.repository.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoRemoteURL, name)
	}
	return WebURL(urls[0]), nil
}

// resolveTree resolves ref, or refs/remotes/<ref> when ref is not found,
// and returns the tree of the commit. The caller holds g.mu.
func (g *gitClient) resolveTree(ref string) (*object.Tree, error) {
	hash, err := g.repository.ResolveRevision(plumbing.Revision(ref))
	if err != nil && !strings.HasPrefix(ref, remoteRefPrefix) {
		hash, err = g.repository.ResolveRevision(plumbing.Revision(remoteRefPrefix + ref))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, ref)
	}

	commit, err := g.repository.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", hash, err)
	}
	return tree, nil
}

func (g *gitClient) ReadFile(ref string, file string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tree, err := g.resolveTree(ref)
	if err != nil {
		return nil, err
	}

	f, err := tree.File(treePath(file))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s@%s", ErrFileNotFound, file, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s@%s: %w", file, ref, err)
	}

	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s@%s: %w", file, ref, err)
	}
	return []byte(contents), nil
}

func (g *gitClient) HasDir(ref string, dir string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tree, err := g.resolveTree(ref)
	if err != nil {
		return false, err
	}

	p := treePath(dir)
	if p == "." {
		return true, nil
	}
	_, err = tree.Tree(p)
	if errors.Is(err, object.ErrDirectoryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s@%s: %w", dir, ref, err)
	}
	return true, nil
}

func (g *gitClient) CommitAll(message string, paths []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	worktree, err := g.repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	for _, p := range paths {
		if _, err := worktree.Add(p); err != nil {
			return "", fmt.Errorf("add %s: %w", p, err)
		}
	}

	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  DefaultAuthorName,
			Email: DefaultAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

func (g *gitClient) Push(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.repository.PushContext(ctx, &gogit.PushOptions{RemoteName: DefaultRemote})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push %s: %w", DefaultRemote, err)
	}
	return nil
}

// treePath converts a repository relative path to the slash separated form used by git trees.
func treePath(p string) string {
	return path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "./"))
}

// WebURL converts a remote url to the https address of the repository, e.g.
// git@github.com:Azure/covreport.git becomes https://github.com/Azure/covreport.
func WebURL(remote string) string {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), ".git")

	// scp-like syntax: [user@]host:path
	if !strings.Contains(remote, "://") {
		if hostPart, p, ok := strings.Cut(remote, ":"); ok {
			if i := strings.LastIndex(hostPart, "@"); i >= 0 {
				hostPart = hostPart[i+1:]
			}
			return "https://" + hostPart + "/" + strings.TrimPrefix(p, "/")
		}
		return remote
	}

	u, err := url.Parse(remote)
	if err != nil {
		return remote
	}
	u.Scheme = "https"
	u.User = nil
	if host := u.Hostname(); host != "" {
		u.Host = host
	}
	return u.String()
}
