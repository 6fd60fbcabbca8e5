package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// commitAuthor signs catalog commits.
var commitAuthor = object.Signature{Name: "pricehub", Email: "pricehub@everstack.dev"}

// GitOps stages and publishes changes to the export directory. The export
// may live anywhere inside the repository; files outside it are left alone.
type GitOps struct {
	repo     *git.Repository
	worktree *git.Worktree
	token    string
	// prefix is the export directory relative to the repository root, with
	// forward slashes and a trailing slash ("" when the export is the root).
	prefix string
	branch plumbing.ReferenceName
}

// OpenRepo opens the repository that contains exportPath.
func OpenRepo(exportPath, token string) (*GitOps, error) {
	repo, err := git.PlainOpenWithOptions(exportPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(exportPath)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return nil, fmt.Errorf("locating export in repo: %w", err)
	}

	prefix := ""
	if rel != "." {
		prefix = filepath.ToSlash(rel) + "/"
	}
	return &GitOps{repo: repo, worktree: wt, token: token, prefix: prefix}, nil
}

// ChangedFiles lists export files that differ from HEAD, sorted.
func (g *GitOps) ChangedFiles() ([]string, error) {
	status, err := g.worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	var out []string
	for path, st := range status {
		if !strings.HasPrefix(path, g.prefix) {
			continue
		}
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// CreateBranch points a new branch at HEAD and switches to it without
// touching the worktree.
func (g *GitOps) CreateBranch(name string) error {
	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := g.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("creating branch ref: %w", err)
	}
	if err := g.worktree.Checkout(&git.CheckoutOptions{Branch: ref.Name(), Keep: true}); err != nil {
		return fmt.Errorf("checking out %s: %w", name, err)
	}
	g.branch = ref.Name()
	return nil
}

// Stage adds every changed export file to the index, recording deletions.
func (g *GitOps) Stage(files []string) error {
	status, err := g.worktree.Status()
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	for _, path := range files {
		if status.File(path).Worktree == git.Deleted {
			if _, err := g.worktree.Remove(path); err != nil {
				return fmt.Errorf("staging removal of %s: %w", path, err)
			}
			continue
		}
		if _, err := g.worktree.Add(path); err != nil {
			return fmt.Errorf("staging %s: %w", path, err)
		}
	}
	return nil
}

// Commit records the index and returns the new commit hash.
func (g *GitOps) Commit(message string, when time.Time) (string, error) {
	author := commitAuthor
	author.When = when
	hash, err := g.worktree.Commit(message, &git.CommitOptions{Author: &author})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// Push sends the branch made by CreateBranch to origin.
func (g *GitOps) Push(ctx context.Context) error {
	if g.branch == "" {
		return fmt.Errorf("no branch to push")
	}
	return g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+%s:%s", g.branch, g.branch))},
		Auth:       &githttp.BasicAuth{Username: "x-access-token", Password: g.token},
	})
}
