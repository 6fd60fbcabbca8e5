package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/everstacklabs/pricehub/internal/diff"
)

// createPR commits the export on a new branch and opens a pull request.
func (p *Pipeline) createPR(ctx context.Context, cs *diff.ChangeSet, version string, draft bool) (int, error) {
	branchName := fmt.Sprintf("pricehub/catalog-%s-%s", version, p.now().UTC().Format("20060102-150405"))
	title := fmt.Sprintf("chore(catalog): model prices %s", version)

	gitOps, err := OpenRepo(p.cfg.ExportPath, p.cfg.GitHub.Token)
	if err != nil {
		return 0, err
	}
	files, err := gitOps.ChangedFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		slog.Info("export unchanged on disk, skipping PR")
		return 0, nil
	}

	if err := gitOps.CreateBranch(branchName); err != nil {
		return 0, fmt.Errorf("creating branch: %w", err)
	}
	if err := gitOps.Stage(files); err != nil {
		return 0, err
	}
	hash, err := gitOps.Commit(title, p.now())
	if err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	if err := gitOps.Push(ctx); err != nil {
		return 0, fmt.Errorf("pushing: %w", err)
	}
	slog.Info("catalog branch pushed", "branch", branchName, "commit", hash, "files", len(files))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.cfg.GitHub.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	body := diff.RenderPRBody(cs)
	base := p.cfg.GitHub.BaseBranch
	pr, _, err := client.PullRequests.Create(ctx, p.cfg.GitHub.Owner, p.cfg.GitHub.Repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &branchName,
		Base:  &base,
		Draft: &draft,
	})
	if err != nil {
		return 0, fmt.Errorf("opening pull request: %w", err)
	}

	slog.Info("PR created",
		"number", pr.GetNumber(),
		"draft", draft,
		"url", pr.GetHTMLURL())

	return pr.GetNumber(), nil
}
