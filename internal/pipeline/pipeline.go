// Package pipeline refreshes the catalog, diffs it against the exported copy
// on disk, and publishes the changes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/everstacklabs/pricehub/internal/catalog"
	"github.com/everstacklabs/pricehub/internal/config"
	"github.com/everstacklabs/pricehub/internal/diff"
	"github.com/everstacklabs/pricehub/internal/export"
	"github.com/everstacklabs/pricehub/internal/model"
	"github.com/everstacklabs/pricehub/internal/validate"
)

// ExitCode constants for CLI.
const (
	ExitSuccess      = 0
	ExitChanges      = 2 // Changes detected (diff mode)
	ExitPolicyBlock  = 3 // Blocked by risk policy or validation
	ExitSourceHealth = 4 // No source produced data
)

// Risk gates.
const (
	draftChangedModels = 25
	draftRemovals      = 3
	draftPriceDelta    = 0.35
	// blockRemovalShare blocks a sync that would delete more than this share
	// of the previous export.
	blockRemovalShare = 0.5
)

// ErrNoHealthySources is returned when every source failed.
var ErrNoHealthySources = errors.New("no source returned data")

// Catalog is the part of the catalog service the pipeline needs.
type Catalog interface {
	Refresh(ctx context.Context) (*catalog.RefreshReport, error)
	ListModels(ctx context.Context, mergeEnabled bool) ([]model.CanonicalModel, error)
}

// Pipeline orchestrates diff and sync runs.
type Pipeline struct {
	cfg     *config.Config
	catalog Catalog
	now     func() time.Time
}

// New creates a new Pipeline.
func New(cfg *config.Config, c Catalog) *Pipeline {
	return &Pipeline{cfg: cfg, catalog: c, now: time.Now}
}

// Plan is a computed but unapplied sync.
type Plan struct {
	Report    *catalog.RefreshReport
	Models    []model.CanonicalModel
	ChangeSet *diff.ChangeSet
	// Retained lists removed models kept because a source they came from
	// was unhealthy in this run.
	Retained []string
	previous *export.Catalog
}

// SyncResult holds the outcome of a sync.
type SyncResult struct {
	Plan       *Plan
	Validation *validate.Result
	Version    string
	PRNumber   int
	PRDraft    bool
	Skipped    bool
	SkipReason string
}

// Diff refreshes the catalog and diffs it against the export without writing.
func (p *Pipeline) Diff(ctx context.Context) (*Plan, error) {
	return p.plan(ctx)
}

func (p *Pipeline) plan(ctx context.Context) (*Plan, error) {
	report, err := p.catalog.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing catalog: %w", err)
	}
	if len(report.Sources) > 0 && len(report.Failed()) == len(report.Sources) {
		return nil, ErrNoHealthySources
	}

	models, err := p.catalog.ListModels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	previous, err := p.loadPrevious()
	if err != nil {
		return nil, err
	}

	cs := diff.Compute(previous.Models, models)
	plan := &Plan{Report: report, Models: models, ChangeSet: cs, previous: previous}
	plan.Retained = retainUnhealthy(cs, report.Unhealthy())

	slog.Info("diff computed",
		"run_id", report.RunID,
		"new", len(cs.New),
		"updated", len(cs.Updated),
		"removed", len(cs.Removed),
		"retained", len(plan.Retained),
		"unchanged", cs.Unchanged)
	return plan, nil
}

// loadPrevious reads the export, treating a missing one as empty.
func (p *Pipeline) loadPrevious() (*export.Catalog, error) {
	cat, err := export.Load(p.cfg.ExportPath)
	if errors.Is(err, os.ErrNotExist) {
		return &export.Catalog{
			BasePath: p.cfg.ExportPath,
			Version:  export.InitialVersion,
			Models:   map[string]*export.Model{},
			Files:    map[string]string{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading export: %w", err)
	}
	return cat, nil
}

// retainUnhealthy drops removals that may only reflect a source outage and
// returns their names.
func retainUnhealthy(cs *diff.ChangeSet, unhealthy []string) []string {
	if len(unhealthy) == 0 {
		return nil
	}
	bad := make(map[string]bool, len(unhealthy))
	for _, id := range unhealthy {
		bad[id] = true
	}

	var kept []string
	removed := cs.Removed[:0]
	for _, m := range cs.Removed {
		retain := false
		for _, id := range m.Model.SourceIDs() {
			if bad[id] {
				retain = true
				break
			}
		}
		if retain {
			kept = append(kept, m.Name)
			continue
		}
		removed = append(removed, m)
	}
	cs.Removed = removed
	return kept
}

// Sync runs the full pipeline: diff, validate, write, version, manifest and
// an optional pull request.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	plan, err := p.plan(ctx)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Plan: plan, Version: plan.previous.Version}
	cs := plan.ChangeSet

	if !cs.HasChanges() {
		slog.Info("no changes detected")
		result.Skipped = true
		result.SkipReason = "no changes"
		return result, nil
	}

	draft, blocked, reason := assessRisk(cs, len(plan.previous.Models))
	if blocked {
		slog.Warn("sync blocked by policy", "reason", reason)
		result.Skipped = true
		result.SkipReason = reason
		return result, nil
	}
	result.PRDraft = draft

	result.Validation = validate.ValidateCatalog(plan.Models)
	if result.Validation.HasErrors() {
		return result, fmt.Errorf("validation failed:\n%s", validate.FormatResult(result.Validation))
	}

	if p.cfg.DryRun {
		slog.Info("dry run, skipping write", "draft", draft)
		return result, nil
	}

	if err := p.write(plan); err != nil {
		return result, err
	}

	version, err := p.bumpVersion(len(cs.New) > 0)
	if err != nil {
		return result, fmt.Errorf("bumping version: %w", err)
	}
	result.Version = version

	if _, err := export.GenerateManifest(p.cfg.ExportPath); err != nil {
		return result, fmt.Errorf("generating manifest: %w", err)
	}

	if p.cfg.GitHub.Token != "" {
		prNum, err := p.createPR(ctx, cs, version, result.PRDraft)
		if err != nil {
			return result, fmt.Errorf("creating PR: %w", err)
		}
		result.PRNumber = prNum
	}

	return result, nil
}

func (p *Pipeline) write(plan *Plan) error {
	if err := export.Init(p.cfg.ExportPath); err != nil {
		return err
	}

	now := p.now()
	writer := export.NewWriter(p.cfg.ExportPath)
	for _, m := range plan.ChangeSet.Models() {
		m.Stamp(plan.Report.RunID, now)
		if _, err := writer.WriteModel(m); err != nil {
			return fmt.Errorf("writing model %s: %w", m.Name, err)
		}
	}
	for _, m := range plan.ChangeSet.Removed {
		if err := plan.previous.Remove(m.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) bumpVersion(hasNew bool) (string, error) {
	versionPath := filepath.Join(p.cfg.ExportPath, "version.txt")
	data, err := os.ReadFile(versionPath)
	if err != nil {
		return "", err
	}

	newVersion, err := bumpSemver(strings.TrimSpace(string(data)), hasNew)
	if err != nil {
		return "", err
	}
	return newVersion, os.WriteFile(versionPath, []byte(newVersion+"\n"), 0o644)
}

// bumpSemver increments MINOR for new models, PATCH otherwise.
func bumpSemver(version string, hasNew bool) (string, error) {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid semver: %s", version)
	}

	var major, minor, patch int
	for i, dst := range []*int{&major, &minor, &patch} {
		if _, err := fmt.Sscanf(parts[i], "%d", dst); err != nil {
			return "", fmt.Errorf("invalid semver: %s", version)
		}
	}

	if hasNew {
		minor++
		patch = 0
	} else {
		patch++
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}

// assessRisk evaluates the changeset against the risk gates.
// Returns: (draft, blocked, reason)
func assessRisk(cs *diff.ChangeSet, previousCount int) (bool, bool, string) {
	if previousCount > 0 && float64(len(cs.Removed)) > blockRemovalShare*float64(previousCount) {
		return false, true, fmt.Sprintf("would remove %d of %d models", len(cs.Removed), previousCount)
	}

	draft := cs.TotalChanged() > draftChangedModels || len(cs.Removed) > draftRemovals

	for _, u := range cs.Updated {
		for _, c := range u.Changes {
			if !strings.HasSuffix(c.Field, "_price") {
				continue
			}
			oldVal, okOld := c.OldValue.(float64)
			newVal, okNew := c.NewValue.(float64)
			if okOld && okNew && oldVal > 0 {
				delta := (newVal - oldVal) / oldVal
				if delta > draftPriceDelta || delta < -draftPriceDelta {
					draft = true
				}
			}
		}
	}

	return draft, false, ""
}
