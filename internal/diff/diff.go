// Package diff compares the merged catalog against a previous export.
package diff

import (
	"fmt"
	"sort"

	"github.com/everstacklabs/pricehub/internal/export"
	"github.com/everstacklabs/pricehub/internal/merge"
	"github.com/everstacklabs/pricehub/internal/model"
)

// RenameThreshold is the minimum name similarity, as a percentage, for a
// removed and a new model to be reported as a possible rename.
const RenameThreshold = 75.0

// Compute diffs the current merged models against the previous export keyed
// by model name. New and updated models keep the current order; removed
// models are sorted by name.
func Compute(previous map[string]*export.Model, current []model.CanonicalModel) *ChangeSet {
	cs := &ChangeSet{}
	seen := make(map[string]bool, len(current))

	for _, cm := range current {
		if seen[cm.Name] {
			continue
		}
		seen[cm.Name] = true
		m := export.FromCanonical(cm)

		old, ok := previous[cm.Name]
		if !ok {
			cs.New = append(cs.New, ModelChange{Name: cm.Name, Model: m})
			continue
		}
		if changes := export.CompareModels(old, m); len(changes) > 0 {
			cs.Updated = append(cs.Updated, ModelUpdate{Name: cm.Name, Model: m, Changes: changes})
		} else {
			cs.Unchanged++
		}
	}

	var gone []ModelChange
	for name, m := range previous {
		if !seen[name] {
			gone = append(gone, ModelChange{Name: name, Model: m})
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].Name < gone[j].Name })
	cs.Removed = gone
	cs.PossibleRenames = detectRenames(cs.New, gone)

	return cs
}

// detectRenames pairs each removed model with the most similar new model
// that shares at least one source.
func detectRenames(added, removed []ModelChange) []RenamePair {
	var renames []RenamePair
	for _, oldM := range removed {
		best, bestScore := -1, 0.0
		for i, newM := range added {
			if !shareSource(oldM.Model, newM.Model) {
				continue
			}
			score := merge.Similarity(oldM.Name, newM.Name) * 100
			if score >= RenameThreshold && score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			continue
		}
		renames = append(renames, RenamePair{
			OldName:    oldM.Name,
			NewName:    added[best].Name,
			Similarity: bestScore,
			Reason:     fmt.Sprintf("%.0f%% name similarity, shared source", bestScore),
		})
	}
	return renames
}

func shareSource(a, b *export.Model) bool {
	ids := make(map[string]bool, len(a.Providers))
	for _, id := range a.SourceIDs() {
		ids[id] = true
	}
	for _, id := range b.SourceIDs() {
		if ids[id] {
			return true
		}
	}
	return false
}
