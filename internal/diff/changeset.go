package diff

import "github.com/everstacklabs/pricehub/internal/export"

// ChangeSet is the difference between a previous export and the current
// merged catalog.
type ChangeSet struct {
	New             []ModelChange
	Updated         []ModelUpdate
	Removed         []ModelChange
	PossibleRenames []RenamePair
	Unchanged       int
}

// ModelChange is a model that appeared or disappeared.
type ModelChange struct {
	Name  string
	Model *export.Model
}

// ModelUpdate is a model present in both with field changes.
type ModelUpdate struct {
	Name    string
	Model   *export.Model
	Changes []export.FieldChange
}

// RenamePair is a removed model that probably reappeared under a new name.
type RenamePair struct {
	OldName    string
	NewName    string
	Similarity float64
	Reason     string
}

// HasChanges reports whether anything differs.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Updated) > 0 || len(cs.Removed) > 0
}

// TotalChanged returns the count of new + updated models.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.New) + len(cs.Updated)
}

// Models returns every new and updated model, new first.
func (cs *ChangeSet) Models() []*export.Model {
	out := make([]*export.Model, 0, cs.TotalChanged())
	for _, m := range cs.New {
		out = append(out, m.Model)
	}
	for _, u := range cs.Updated {
		out = append(out, u.Model)
	}
	return out
}
