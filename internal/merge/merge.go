// Package merge groups normalized records that name the same model and
// reduces each group to a CanonicalModel.
package merge

import (
	"fmt"

	"github.com/everstacklabs/pricehub/internal/model"
)

// DefaultThreshold is the similarity percentage at or above which two names
// are treated as the same model.
const DefaultThreshold = 75.0

// Strategy selects how similar records are grouped.
type Strategy string

const (
	// StrategySequential makes a single forward pass: each unassigned record
	// opens a group and absorbs later unassigned records similar to it. The
	// relation is not transitive.
	StrategySequential Strategy = "sequential"
	// StrategyTransitive groups the connected components of the similarity
	// graph, so A~B and B~C put A, B and C together.
	StrategyTransitive Strategy = "transitive"
)

// Engine merges records by name similarity. An Engine is immutable and safe
// for concurrent use.
type Engine struct {
	threshold float64
	strategy  Strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy selects the grouping strategy. The default is sequential.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// New creates an engine with a threshold percentage in [0, 100].
func New(threshold float64, opts ...Option) (*Engine, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("similarity threshold %.2f outside [0, 100]", threshold)
	}
	e := &Engine{threshold: threshold, strategy: StrategySequential}
	for _, opt := range opts {
		opt(e)
	}
	switch e.strategy {
	case StrategySequential, StrategyTransitive:
	default:
		return nil, fmt.Errorf("unknown merge strategy %q", e.strategy)
	}
	return e, nil
}

// Threshold returns the configured percentage.
func (e *Engine) Threshold() float64 { return e.threshold }

// Strategy returns the configured grouping strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Similar reports whether two names meet the threshold.
func (e *Engine) Similar(a, b string) bool {
	return Similarity(a, b)*100 >= e.threshold
}

// Group is one equivalence class produced by grouping.
type Group struct {
	// Key is the group's final name: the name of the last record to join.
	Key string
	// Members are positions in the input slice, ascending.
	Members []int
}

// class is a group under construction. Its key is rewritten each time a
// member joins.
type class struct {
	key     string
	members []int
}

// Groups partitions records without reducing them.
func (e *Engine) Groups(records []model.Record) []Group {
	var classes []*class
	if e.strategy == StrategyTransitive {
		classes = e.transitive(records)
	} else {
		classes = e.sequential(records)
	}

	out := make([]Group, 0, len(classes))
	for _, c := range classes {
		out = append(out, Group{Key: c.key, Members: c.members})
	}
	return out
}

func (e *Engine) sequential(records []model.Record) []*class {
	processed := make([]bool, len(records))
	var classes []*class

	for i := range records {
		if processed[i] {
			continue
		}
		processed[i] = true
		c := &class{key: records[i].Name, members: []int{i}}
		classes = append(classes, c)

		for j := i + 1; j < len(records); j++ {
			if processed[j] || !e.Similar(records[i].Name, records[j].Name) {
				continue
			}
			processed[j] = true
			c.members = append(c.members, j)
			c.key = records[j].Name
		}
	}
	return classes
}

func (e *Engine) transitive(records []model.Record) []*class {
	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for i := range records {
		for j := i + 1; j < len(records); j++ {
			if find(i) == find(j) {
				continue
			}
			if e.Similar(records[i].Name, records[j].Name) {
				ri, rj := find(i), find(j)
				// Keep the smallest index as root so classes come out in
				// first-member order.
				if ri < rj {
					parent[rj] = ri
				} else {
					parent[ri] = rj
				}
			}
		}
	}

	byRoot := make(map[int]*class, len(records))
	var classes []*class
	for i := range records {
		root := find(i)
		c, ok := byRoot[root]
		if !ok {
			c = &class{}
			byRoot[root] = c
			classes = append(classes, c)
		}
		c.members = append(c.members, i)
		c.key = records[i].Name
	}
	return classes
}

// Merge groups records and reduces each group to a CanonicalModel. Output is
// in group-creation order. Every input record contributes exactly one offer.
func (e *Engine) Merge(records []model.Record) []model.CanonicalModel {
	groups := e.Groups(records)
	out := make([]model.CanonicalModel, 0, len(groups))
	members := make([]model.Record, 0, 8)
	for _, g := range groups {
		members = members[:0]
		for _, idx := range g.Members {
			members = append(members, records[idx])
		}
		out = append(out, reduce(g.Key, members))
	}
	return out
}

// Singletons returns one CanonicalModel per record, bypassing grouping.
func Singletons(records []model.Record) []model.CanonicalModel {
	out := make([]model.CanonicalModel, 0, len(records))
	for _, r := range records {
		out = append(out, reduce(r.Name, []model.Record{r}))
	}
	return out
}

// reduce folds members (in ascending index order) into one model. Brand and
// recommended provider come from the last member; the context window and
// training data amount are maxima.
func reduce(key string, members []model.Record) model.CanonicalModel {
	last := members[len(members)-1]
	cm := model.CanonicalModel{
		Name:                key,
		Brand:               last.Brand,
		RecommendedProvider: last.SourceID(),
		Providers:           make([]model.ProviderOffer, 0, len(members)),
	}

	for _, r := range members {
		if r.ContextWindow > cm.ContextWindow {
			cm.ContextWindow = r.ContextWindow
		}
		if r.TrainingDataAmount != nil && (cm.TrainingDataAmount == nil || *r.TrainingDataAmount > *cm.TrainingDataAmount) {
			cm.TrainingDataAmount = model.IntPtr(*r.TrainingDataAmount)
		}
		cm.Providers = append(cm.Providers, r.Offer)
	}
	return cm
}
