// Package validate runs sanity checks over merged models before they are
// exported.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/everstacklabs/pricehub/internal/export"
	"github.com/everstacklabs/pricehub/internal/model"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Blocks the sync
	SeverityWarning                 // Reported but does not block
)

// Context window bounds outside which a value is suspicious.
const (
	MinContextWindow = 512
	MaxContextWindow = 10_000_000
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Model    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s: %s", sev, i.Model, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

func (r *Result) add(sev Severity, model, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{sev, model, field, fmt.Sprintf(format, args...)})
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Currency tags the bundled sources emit.
var knownCurrencies = map[string]bool{
	"USD":   true,
	"CNY":   true,
	"EUR":   true,
	"ratio": true,
}

// ValidateModel checks one merged model. A non-empty filename must be the
// model's slug file name.
func ValidateModel(m model.CanonicalModel, filename string) *Result {
	r := &Result{}
	label := m.Name
	if label == "" {
		label = filename
	}

	if strings.TrimSpace(m.Name) == "" {
		r.add(SeverityError, label, "name", "required field is empty")
	} else if filename != "" {
		if want := export.Slug(m.Name) + ".yaml"; filename != want {
			r.add(SeverityError, label, "name", "filename %q does not match name %q (want %q)", filename, m.Name, want)
		}
	}

	if len(m.Providers) == 0 {
		r.add(SeverityError, label, "providers", "at least one provider offer required")
	}

	if m.ContextWindow < MinContextWindow || m.ContextWindow > MaxContextWindow {
		r.add(SeverityWarning, label, "context_window", "value %d outside expected range [%d, %d]",
			m.ContextWindow, MinContextWindow, MaxContextWindow)
	}
	if m.Brand == "" {
		r.add(SeverityWarning, label, "brand", "brand is empty")
	}

	recommended := false
	for i, p := range m.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.ProviderID == "" {
			r.add(SeverityError, label, field+".provider_id", "required field is empty")
		}
		if p.ProviderID == m.RecommendedProvider {
			recommended = true
		}
		if p.InputPrice < 0 || math.IsNaN(p.InputPrice) || math.IsInf(p.InputPrice, 0) {
			r.add(SeverityError, label, field+".input_price", "invalid price %v", p.InputPrice)
		}
		if p.OutputPrice < 0 || math.IsNaN(p.OutputPrice) || math.IsInf(p.OutputPrice, 0) {
			r.add(SeverityError, label, field+".output_price", "invalid price %v", p.OutputPrice)
		}
		if p.OutputPrice == 0 && p.InputPrice > 0 {
			r.add(SeverityWarning, label, field+".output_price", "zero output price with non-zero input price")
		}
		if !knownCurrencies[p.Currency] {
			r.add(SeverityWarning, label, field+".currency", "unknown currency tag %q", p.Currency)
		}
	}
	if len(m.Providers) > 0 && !recommended {
		r.add(SeverityWarning, label, "recommended_provider", "%q is not among the offers", m.RecommendedProvider)
	}

	if cur := m.Currencies(); len(cur) > 1 {
		r.add(SeverityWarning, label, "providers", "mixed currencies %s; prices are not comparable", strings.Join(cur, ", "))
	}

	return r
}

// ValidateCatalog validates merged models and checks that no two of them
// map to the same export file.
func ValidateCatalog(models []model.CanonicalModel) *Result {
	r := &Result{}
	owners := make(map[string]string, len(models))
	for _, m := range models {
		r.Issues = append(r.Issues, ValidateModel(m, "").Issues...)
		slug := export.Slug(m.Name)
		if slug == "" {
			if m.Name != "" {
				r.add(SeverityError, m.Name, "name", "name has no usable file name")
			}
			continue
		}
		if prev, dup := owners[slug]; dup {
			r.add(SeverityError, m.Name, "name", "file %s.yaml already used by %q", slug, prev)
			continue
		}
		owners[slug] = m.Name
	}
	return r
}

// ValidateExport validates a catalog loaded from disk.
func ValidateExport(cat *export.Catalog) *Result {
	r := &Result{}
	for _, name := range cat.Names() {
		modelResult := ValidateModel(cat.Models[name].ToCanonical(), cat.Files[name])
		r.Issues = append(r.Issues, modelResult.Issues...)
	}
	return r
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errs := r.Errors()
	warnings := r.Warnings()

	if len(errs) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	return b.String()
}
