package diff

import (
	"fmt"
	"strings"
)

// RenderDiffSummary formats a changeset for terminal output.
func RenderDiffSummary(cs *ChangeSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "new: %d  updated: %d  removed: %d  unchanged: %d\n",
		len(cs.New), len(cs.Updated), len(cs.Removed), cs.Unchanged)

	for _, m := range cs.New {
		fmt.Fprintf(&b, "+ %s (%s, %d providers)\n", m.Name, m.Model.Brand, len(m.Model.Providers))
	}
	for _, u := range cs.Updated {
		fmt.Fprintf(&b, "~ %s\n", u.Name)
		for _, c := range u.Changes {
			fmt.Fprintf(&b, "    %s: %s -> %s\n", c.Field, formatValue(c.OldValue), formatValue(c.NewValue))
		}
	}
	for _, m := range cs.Removed {
		fmt.Fprintf(&b, "- %s\n", m.Name)
	}
	for _, r := range cs.PossibleRenames {
		fmt.Fprintf(&b, "? %s -> %s (%s)\n", r.OldName, r.NewName, r.Reason)
	}
	return b.String()
}

// RenderPRBody formats a changeset as a pull request description.
func RenderPRBody(cs *ChangeSet) string {
	var b strings.Builder
	b.WriteString("## Model price catalog update\n\n")
	fmt.Fprintf(&b, "| New | Updated | Removed | Unchanged |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		len(cs.New), len(cs.Updated), len(cs.Removed), cs.Unchanged)

	if len(cs.New) > 0 {
		b.WriteString("### New models\n\n| Model | Brand | Context | Providers |\n|---|---|---|---|\n")
		for _, m := range cs.New {
			fmt.Fprintf(&b, "| `%s` | %s | %d | %d |\n", m.Name, m.Model.Brand, m.Model.ContextWindow, len(m.Model.Providers))
		}
		b.WriteString("\n")
	}

	if len(cs.Updated) > 0 {
		b.WriteString("### Updated models\n\n| Model | Field | Old | New |\n|---|---|---|---|\n")
		for _, u := range cs.Updated {
			for _, c := range u.Changes {
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", u.Name, c.Field, formatValue(c.OldValue), formatValue(c.NewValue))
			}
		}
		b.WriteString("\n")
	}

	if len(cs.Removed) > 0 {
		b.WriteString("### Removed models\n\n")
		for _, m := range cs.Removed {
			fmt.Fprintf(&b, "- `%s`\n", m.Name)
		}
		b.WriteString("\n")
	}

	if len(cs.PossibleRenames) > 0 {
		b.WriteString("### Possible renames\n\n")
		for _, r := range cs.PossibleRenames {
			fmt.Fprintf(&b, "- `%s` -> `%s` (%s)\n", r.OldName, r.NewName, r.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("Prices are listed in each provider's own currency or unit and are not converted.\n")
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
