package repl

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/starford/foodly/internal/models"
)

func mark(b *bool) string {
	switch {
	case b == nil:
		return " "
	case *b:
		return "*"
	default:
		return "-"
	}
}

func minutes(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d min", *p)
}

// RenderList writes recipes as a table. The first column is the bookmark
// state: * bookmarked, - not bookmarked, blank unknown.
func RenderList(w io.Writer, recipes []models.Recipe) error {
	if len(recipes) == 0 {
		_, err := fmt.Fprintln(w, "no recipes")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tTITLE\tTIME\tTAGS")
	for _, r := range recipes {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", mark(r.Bookmarked), r.ID, r.Title, minutes(r.Timer), strings.Join(r.Tags, ", "))
	}
	return tw.Flush()
}

// RenderRecipe writes one recipe in full.
func RenderRecipe(w io.Writer, r models.Recipe) error {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", r.ID, r.Title)
	if r.Bookmarked != nil && *r.Bookmarked {
		b.WriteString("  [bookmarked]")
	}
	b.WriteString("\n")
	if r.Servings != "" {
		fmt.Fprintf(&b, "serves %s", r.Servings)
		if r.Timer != nil {
			fmt.Fprintf(&b, ", %s", minutes(r.Timer))
		}
		b.WriteString("\n")
	}
	if r.Kcal != nil {
		fmt.Fprintf(&b, "%d kcal\n", *r.Kcal)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(r.Tags, ", "))
	}
	if len(r.Ingredients) > 0 {
		b.WriteString("\ningredients:\n")
		for _, in := range r.Ingredients {
			b.WriteString("  - ")
			if in.Amount != nil {
				fmt.Fprintf(&b, "%g ", *in.Amount)
			}
			if in.Unit != nil {
				fmt.Fprintf(&b, "%s ", *in.Unit)
			}
			b.WriteString(in.Label + "\n")
		}
	}
	if len(r.Instructions) > 0 {
		b.WriteString("\ninstructions:\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderTags writes tags as a slug/label table.
func RenderTags(w io.Writer, tags []models.Tag) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tLABEL")
	for _, t := range tags {
		fmt.Fprintf(tw, "%s\t%s\n", t.Slug, t.Label)
	}
	return tw.Flush()
}
