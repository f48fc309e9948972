package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
)

// Renderer renders markdown for the terminal.
type Renderer struct {
	term *glamour.TermRenderer
}

// NewRenderer creates a Renderer wrapping at width.
func NewRenderer(width int) (*Renderer, error) {
	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Renderer{term: term}, nil
}

// Render renders markdown, falling back to the raw text.
func (r *Renderer) Render(markdown string) string {
	out, err := r.term.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// RuleMarkdown describes a rule as a markdown document.
func RuleMarkdown(rule *rules.Rule) string {
	var b strings.Builder

	title := rule.ID
	if rule.Emoji != "" {
		title = rule.Emoji + " " + title
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%s\n\n", rule.Message)

	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Program | `%s` |\n", rule.Program)
	fmt.Fprintf(&b, "| Severity | %s |\n", rule.Severity)
	if rule.Level != "" {
		fmt.Fprintf(&b, "| Level | %s |\n", rule.Level)
	}
	if rule.Family != "" {
		fmt.Fprintf(&b, "| Family | %s |\n", rule.Family)
	}
	if rule.Bypass != "" {
		fmt.Fprintf(&b, "| Override | `%s` |\n", rule.Bypass)
	} else {
		fmt.Fprintf(&b, "| Override | none |\n")
	}
	b.WriteString("\n")

	if len(rule.Pattern) > 0 {
		b.WriteString("## Matches\n\n")
		for _, alt := range rule.Pattern {
			fmt.Fprintf(&b, "- `%s %s`\n", rule.Program, alt)
		}
		b.WriteString("\n")
	}
	if len(rule.Protect) > 0 {
		b.WriteString("## Protected resources\n\n")
		for _, class := range rule.Protect {
			fmt.Fprintf(&b, "- %s\n", class)
		}
		b.WriteString("\n")
	}
	if len(rule.Alternatives) > 0 {
		b.WriteString("## Alternatives\n\n")
		for _, alt := range rule.Alternatives {
			fmt.Fprintf(&b, "- `%s`\n", alt)
		}
		b.WriteString("\n")
	}
	if len(rule.Verify) > 0 {
		b.WriteString("## Verify first\n\n")
		for i, v := range rule.Verify {
			fmt.Fprintf(&b, "%d. `%s`\n", i+1, v)
		}
		b.WriteString("\n")
	}
	if rule.AIWarning != "" {
		fmt.Fprintf(&b, "## For automated agents\n\n> %s\n\n", rule.AIWarning)
	}
	if rule.Docs != "" {
		fmt.Fprintf(&b, "See %s\n", rule.Docs)
	}
	return b.String()
}
