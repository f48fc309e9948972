package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lin-Jiong-HDU/guard/internal/core/security"
)

// Notifier prints decision notices, normally to stderr so the wrapped
// program's stdout stays clean.
type Notifier struct {
	out   io.Writer
	style *StyleConfig
}

// NewNotifier creates a notifier writing to out (stderr when nil).
func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = os.Stderr
	}
	return &Notifier{out: out, style: DefaultStyleConfig()}
}

// Notice explains a decision: what matched, why, and how to override it.
// realPath is the resolved real program, used for the unmanaged form.
// Plain allows print nothing.
func (n *Notifier) Notice(d security.Decision, realPath string) {
	if d.Rule == nil {
		return
	}
	rule := d.Rule

	if d.BypassUsed {
		fmt.Fprintf(n.out, "%s %s\n",
			n.style.title(n.style.AllowColor).Render("guard: override"),
			n.style.subtle().Render(fmt.Sprintf("%s acknowledged with %s", rule.ID, d.BypassToken)),
		)
		return
	}

	var color lipgloss.Color
	var heading, emoji string
	switch d.Verdict {
	case security.Block:
		color, heading, emoji = n.style.BlockColor, "BLOCKED", "🛑"
	case security.Warn:
		color, heading, emoji = n.style.WarnColor, "WARNING", "⚠️"
	default:
		color, heading, emoji = n.style.InfoColor, "NOTE", "ℹ️"
	}
	if rule.Emoji != "" {
		emoji = rule.Emoji
	}

	title := fmt.Sprintf("%s guard: %s %s", emoji, heading, rule.ID)
	if rule.Level != "" {
		title += fmt.Sprintf(" (%s)", rule.Level)
	}

	var b strings.Builder
	b.WriteString(n.style.title(color).Render(title))
	b.WriteString("\n  " + rule.Message + "\n")

	if d.Resolution != nil {
		class, _ := d.Resolution.Class()
		target := d.Resolution.Canonical
		if d.Resolution.Degraded {
			target = d.Resolution.Lexical + " (unresolved)"
		}
		n.field(&b, "Resource", fmt.Sprintf("%s -> %s [%s]", d.Resolution.Raw, target, class))
	}

	if len(rule.Alternatives) > 0 {
		n.field(&b, "Instead", "")
		for _, alt := range rule.Alternatives {
			b.WriteString("    - " + alt + "\n")
		}
	}
	if len(rule.Verify) > 0 && d.Verdict != security.Allow {
		n.field(&b, "Check first", "")
		for _, v := range rule.Verify {
			b.WriteString("    - " + v + "\n")
		}
	}

	switch d.Verdict {
	case security.Block:
		if cmd := d.OverrideCommand(); cmd != "" {
			n.field(&b, "Override", cmd)
		} else {
			n.field(&b, "Override", "not available for this rule")
		}
		n.field(&b, "Unmanaged", d.UnmanagedCommand(realPath)+
			n.style.subtle().Render("  (runs without guard)"))
	case security.Warn:
		if rule.Bypass != "" {
			n.field(&b, "Silence", "add "+rule.Bypass)
		}
	}
	if rule.Docs != "" {
		n.field(&b, "Docs", rule.Docs)
	}

	fmt.Fprint(n.out, b.String())
}

// Error prints an internal error without blocking the user.
func (n *Notifier) Error(format string, args ...any) {
	fmt.Fprintln(n.out, n.style.title(n.style.BlockColor).Render("guard: "+fmt.Sprintf(format, args...)))
}

func (n *Notifier) field(b *strings.Builder, name, value string) {
	b.WriteString("  " + n.style.label().Render(name+":"))
	if value != "" {
		b.WriteString(" " + value)
	}
	b.WriteString("\n")
}
