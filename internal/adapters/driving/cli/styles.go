package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// Theme is the colour palette of the command output.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// Styles are the lipgloss styles used by the commands.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(theme.Error),
	}
}

var styles = NewStyles(nil)

// Status renders a ledger status in its colour.
func (s *Styles) Status(status domain.SyncStatus) string {
	switch status {
	case domain.SyncCompleted:
		return s.Success.Render(string(status))
	case domain.SyncFailed:
		return s.Error.Render(string(status))
	default:
		return s.Warning.Render(string(status))
	}
}

// Stage renders a lifecycle stage, dimming sources not yet loaded.
func (s *Styles) Stage(stage domain.Lifecycle) string {
	if stage.IsLoaded() {
		return s.Success.Render(string(stage))
	}
	return s.Muted.Render(string(stage))
}

// defaultWidth is used when the output is not a terminal.
const defaultWidth = 100

// outputWidth returns the terminal width of w, or defaultWidth.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// rule is a horizontal separator as wide as the output.
func rule(w io.Writer) string {
	width := outputWidth(w)
	if width > 80 {
		width = 80
	}
	return styles.Muted.Render(strings.Repeat("─", width))
}
