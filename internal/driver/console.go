package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydraft/internal/theme"
)

// Console writes operator-facing reports. Diagnostics go to the logger.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) print(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(c.w, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints a section title.
func (c *Console) Header(format string, args ...any) {
	c.print(theme.HeaderStyle, format, args...)
}

// Rule prints the separator shown before each prompt cycle.
func (c *Console) Rule() {
	fmt.Fprintln(c.w, theme.RuleStyle.Render(strings.Repeat("_", 55)))
}

// Info prints a progress message.
func (c *Console) Info(format string, args ...any) {
	c.print(theme.InfoStyle, format, args...)
}

// Success prints a completed step.
func (c *Console) Success(format string, args ...any) {
	c.print(theme.SuccessStyle, format, args...)
}

// Warn prints a recoverable condition.
func (c *Console) Warn(format string, args ...any) {
	c.print(theme.WarnStyle, format, args...)
}

// Error prints rejected input.
func (c *Console) Error(format string, args ...any) {
	c.print(theme.ErrorStyle, format, args...)
}

// Hint prints a help line.
func (c *Console) Hint(format string, args ...any) {
	c.print(theme.HelpStyle, format, args...)
}
