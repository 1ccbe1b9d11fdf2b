package driver

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
)

// Prompter reads one line of operator input. Implementations return
// ErrExit when the operator aborts the prompt.
type Prompter interface {
	Ask(title string) (string, error)
}

// HuhPrompter prompts with huh input fields. Accessible mode falls back
// to plain line-oriented prompts.
type HuhPrompter struct {
	accessible bool
	in         io.Reader
	out        io.Writer
}

// NewHuhPrompter returns a prompter reading from in and drawing to out.
// Nil streams use huh's defaults (stdin/stdout).
func NewHuhPrompter(accessible bool, in io.Reader, out io.Writer) *HuhPrompter {
	return &HuhPrompter{accessible: accessible, in: in, out: out}
}

// Ask shows a single-line input titled title.
func (p *HuhPrompter) Ask(title string) (string, error) {
	var value string
	err := p.run(huh.NewInput().Title(title).Value(&value))
	return value, err
}

// AskSecret shows a masked input titled title.
func (p *HuhPrompter) AskSecret(title string) (string, error) {
	var value string
	err := p.run(
		huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&value),
	)
	return value, err
}

func (p *HuhPrompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithAccessible(p.accessible).
		WithShowHelp(false)
	if p.in != nil {
		form = form.WithInput(p.in)
	}
	if p.out != nil {
		form = form.WithOutput(p.out)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, io.EOF) {
			return ErrExit
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}
