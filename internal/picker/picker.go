// Package picker asks for input files interactively when none were
// given on the command line.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user quits without choosing a file.
var ErrCancelled = errors.New("file selection cancelled")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is a single-file selection screen.
type Model struct {
	title    string
	fp       filepicker.Model
	selected string
	notice   string
	err      error
}

// New builds a picker rooted at dir accepting files with the given
// extensions (".sql", ".xlsx"). No extensions accepts any file.
func New(title, dir string, exts []string) Model {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.AllowedTypes = exts
	return Model{title: title, fp: fp}
}

// Selected returns the chosen path, or "" if nothing was chosen.
func (m Model) Selected() string { return m.selected }

// Err returns ErrCancelled when the user quit.
func (m Model) Err() error { return m.err }

// Init starts reading the initial directory.
func (m Model) Init() tea.Cmd {
	return m.fp.Init()
}

// Update handles quit keys and forwards everything else to the file picker.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c", "q":
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)

	if ok, path := m.fp.DidSelectFile(msg); ok {
		m.selected = path
		return m, tea.Quit
	}
	if ok, path := m.fp.DidSelectDisabledFile(msg); ok {
		m.notice = fmt.Sprintf("%s is not a %s file", path, strings.Join(m.fp.AllowedTypes, "/"))
	}
	return m, cmd
}

// View renders the picker.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(errStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.fp.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter: select  esc: up  q: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Pick runs the picker on the terminal and returns the chosen path.
// The screen is drawn on stderr so stdout stays clean for results.
func Pick(ctx context.Context, title, dir string, exts []string) (string, error) {
	return run(ctx, New(title, dir, exts), os.Stdin, os.Stderr)
}

func run(ctx context.Context, m Model, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("file picker: %w", err)
	}

	fm, ok := final.(Model)
	if !ok {
		return "", fmt.Errorf("file picker: unexpected model %T", final)
	}
	if fm.err != nil {
		return "", fm.err
	}
	if fm.selected == "" {
		return "", ErrCancelled
	}
	return fm.selected, nil
}
