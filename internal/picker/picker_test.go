package picker

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// load feeds the directory listing produced by Init back into the model.
func load(t *testing.T, m Model) Model {
	t.Helper()
	cmd := m.Init()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestModel_SelectsAllowedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte("--1.1"), 0o600))

	m := load(t, New("Choose script", dir, []string{".sql"}))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := next.(Model)

	assert.Equal(t, filepath.Join(dir, "a.sql"), got.Selected())
	assert.NoError(t, got.Err())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_QuitCancels(t *testing.T) {
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
	} {
		m := New("Choose workbook", t.TempDir(), []string{".xlsx"})
		next, cmd := m.Update(k)
		got := next.(Model)

		assert.ErrorIs(t, got.Err(), ErrCancelled, k.String())
		assert.Empty(t, got.Selected())
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestModel_View(t *testing.T) {
	m := New("Choose script", t.TempDir(), []string{".sql"})
	view := m.View()
	assert.Contains(t, view, "Choose script")
	assert.Contains(t, view, "q: cancel")
}
