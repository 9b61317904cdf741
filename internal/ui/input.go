package ui

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is a labelled single-line text input.
type field struct {
	label string
	input textinput.Model
}

func newField(label string) field {
	in := textinput.New()
	in.Prompt = ""
	in.Cursor.SetMode(cursor.CursorStatic)
	return field{label: label, input: in}
}

func newPasswordField(label string) field {
	f := newField(label)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '*'
	return f
}

func (f *field) Value() string { return f.input.Value() }

func (f *field) SetValue(s string) {
	f.input.SetValue(s)
	f.input.CursorEnd()
}

func (f *field) Reset() { f.input.Reset() }

// handleKey edits the value. Keys only ever reach the focused field. It reports
// whether the value changed.
func (f *field) handleKey(msg tea.KeyMsg) bool {
	before := f.input.Value()
	f.input.Focus()
	f.input, _ = f.input.Update(msg)
	return f.input.Value() != before
}

func (f field) render(focused bool) string {
	in := f.input
	if focused {
		in.Focus()
		return labelStyle.Render(f.label) + " " + focusStyle.Render(in.View())
	}
	in.Blur()
	return labelStyle.Render(f.label) + " " + in.View()
}
