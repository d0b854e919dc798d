package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type lineKind int

const (
	lineUser lineKind = iota
	lineBot
	lineNotice
	lineError
)

type line struct {
	kind lineKind
	text string
}

// pane is the layout every screen shares: a header, a scrolling transcript
// and a single line input.
type pane struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines   []line
	pending string
	busy    bool
	width   int
}

func newPane(placeholder string) pane {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return pane{
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  s,
		width:    80,
	}
}

func (p *pane) resize(width, height int) {
	const chrome = 7 // tabs, header, input border and padding

	p.width = max(width-2, 10)
	p.viewport.Width = p.width
	p.viewport.Height = max(height-chrome, 3)
	p.input.Width = max(width-6, 10)
	p.refresh()
}

func (p *pane) add(kind lineKind, text string) {
	p.lines = append(p.lines, line{kind: kind, text: text})
	p.refresh()
}

// setPending replaces the text that is still being streamed in. It is shown
// below the finished lines.
func (p *pane) setPending(text string) {
	p.pending = text
	p.refresh()
}

func (p *pane) refresh() {
	rendered := make([]string, 0, len(p.lines)+1)
	for _, l := range p.lines {
		rendered = append(rendered, renderLine(l, p.width))
	}
	if p.pending != "" {
		rendered = append(rendered, renderLine(line{kind: lineBot, text: p.pending}, p.width))
	}
	if p.busy {
		rendered = append(rendered, p.spinner.View())
	}

	p.viewport.SetContent(strings.Join(rendered, "\n"))
	p.viewport.GotoBottom()
}

func (p *pane) update(msg tea.Msg) tea.Cmd {
	var inputCmd, viewportCmd tea.Cmd
	p.input, inputCmd = p.input.Update(msg)
	p.viewport, viewportCmd = p.viewport.Update(msg)
	return tea.Batch(inputCmd, viewportCmd)
}

func (p *pane) tick(msg spinner.TickMsg) tea.Cmd {
	if !p.busy {
		return nil
	}
	var cmd tea.Cmd
	p.spinner, cmd = p.spinner.Update(msg)
	p.refresh()
	return cmd
}

// takeInput returns the trimmed input and clears it.
func (p *pane) takeInput() string {
	text := strings.TrimSpace(p.input.Value())
	p.input.Reset()
	return text
}

func (p *pane) view(header string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(p.width).Render(header),
		p.viewport.View(),
		inputStyle.Render(p.input.View()),
	)
}

func renderLine(l line, width int) string {
	text := wordwrap.String(l.text, max(width-2, 1))
	switch l.kind {
	case lineUser:
		return userStyle.Render(text)
	case lineNotice:
		return noticeStyle.Render(text)
	case lineError:
		return errorStyle.Render(text)
	}
	return botStyle.Render(text)
}
