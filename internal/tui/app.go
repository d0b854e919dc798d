// Package tui is the terminal front end of the playground: one tab per
// transport.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-playground/core/realtime"
	"github.com/koscakluka/ema-playground/core/status"
)

const (
	screenChat     = "chat"
	screenEcho     = "echo"
	screenRealtime = "realtime"
)

type screen interface {
	header() string
	submit() tea.Cmd
	handle(tea.Msg) tea.Cmd
	update(tea.Msg) tea.Cmd
	resize(width, height int)
	view(header string) string
}

type Options struct {
	Prompt          PromptFunc
	Echo            EchoClient
	Realtime        RealtimeSession
	RealtimeSession realtime.SessionOptions
}

type Model struct {
	chat     *chatScreen
	echo     *echoScreen
	realtime *realtimeScreen

	tabs   []string
	active int
}

// New creates the model. Transports report back through send, which is
// usually Program.Send and has to be safe to call from any goroutine.
func New(opts Options, send func(tea.Msg)) *Model {
	return &Model{
		chat:     newChatScreen(opts.Prompt, send),
		echo:     newEchoScreen(opts.Echo),
		realtime: newRealtimeScreen(opts.Realtime, opts.RealtimeSession),
		tabs:     []string{"Chat", "WebSocket", "Realtime"},
	}
}

func (m *Model) screens() []screen {
	return []screen{m.chat, m.echo, m.realtime}
}

func (m *Model) current() screen {
	return m.screens()[m.active]
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.echo.connect(), m.realtime.connect())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.chat.stop()
			return m, tea.Quit
		case tea.KeyTab:
			m.active = (m.active + 1) % len(m.tabs)
			return m, nil
		case tea.KeyShiftTab:
			m.active = (m.active + len(m.tabs) - 1) % len(m.tabs)
			return m, nil
		case tea.KeyEnter:
			return m, m.current().submit()
		case tea.KeyEsc:
			if m.active == 0 {
				m.chat.stop()
			}
			return m, nil
		case tea.KeyCtrlR:
			return m, m.reconnect()
		}
		return m, m.current().update(msg)

	case tea.WindowSizeMsg:
		for _, s := range m.screens() {
			s.resize(msg.Width, msg.Height)
		}
		return m, nil

	case chatDeltaMsg, chatDoneMsg:
		return m, m.chat.handle(msg)

	case echoStatusMsg, echoMessageMsg:
		return m, m.echo.handle(msg)

	case realtimeStatusMsg, realtimeDeltaMsg, realtimeTranscriptMsg, realtimeServerErrorMsg:
		return m, m.realtime.handle(msg)

	case connectResultMsg:
		if msg.screen == screenEcho {
			return m, m.echo.handle(msg)
		}
		return m, m.realtime.handle(msg)

	case spinner.TickMsg:
		cmds := make([]tea.Cmd, 0, len(m.tabs))
		for _, s := range m.screens() {
			cmds = append(cmds, s.handle(msg))
		}
		return m, tea.Batch(cmds...)
	}

	return m, m.current().update(msg)
}

// reconnect restarts a transport that ended in an error or was closed.
func (m *Model) reconnect() tea.Cmd {
	switch m.active {
	case 1:
		if m.echo.status.Terminal() {
			return m.echo.connect()
		}
	case 2:
		if m.realtime.status.Terminal() {
			return m.realtime.connect()
		}
	}
	return nil
}

func (m *Model) View() string {
	tabs := make([]string, 0, len(m.tabs))
	for i, name := range m.tabs {
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}

	current := m.current()
	help := noticeStyle.Render(strings.Join([]string{"tab: switch", "enter: send", "ctrl+r: reconnect", "ctrl+c: quit"}, " • "))
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		current.view(current.header()),
		help,
	)
}

// Status returns the connection status of the websocket and realtime
// screens.
func (m *Model) Status() (echoStatus, realtimeStatus status.Status) {
	return m.echo.status, m.realtime.status
}
