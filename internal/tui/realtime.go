package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-playground/core/realtime"
	"github.com/koscakluka/ema-playground/core/status"
)

type RealtimeSession interface {
	Connect(ctx context.Context) error
	SendText(text string) error
	UpdateSession(opts realtime.SessionOptions) error
	Close() error
}

type realtimeScreen struct {
	pane

	session        RealtimeSession
	sessionOptions realtime.SessionOptions
	status         status.Status
	transcript     string
}

func newRealtimeScreen(session RealtimeSession, opts realtime.SessionOptions) *realtimeScreen {
	return &realtimeScreen{
		pane:           newPane("Say something to the assistant..."),
		session:        session,
		sessionOptions: opts,
		status:         status.Initializing,
	}
}

func (s *realtimeScreen) header() string {
	return "GPT Conversation (" + s.status.String() + ")"
}

func (s *realtimeScreen) connect() tea.Cmd {
	if s.session == nil {
		return nil
	}
	s.busy = true
	s.refresh()

	session := s.session
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		return connectResultMsg{screen: screenRealtime, err: session.Connect(context.Background())}
	})
}

func (s *realtimeScreen) submit() tea.Cmd {
	text := s.takeInput()
	if text == "" || s.session == nil {
		return nil
	}

	if err := s.session.SendText(text); err != nil {
		if errors.Is(err, realtime.ErrNotConnected) {
			s.add(lineNotice, "Realtime session is not connected")
		} else {
			s.add(lineError, err.Error())
		}
		return nil
	}
	s.add(lineUser, text)
	return nil
}

func (s *realtimeScreen) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case realtimeStatusMsg:
		s.status = msg.Status
		switch msg.Status {
		case status.Connected:
			s.busy = false
			s.add(lineNotice, "Connected, audio replies will play as they arrive")
			if err := s.session.UpdateSession(s.sessionOptions); err != nil {
				s.add(lineError, "Failed to configure session: "+err.Error())
			}
		case status.Error:
			s.busy = false
			s.add(lineError, "Connection error: "+msg.Message)
		case status.Closed:
			s.busy = false
			s.add(lineNotice, "Connection closed")
		}

	case realtimeDeltaMsg:
		s.transcript += string(msg)
		s.setPending(s.transcript)

	case realtimeTranscriptMsg:
		s.transcript = ""
		s.pending = ""
		s.add(lineBot, string(msg))

	case realtimeServerErrorMsg:
		s.add(lineError, string(msg))

	case connectResultMsg:
		if msg.err != nil {
			s.busy = false
			s.refresh()
			logger.Warn("realtime connection failed", "error", msg.err)
		}

	case spinner.TickMsg:
		return s.tick(msg)
	}
	return nil
}
