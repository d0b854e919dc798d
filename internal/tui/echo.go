package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-playground/core/echo"
	"github.com/koscakluka/ema-playground/core/status"
)

type EchoClient interface {
	Connect(ctx context.Context) error
	Send(text string) error
	Close() error
}

type echoScreen struct {
	pane

	client EchoClient
	status status.Status
}

func newEchoScreen(client EchoClient) *echoScreen {
	return &echoScreen{
		pane:   newPane("Type a message..."),
		client: client,
		status: status.Initializing,
	}
}

func (s *echoScreen) header() string {
	if s.status == status.Connected {
		return "WebSocket Echo (connected)"
	}
	return "WebSocket Echo (not connected)"
}

func (s *echoScreen) connect() tea.Cmd {
	if s.client == nil {
		return nil
	}
	s.busy = true
	s.refresh()

	client := s.client
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		return connectResultMsg{screen: screenEcho, err: client.Connect(context.Background())}
	})
}

func (s *echoScreen) submit() tea.Cmd {
	text := s.takeInput()
	if text == "" || s.client == nil {
		return nil
	}

	if err := s.client.Send(text); err != nil {
		if errors.Is(err, echo.ErrNotConnected) {
			s.add(lineNotice, "WebSocket is not connected")
		} else {
			s.add(lineError, err.Error())
		}
		return nil
	}
	s.add(lineUser, "Sent: "+text)
	return nil
}

func (s *echoScreen) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case echoStatusMsg:
		s.status = msg.Status
		switch msg.Status {
		case status.Connected:
			s.add(lineNotice, "WebSocket connection established")
		case status.Error:
			s.add(lineError, "WebSocket error occurred: "+msg.Message)
		case status.Closed:
			s.add(lineNotice, "WebSocket connection closed")
		}

	case echoMessageMsg:
		s.add(lineBot, "Received: "+string(msg))

	case connectResultMsg:
		s.busy = false
		s.refresh()
		if msg.err != nil {
			logger.Warn("websocket connection failed", "error", msg.err)
		}

	case spinner.TickMsg:
		return s.tick(msg)
	}
	return nil
}
