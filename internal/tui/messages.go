package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-playground/core/status"
)

type (
	chatDeltaMsg struct {
		request int
		text    string
	}
	chatDoneMsg struct {
		request int
		err     error
	}

	echoMessageMsg string
	echoStatusMsg  status.Update

	realtimeStatusMsg      status.Update
	realtimeDeltaMsg       string
	realtimeTranscriptMsg  string
	realtimeServerErrorMsg string

	connectResultMsg struct {
		screen string
		err    error
	}
)

// EchoStatusMsg wraps a websocket status update for Program.Send.
func EchoStatusMsg(update status.Update) tea.Msg { return echoStatusMsg(update) }

// EchoMessageMsg wraps a received websocket frame for Program.Send.
func EchoMessageMsg(message string) tea.Msg { return echoMessageMsg(message) }

func RealtimeStatusMsg(update status.Update) tea.Msg { return realtimeStatusMsg(update) }

func RealtimeDeltaMsg(delta string) tea.Msg { return realtimeDeltaMsg(delta) }

func RealtimeTranscriptMsg(transcript string) tea.Msg { return realtimeTranscriptMsg(transcript) }

func RealtimeServerErrorMsg(message string) tea.Msg { return realtimeServerErrorMsg(message) }
