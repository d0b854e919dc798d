package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-playground/core/echo"
	"github.com/koscakluka/ema-playground/core/llms"
	"github.com/koscakluka/ema-playground/core/realtime"
	"github.com/koscakluka/ema-playground/core/status"
)

type fakeChunk struct {
	content string
}

func (c fakeChunk) FinishReason() *string { return nil }
func (c fakeChunk) Content() string       { return c.content }

type fakeStream struct {
	deltas []string
	err    error
}

func (s fakeStream) Chunks(context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, delta := range s.deltas {
			if !yield(fakeChunk{content: delta}, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func collect(t *testing.T, ch <-chan tea.Msg, model *Model) {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			model.Update(msg)
			if _, done := msg.(chatDoneMsg); done {
				return
			}
		case <-timeout:
			t.Fatalf("expected the chat stream to finish")
		}
	}
}

func submit(model *Model, text string) tea.Cmd {
	switch model.active {
	case 0:
		model.chat.input.SetValue(text)
	case 1:
		model.echo.input.SetValue(text)
	case 2:
		model.realtime.input.SetValue(text)
	}
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestChatStreamsResponse(t *testing.T) {
	msgs := make(chan tea.Msg, 16)
	var prompts []string
	var histories [][]llms.Turn
	model := New(Options{
		Prompt: func(_ context.Context, prompt string, turns []llms.Turn) llms.Stream {
			prompts = append(prompts, prompt)
			histories = append(histories, turns)
			return fakeStream{deltas: []string{"Hi", " there"}}
		},
	}, func(msg tea.Msg) { msgs <- msg })
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	submit(model, "hello")
	collect(t, msgs, model)

	if model.chat.busy {
		t.Fatalf("expected chat to be idle after the stream finished")
	}
	if len(model.chat.turns) != 1 || model.chat.turns[0] != (llms.Turn{Prompt: "hello", Response: "Hi there"}) {
		t.Fatalf("expected one recorded turn, got %+v", model.chat.turns)
	}
	if view := model.View(); !strings.Contains(view, "Hi there") {
		t.Fatalf("expected view to contain the response, got:\n%s", view)
	}

	submit(model, "again")
	collect(t, msgs, model)

	if len(prompts) != 2 || prompts[1] != "again" {
		t.Fatalf("expected second prompt, got %v", prompts)
	}
	if len(histories[1]) != 1 || histories[1][0].Prompt != "hello" {
		t.Fatalf("expected history with the first turn, got %+v", histories[1])
	}
}

func TestChatShowsStreamError(t *testing.T) {
	msgs := make(chan tea.Msg, 16)
	model := New(Options{
		Prompt: func(context.Context, string, []llms.Turn) llms.Stream {
			return fakeStream{deltas: []string{"partial"}, err: errors.New("non-OK HTTP status: 401 Unauthorized")}
		},
	}, func(msg tea.Msg) { msgs <- msg })
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	submit(model, "hello")
	collect(t, msgs, model)

	view := model.View()
	if !strings.Contains(view, "partial") || !strings.Contains(view, "Could not get the stream") {
		t.Fatalf("expected partial response and error, got:\n%s", view)
	}
}

type cancellableStream struct{}

func (cancellableStream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		if !yield(fakeChunk{content: "partial"}, nil) {
			return
		}
		<-ctx.Done()
		yield(nil, errors.New("error reading response body: connection closed"))
	}
}

func TestChatStopShowsNoticeInsteadOfError(t *testing.T) {
	msgs := make(chan tea.Msg, 16)
	model := New(Options{
		Prompt: func(context.Context, string, []llms.Turn) llms.Stream {
			return cancellableStream{}
		},
	}, func(msg tea.Msg) { msgs <- msg })
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	submit(model, "hello")
	select {
	case msg := <-msgs:
		model.Update(msg)
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the first delta")
	}

	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	collect(t, msgs, model)

	view := model.View()
	if strings.Contains(view, "Could not get the stream") {
		t.Fatalf("expected no stream error after stopping, got:\n%s", view)
	}
	if !strings.Contains(view, "Stopped") || !strings.Contains(view, "partial") {
		t.Fatalf("expected stop notice and partial response, got:\n%s", view)
	}
	if model.chat.busy {
		t.Fatalf("expected chat to be idle after stopping")
	}
}

func TestChatIgnoresEmptyInput(t *testing.T) {
	called := false
	model := New(Options{
		Prompt: func(context.Context, string, []llms.Turn) llms.Stream {
			called = true
			return fakeStream{}
		},
	}, func(tea.Msg) {})

	if cmd := submit(model, "   "); cmd != nil || called {
		t.Fatalf("expected blank input to be ignored")
	}
}

type fakeEchoClient struct {
	sent      []string
	connected bool
}

func (c *fakeEchoClient) Connect(context.Context) error { return nil }
func (c *fakeEchoClient) Close() error                  { return nil }
func (c *fakeEchoClient) Send(text string) error {
	if !c.connected {
		return echo.ErrNotConnected
	}
	c.sent = append(c.sent, text)
	return nil
}

func TestEchoScreen(t *testing.T) {
	client := &fakeEchoClient{}
	model := New(Options{Echo: client}, func(tea.Msg) {})
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.Update(tea.KeyMsg{Type: tea.KeyTab})

	submit(model, "too early")
	if view := model.View(); !strings.Contains(view, "WebSocket is not connected") {
		t.Fatalf("expected not connected notice, got:\n%s", view)
	}

	client.connected = true
	model.Update(EchoStatusMsg(status.Update{Status: status.Connected}))
	submit(model, "hello")
	model.Update(EchoMessageMsg("hello"))

	if len(client.sent) != 1 || client.sent[0] != "hello" {
		t.Fatalf("expected one sent message, got %v", client.sent)
	}
	view := model.View()
	for _, expected := range []string{"WebSocket Echo (connected)", "Sent: hello", "Received: hello"} {
		if !strings.Contains(view, expected) {
			t.Fatalf("expected view to contain %q, got:\n%s", expected, view)
		}
	}

	model.Update(EchoStatusMsg(status.Update{Status: status.Closed}))
	if echoStatus, _ := model.Status(); echoStatus != status.Closed {
		t.Fatalf("expected closed websocket status, got %s", echoStatus)
	}
}

type fakeRealtimeSession struct {
	sent    []string
	options []realtime.SessionOptions
}

func (s *fakeRealtimeSession) Connect(context.Context) error { return nil }
func (s *fakeRealtimeSession) Close() error                  { return nil }
func (s *fakeRealtimeSession) SendText(text string) error {
	s.sent = append(s.sent, text)
	return nil
}
func (s *fakeRealtimeSession) UpdateSession(opts realtime.SessionOptions) error {
	s.options = append(s.options, opts)
	return nil
}

func TestRealtimeScreen(t *testing.T) {
	session := &fakeRealtimeSession{}
	model := New(Options{
		Realtime:        session,
		RealtimeSession: realtime.SessionOptions{Voice: "alloy"},
	}, func(tea.Msg) {})
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})

	model.Update(RealtimeStatusMsg(status.Update{Status: status.Connected}))
	if len(session.options) != 1 || session.options[0].Voice != "alloy" {
		t.Fatalf("expected session to be configured on connect, got %+v", session.options)
	}

	submit(model, "tell me a joke")
	model.Update(RealtimeDeltaMsg("Why did "))
	if view := model.View(); !strings.Contains(view, "Why did") {
		t.Fatalf("expected partial transcript in view, got:\n%s", view)
	}
	model.Update(RealtimeTranscriptMsg("Why did the gopher cross the road?"))
	model.Update(RealtimeServerErrorMsg("rate limited"))

	if len(session.sent) != 1 || session.sent[0] != "tell me a joke" {
		t.Fatalf("expected one sent message, got %v", session.sent)
	}
	view := model.View()
	for _, expected := range []string{"GPT Conversation (connected)", "Why did the gopher cross the road?", "rate limited"} {
		if !strings.Contains(view, expected) {
			t.Fatalf("expected view to contain %q, got:\n%s", expected, view)
		}
	}
}

func TestTabSwitching(t *testing.T) {
	model := New(Options{}, func(tea.Msg) {})

	for _, expected := range []int{1, 2, 0} {
		model.Update(tea.KeyMsg{Type: tea.KeyTab})
		if model.active != expected {
			t.Fatalf("expected tab %d, got %d", expected, model.active)
		}
	}
	model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.active != 2 {
		t.Fatalf("expected tab 2, got %d", model.active)
	}
}
