package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-playground/core/llms"
)

// PromptFunc starts a streamed completion of prompt after the given history.
type PromptFunc func(ctx context.Context, prompt string, turns []llms.Turn) llms.Stream

type chatScreen struct {
	pane

	prompt PromptFunc
	send   func(tea.Msg)

	turns   []llms.Turn
	current llms.Turn
	request int
	cancel  context.CancelFunc
}

func newChatScreen(prompt PromptFunc, send func(tea.Msg)) *chatScreen {
	return &chatScreen{
		pane:   newPane("Type a message..."),
		prompt: prompt,
		send:   send,
	}
}

func (s *chatScreen) header() string {
	return "GPT Completion"
}

func (s *chatScreen) submit() tea.Cmd {
	if s.busy || s.prompt == nil {
		return nil
	}
	text := s.takeInput()
	if text == "" {
		return nil
	}

	s.add(lineUser, text)
	s.request++
	s.current = llms.Turn{Prompt: text}
	s.busy = true
	s.setPending("")

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.stream(ctx, s.request, text, append([]llms.Turn(nil), s.turns...))

	return s.spinner.Tick
}

// stream runs outside the update loop and reports back through send.
func (s *chatScreen) stream(ctx context.Context, request int, prompt string, turns []llms.Turn) {
	ctx, span := tracer.Start(ctx, "chat screen prompt")
	defer span.End()

	for chunk, err := range s.prompt(ctx, prompt, turns).Chunks(ctx) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			span.RecordError(err)
			s.send(chatDoneMsg{request: request, err: err})
			return
		}
		if content, ok := chunk.(llms.StreamContentChunk); ok && content.Content() != "" {
			s.send(chatDeltaMsg{request: request, text: content.Content()})
		}
	}
	s.send(chatDoneMsg{request: request})
}

func (s *chatScreen) stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *chatScreen) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case chatDeltaMsg:
		if msg.request != s.request {
			return nil
		}
		s.current.Response += msg.text
		s.setPending(s.current.Response)

	case chatDoneMsg:
		if msg.request != s.request {
			return nil
		}
		s.busy = false
		s.stop()
		s.pending = ""
		if s.current.Response != "" {
			s.add(lineBot, s.current.Response)
		}
		if errors.Is(msg.err, context.Canceled) {
			s.add(lineNotice, "Stopped")
		} else if msg.err != nil {
			logger.Warn("chat stream failed", "error", msg.err)
			s.add(lineError, "Could not get the stream: "+msg.err.Error())
		} else if s.current.Response == "" {
			s.add(lineNotice, "Empty response")
		}
		s.turns = append(s.turns, s.current)
		s.current = llms.Turn{}

	case spinner.TickMsg:
		return s.tick(msg)
	}
	return nil
}
