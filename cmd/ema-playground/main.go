package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/koscakluka/ema-playground/core/audio"
	"github.com/koscakluka/ema-playground/core/audio/miniaudio"
	"github.com/koscakluka/ema-playground/core/audio/portaudio"
	"github.com/koscakluka/ema-playground/core/echo"
	"github.com/koscakluka/ema-playground/core/llms"
	"github.com/koscakluka/ema-playground/core/llms/openai"
	"github.com/koscakluka/ema-playground/core/playback"
	"github.com/koscakluka/ema-playground/core/realtime"
	"github.com/koscakluka/ema-playground/core/status"
	"github.com/koscakluka/ema-playground/internal/config"
	"github.com/koscakluka/ema-playground/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, flags, err := config.Load(args, os.LookupEnv, os.Stderr)
	if err != nil {
		return err
	}

	if flags.PrintSchema {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(schema, '\n'))
		return err
	}

	logFile, err := tea.LogToFile(cfg.Logging.File, "ema-playground")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	if cfg.OpenAI.APIKey == "" {
		log.Println("no OpenAI API key configured, chat and realtime requests will be rejected")
	}

	encoding, err := cfg.AudioEncoding()
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(cfg.Audio.Backend, cfg.Audio.BufferSize, encoding)
	if err != nil {
		return err
	}
	defer closeSink()

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	echoClient := echo.NewClient(cfg.Echo.URL,
		echo.WithOnStatus(func(update status.Update) { send(tui.EchoStatusMsg(update)) }),
		echo.WithOnMessage(func(message string) { send(tui.EchoMessageMsg(message)) }),
	)

	sessionOpts := []realtime.SessionOption{
		realtime.WithModel(cfg.Realtime.Model),
		realtime.WithBaseURL(cfg.Realtime.URL),
		realtime.WithICEServers(cfg.Realtime.ICEServers...),
		realtime.WithOnStatus(func(update status.Update) { send(tui.RealtimeStatusMsg(update)) }),
		realtime.WithOnTranscript(func(transcript string) { send(tui.RealtimeTranscriptMsg(transcript)) }),
		realtime.WithOnTranscriptDelta(func(delta string) { send(tui.RealtimeDeltaMsg(delta)) }),
		realtime.WithOnServerError(func(message string) { send(tui.RealtimeServerErrorMsg(message)) }),
	}

	outputFormat := ""
	if sink != nil {
		outputFormat, err = realtime.AudioFormat(encoding)
		if err != nil {
			return err
		}

		sessionOpts = append(sessionOpts, realtime.WithAudioQueue(newPlayer(sink)))
	}
	session := realtime.NewSession(cfg.OpenAI.APIKey, sessionOpts...)

	model := tui.New(tui.Options{
		Prompt:   chatPrompt(cfg),
		Echo:     echoClient,
		Realtime: session,
		RealtimeSession: realtime.SessionOptions{
			Instructions:      cfg.Realtime.Instructions,
			Voice:             cfg.Realtime.Voice,
			OutputAudioFormat: outputFormat,
		},
	}, send)

	program = tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := program.Run()

	closeErr := errors.Join(echoClient.Close(), session.Close())
	if closeErr != nil {
		log.Println("failed to close transports:", closeErr)
	}
	return runErr
}

func chatPrompt(cfg config.Config) tui.PromptFunc {
	return func(ctx context.Context, prompt string, turns []llms.Turn) llms.Stream {
		opts := []llms.StreamingPromptOption{
			llms.WithTurns(turns...),
			llms.WithBaseURL(cfg.OpenAI.BaseURL),
			llms.WithMaxTokens(cfg.OpenAI.MaxTokens),
		}
		if cfg.OpenAI.Temperature != nil {
			opts = append(opts, llms.WithTemperature(*cfg.OpenAI.Temperature))
		}
		return openai.PromptWithStream(ctx, cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, &prompt, cfg.OpenAI.SystemPrompt, opts...)
	}
}

// openSink opens the configured audio output. The "none" backend returns a
// nil sink and realtime audio is dropped.
func openSink(backend string, bufferSize int, encoding audio.EncodingInfo) (playback.Sink, func(), error) {
	switch backend {
	case "miniaudio":
		client, err := miniaudio.NewClient(encoding)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open miniaudio output: %w", err)
		}
		return client, client.Close, nil

	case "portaudio":
		client, err := portaudio.NewClient(bufferSize, encoding)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open portaudio output: %w", err)
		}
		return client, func() {
			if err := client.Close(); err != nil {
				log.Println("failed to close portaudio output:", err)
			}
		}, nil
	}

	return nil, func() {}, nil
}

func newPlayer(sink playback.Sink, opts ...playback.PlayerOption) *playback.Player {
	opts = append([]playback.PlayerOption{
		playback.WithOnItemStarted(func(id uuid.UUID) { logger.Debug("playing audio", "id", id) }),
		playback.WithOnItemFailed(func(id uuid.UUID, err error) { logger.Warn("skipped audio", "id", id, "error", err) }),
	}, opts...)
	return playback.NewPlayer(sink, opts...)
}
