package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/koscakluka/ema-playground/core/llms"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	completionPath = "/chat/completions"

	readBufferSize = 4096
)

func PromptWithStream(
	_ context.Context,
	apiKey string,
	model string,
	prompt *string,
	systemPrompt string,
	opts ...llms.StreamingPromptOption,
) *Stream {
	options := llms.StreamingPromptOptions{
		BaseOptions: llms.BaseOptions{Instructions: systemPrompt},
	}
	for _, opt := range opts {
		opt.ApplyToStreaming(&options)
	}

	messages := toOpenAIMessages(options.Instructions, options.Turns)
	if prompt != nil {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: *prompt,
		})
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)}
	}

	var temperature float32
	if options.Temperature != nil {
		temperature = *options.Temperature
		if temperature == 0 {
			// A zero temperature is omitted from the request body
			temperature = math.SmallestNonzeroFloat32
		}
	}

	return &Stream{
		apiKey:      apiKey,
		url:         strings.TrimSuffix(baseURL, "/") + completionPath,
		client:      client,
		model:       model,
		messages:    messages,
		maxTokens:   options.MaxTokens,
		temperature: temperature,
	}
}

// Stream is a single streamed chat completion request. The request is only
// sent once Chunks is iterated.
type Stream struct {
	apiKey string
	url    string
	client *http.Client

	model       string
	messages    []goopenai.ChatCompletionMessage
	maxTokens   int
	temperature float32
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.model))

		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield(nil, err)
		}

		reqBody := goopenai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    s.messages,
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature,
			Stream:      true,
		}

		requestBodyBytes, err := sonic.Marshal(reqBody)
		if err != nil {
			fail(fmt.Errorf("error marshalling JSON: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			fail(fmt.Errorf("error creating HTTP request: %w", err))
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		span.SetAttributes(attribute.String("request.url", req.URL.String()))
		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")
		resp, err := s.client.Do(req)
		if err != nil {
			fail(fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, err := io.ReadAll(resp.Body); err != nil {
				span.SetAttributes(attribute.String("error", fmt.Errorf("error reading error body: %w", err).Error()))
			} else {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}

			fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
			return
		}

		decoder := NewDecoder()
		defer func() {
			span.SetAttributes(attribute.Int("response.dropped_records", decoder.Dropped()))
		}()

		buf := make([]byte, readBufferSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				setRequestToFirstTokenTime(span)
				for chunk := range decoder.Decode(string(buf[:n])) {
					if !yield(chunk, nil) {
						return
					}
				}
				if decoder.Finished() {
					span.AddEvent("received end message")
					return
				}
			}

			if errors.Is(readErr, io.EOF) {
				for chunk := range decoder.Close() {
					if !yield(chunk, nil) {
						return
					}
				}
				return
			} else if readErr != nil {
				fail(fmt.Errorf("error reading streamed response: %w", readErr))
				return
			}
		}
	}
}
