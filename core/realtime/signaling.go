package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxAnswerSize = 1 << 20

// exchangeSDP posts the local offer to the signaling endpoint and returns the
// remote answer.
func (s *Session) exchangeSDP(ctx context.Context, offer string) (string, error) {
	ctx, span := tracer.Start(ctx, "exchange sdp")
	defer span.End()

	fail := func(err error) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	signalingURL, err := url.Parse(s.baseURL)
	if err != nil {
		return fail(fmt.Errorf("invalid signaling url: %w", err))
	}
	query := signalingURL.Query()
	query.Set("model", s.model)
	signalingURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signalingURL.String(), strings.NewReader(offer))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/sdp")

	span.SetAttributes(
		attribute.String("request.url", signalingURL.String()),
		attribute.String("request.model", s.model),
	)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize))
	if err != nil {
		return fail(fmt.Errorf("error reading answer: %w", err))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		span.SetAttributes(attribute.String("response.error", string(body)))
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	answer := string(body)
	if strings.TrimSpace(answer) == "" {
		return fail(fmt.Errorf("empty sdp answer"))
	}
	return answer, nil
}
