package realtime

import (
	"net/http"

	"github.com/koscakluka/ema-playground/core/status"
	"github.com/pion/webrtc/v4"
)

type SessionOption func(*Session)

func WithModel(model string) SessionOption {
	return func(s *Session) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL overrides the signaling endpoint the SDP offer is posted to.
func WithBaseURL(baseURL string) SessionOption {
	return func(s *Session) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func WithICEServers(urls ...string) SessionOption {
	return func(s *Session) {
		if len(urls) > 0 {
			s.webrtcConfig.ICEServers = append(s.webrtcConfig.ICEServers, webrtc.ICEServer{URLs: urls})
		}
	}
}

// WithAudioQueue sets where audio deltas are sent. The queue is closed
// together with the session.
func WithAudioQueue(queue AudioQueue) SessionOption {
	return func(s *Session) {
		s.audioQueue = queue
	}
}

func WithOnStatus(callback func(status.Update)) SessionOption {
	return func(s *Session) {
		if callback != nil {
			s.onStatus = callback
		}
	}
}

func WithOnTranscript(callback func(transcript string)) SessionOption {
	return func(s *Session) {
		if callback != nil {
			s.onTranscript = callback
		}
	}
}

func WithOnTranscriptDelta(callback func(delta string)) SessionOption {
	return func(s *Session) {
		if callback != nil {
			s.onTranscriptDelta = callback
		}
	}
}

// WithOnServerError sets the callback for error events sent by the server.
// These do not end the session.
func WithOnServerError(callback func(message string)) SessionOption {
	return func(s *Session) {
		if callback != nil {
			s.onServerError = callback
		}
	}
}
