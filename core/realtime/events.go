package realtime

import (
	"fmt"

	"github.com/koscakluka/ema-playground/core/audio"
)

const (
	eventTypeSessionCreated       = "session.created"
	eventTypeSessionUpdated       = "session.updated"
	eventTypeAudioDelta           = "response.audio.delta"
	eventTypeAudioTranscriptDelta = "response.audio_transcript.delta"
	eventTypeAudioTranscriptDone  = "response.audio_transcript.done"
	eventTypeTextDelta            = "response.text.delta"
	eventTypeResponseDone         = "response.done"
	eventTypeError                = "error"

	eventTypeConversationItemCreate = "conversation.item.create"
	eventTypeResponseCreate         = "response.create"
	eventTypeSessionUpdate          = "session.update"
)

// serverEvent carries the fields of every server event this package reacts
// to, the type decides which of them are set.
type serverEvent struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	ResponseID string       `json:"response_id,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      *serverError `json:"error,omitempty"`
}

type serverError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type clientEvent struct {
	EventID  string            `json:"event_id,omitempty"`
	Type     string            `json:"type"`
	Item     *conversationItem `json:"item,omitempty"`
	Session  *sessionConfig    `json:"session,omitempty"`
	Response *responseConfig   `json:"response,omitempty"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseConfig struct {
	Modalities []string `json:"modalities,omitempty"`
}

type sessionConfig struct {
	Instructions      string   `json:"instructions,omitempty"`
	Voice             string   `json:"voice,omitempty"`
	Modalities        []string `json:"modalities,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	OutputAudioFormat string   `json:"output_audio_format,omitempty"`
}

// SessionOptions are the session settings that can be changed after the
// session is connected.
type SessionOptions struct {
	Instructions      string
	Voice             string
	Modalities        []string
	Temperature       *float64
	OutputAudioFormat string
}

// AudioFormat returns the output_audio_format value producing audio in the
// given encoding.
func AudioFormat(encoding audio.EncodingInfo) (string, error) {
	switch encoding.Format {
	case audio.EncodingLinear16:
		if encoding.SampleRate != audio.DefaultSampleRate {
			return "", fmt.Errorf("pcm16 output is only available at %d Hz", audio.DefaultSampleRate)
		}
		return "pcm16", nil
	case audio.EncodingMulaw:
		return "g711_ulaw", nil
	case audio.EncodingALaw:
		return "g711_alaw", nil
	}
	return "", fmt.Errorf("unsupported output encoding %q", encoding.Format)
}
