package realtime

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// handleMessage processes one data channel message. Failures are logged and
// never affect later messages.
func (s *Session) handleMessage(data []byte) {
	var event serverEvent
	if err := sonic.Unmarshal(data, &event); err != nil {
		logger.Warn("dropping malformed realtime event", "error", err, "size", len(data))
		return
	}

	switch event.Type {
	case eventTypeAudioDelta:
		if event.Delta == "" {
			return
		}
		if s.audioQueue == nil {
			logger.Debug("no audio queue, dropping audio delta", "event_id", event.EventID)
			return
		}
		if _, err := s.audioQueue.Enqueue(event.Delta); err != nil {
			logger.Warn("failed to enqueue audio delta", "error", err, "event_id", event.EventID)
		}

	case eventTypeAudioTranscriptDelta, eventTypeTextDelta:
		s.onTranscriptDelta(event.Delta)

	case eventTypeAudioTranscriptDone:
		s.onTranscript(event.Transcript)

	case eventTypeError:
		message := "unknown server error"
		if event.Error != nil {
			message = event.Error.Message
			if event.Error.Code != "" {
				message = fmt.Sprintf("%s (%s)", message, event.Error.Code)
			}
		}
		logger.Warn("realtime server error", "message", message)
		s.onServerError(message)

	case eventTypeSessionCreated, eventTypeSessionUpdated, eventTypeResponseDone:
		logger.Debug("realtime event", "type", event.Type, "event_id", event.EventID)

	case "":
		logger.Warn("dropping realtime event without type")

	default:
		logger.Debug("ignoring realtime event", "type", event.Type)
	}
}
