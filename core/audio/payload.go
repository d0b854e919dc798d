package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const dataURIPrefix = "data:"

var ErrEmptyPayload = errors.New("empty audio payload")

// DataURI wraps base64 encoded audio in a data URI.
func DataURI(mimeType string, payload string) string {
	return dataURIPrefix + mimeType + ";base64," + payload
}

// DecodePayload returns the raw audio bytes and the mime type carried by a
// payload. The payload is either plain base64 or a base64 data URI, plain
// payloads report an empty mime type.
func DecodePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	mimeType := ""

	if strings.HasPrefix(payload, dataURIPrefix) {
		header, data, ok := strings.Cut(strings.TrimPrefix(payload, dataURIPrefix), ",")
		if !ok {
			return nil, "", fmt.Errorf("invalid data uri: missing data separator")
		}

		var isBase64 bool
		mimeType, isBase64 = strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, "", fmt.Errorf("invalid data uri: only base64 data is supported")
		}
		payload = data
	}

	if payload == "" {
		return nil, mimeType, ErrEmptyPayload
	}

	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, mimeType, fmt.Errorf("failed to decode base64 audio: %w", err)
	}

	if len(audio) == 0 {
		return nil, mimeType, ErrEmptyPayload
	}

	return audio, mimeType, nil
}
