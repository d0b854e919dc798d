package llms

import "context"

type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

// StreamContentChunk is a single delta of generated text. Deltas are emitted
// in the order the server produced them and are meant to be concatenated.
type StreamContentChunk interface {
	StreamChunk
	Content() string
}

// CollectContent drains the stream and returns the concatenated content of
// all content chunks. The first error stops the collection.
func CollectContent(ctx context.Context, stream Stream) (string, error) {
	content := ""
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			return content, err
		}
		if contentChunk, ok := chunk.(StreamContentChunk); ok {
			content += contentChunk.Content()
		}
	}
	return content, nil
}
