package openai

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/bytedance/sonic"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	chunkPrefix = "data:"
	endMessage  = "[DONE]"
)

var errRecordWithoutChoices = errors.New("record has no choices")

// Decoder turns fragments of a chat completions event stream into content
// chunks. Fragments may split records at any byte, the decoder keeps the
// unterminated tail until the rest of the line arrives.
//
// A Decoder is single use: once the end message is seen or Close is called it
// ignores any further input.
type Decoder struct {
	pending  string
	finished bool
	dropped  int
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode adds the fragment to the decoder and returns the chunks for every
// record completed by it. The fragment is buffered immediately, the records
// are parsed lazily while the sequence is consumed. Records left unconsumed
// when iteration stops early are picked up by the next Decode or Close.
func (d *Decoder) Decode(fragment string) iter.Seq[StreamContentChunk] {
	if !d.finished {
		d.pending += fragment
	}

	return func(yield func(StreamContentChunk) bool) {
		for !d.finished {
			i := strings.IndexByte(d.pending, '\n')
			if i < 0 {
				return
			}

			line := d.pending[:i]
			d.pending = d.pending[i+1:]

			chunk, ok := d.decodeLine(line)
			if !ok {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// Close marks the end of the transport. Buffered records are decoded, a
// record that was not terminated by a newline is decoded as the last one. The
// decoder is finished once the returned sequence has been consumed.
func (d *Decoder) Close() iter.Seq[StreamContentChunk] {
	if !d.finished && !strings.HasSuffix(d.pending, "\n") {
		d.pending += "\n"
	}
	remaining := d.Decode("")

	return func(yield func(StreamContentChunk) bool) {
		defer func() {
			d.finished = true
			d.pending = ""
		}()
		remaining(yield)
	}
}

// Finished reports whether the end message was received or the decoder was
// closed.
func (d *Decoder) Finished() bool {
	return d.finished
}

// Dropped reports how many records were discarded as malformed.
func (d *Decoder) Dropped() int {
	return d.dropped
}

func (d *Decoder) decodeLine(line string) (StreamContentChunk, bool) {
	chunk := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), chunkPrefix))
	if len(chunk) == 0 {
		return StreamContentChunk{}, false
	}

	if chunk == endMessage {
		d.finished = true
		d.pending = ""
		return StreamContentChunk{}, false
	}

	content, err := parseRecord(chunk)
	if err != nil {
		d.dropped++
		logger.Warn("dropping malformed stream record", "error", err, "record", chunk)
		return StreamContentChunk{}, false
	}

	return content, true
}

func parseRecord(record string) (StreamContentChunk, error) {
	var responseBody goopenai.ChatCompletionStreamResponse
	if err := sonic.UnmarshalString(record, &responseBody); err != nil {
		return StreamContentChunk{}, fmt.Errorf("error unmarshalling JSON: %w", err)
	}
	if responseBody.Choices == nil {
		return StreamContentChunk{}, errRecordWithoutChoices
	}

	content := StreamContentChunk{}
	if len(responseBody.Choices) > 0 {
		choice := responseBody.Choices[0]
		content.content = choice.Delta.Content
		if choice.FinishReason != "" {
			finishReason := string(choice.FinishReason)
			content.finishReason = &finishReason
		}
	}

	return content, nil
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}
