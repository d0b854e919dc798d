package miniaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-playground/core/audio"
	"github.com/koscakluka/ema-playground/core/playback"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackDevice

	encoding audio.EncodingInfo
	nextID   atomic.Uint64
}

// NewClient opens the default output device. Payloads without a WAV header
// are read in the given encoding, the zero value selects the default one.
func NewClient(encoding audio.EncodingInfo) (*Client, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}

	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		encoding:     encoding,
	}

	if err := client.playbackDevice.Init(audioCtx, uint32(client.encoding.SampleRate)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return &client, nil
}

// Load prepares decoded audio for playback on the default output device.
func (c *Client) Load(_ context.Context, payload []byte) (playback.Sound, error) {
	samples, encoding, err := audio.PCM(payload, c.encoding)
	if err != nil {
		return nil, err
	}
	if encoding.SampleRate != c.encoding.SampleRate {
		return nil, fmt.Errorf("unsupported sample rate %d, device plays %d", encoding.SampleRate, c.encoding.SampleRate)
	}
	if len(samples) == 0 {
		return nil, audio.ErrEmptyPayload
	}

	return &sound{
		client:   c,
		id:       c.nextID.Add(1),
		samples:  samples,
		duration: encoding.Duration(len(samples)),
	}, nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

func (c *Client) Close() {
	_ = c.playbackDevice.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}

type sound struct {
	client   *Client
	id       uint64
	samples  []byte
	duration time.Duration

	mu         sync.Mutex
	start, end int
	queued     bool
	done       bool
}

func (s *sound) Play(onFinished func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued {
		return fmt.Errorf("sound already played")
	}

	end, err := s.client.Append(s.samples)
	if err != nil {
		return err
	}
	s.queued = true
	s.start, s.end = end-len(s.samples), end
	logger.Debug("queued sound", "id", s.id, "duration", s.duration)

	s.client.Mark(s.id, end, func() {
		s.mu.Lock()
		s.done = true
		s.mu.Unlock()
		onFinished()
	})
	return nil
}

func (s *sound) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued && !s.done {
		s.client.Drop(s.id, s.start, s.end)
	}
	s.done = true
	s.samples = nil
}
