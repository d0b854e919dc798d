package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-playground/core/audio"
	"github.com/koscakluka/ema-playground/core/playback"
)

type Client struct {
	bufferSize int
	encoding   audio.EncodingInfo
	stream     *portaudio.Stream

	// writeMu serializes access to out and the blocking stream writes
	writeMu sync.Mutex
	out     []int16
}

// NewClient opens the default output stream. Payloads without a WAV header
// are read in the given encoding, the zero value selects the default one.
func NewClient(bufferSize int, encoding audio.EncodingInfo) (*Client, error) {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(encoding.SampleRate), bufferSize, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		encoding:   encoding,
		stream:     stream,
		out:        out,
	}, nil
}

// Load prepares decoded audio for playback on the default output stream.
func (c *Client) Load(_ context.Context, payload []byte) (playback.Sound, error) {
	samples, encoding, err := audio.PCM(payload, c.EncodingInfo())
	if err != nil {
		return nil, err
	}
	if encoding.SampleRate != c.encoding.SampleRate {
		return nil, fmt.Errorf("unsupported sample rate %d, stream plays %d", encoding.SampleRate, c.encoding.SampleRate)
	}
	if len(samples) == 0 {
		return nil, audio.ErrEmptyPayload
	}

	return &sound{client: c, samples: samples}, nil
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.stream.Close()
	if terminateErr := portaudio.Terminate(); terminateErr != nil {
		err = fmt.Errorf("failed to terminate PortAudio: %w", terminateErr)
	}
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

// writeBuffer writes one buffer worth of samples, padding the tail with
// silence.
func (c *Client) writeBuffer(samples []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	clear(c.out)
	if err := binary.Read(bytes.NewReader(samples), binary.LittleEndian, c.out[:len(samples)/2]); err != nil {
		return fmt.Errorf("failed to convert samples: %w", err)
	}
	return c.stream.Write()
}

type sound struct {
	client   *Client
	samples  []byte
	released atomic.Bool
	started  atomic.Bool
}

func (s *sound) Play(onFinished func()) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("sound already played")
	}

	chunkSize := s.client.bufferSize * 2
	go func() {
		for start := 0; start < len(s.samples); start += chunkSize {
			if s.released.Load() {
				return
			}

			end := min(start+chunkSize, len(s.samples))
			if err := s.client.writeBuffer(s.samples[start:end]); err != nil {
				logger.Warn("failed to write audio buffer", "error", err)
			}
		}

		if !s.released.Load() {
			onFinished()
		}
	}()
	return nil
}

func (s *sound) Release() {
	s.released.Store(true)
}
