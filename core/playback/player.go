package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-playground/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrClosed = errors.New("player closed")

type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type queueItem struct {
	id       uuid.UUID
	payload  string
	queuedAt time.Time
}

// Player plays queued audio payloads one at a time in the order they were
// enqueued.
type Player struct {
	sink Sink

	mu      sync.Mutex
	queue   []queueItem
	active  bool
	state   State
	current Sound

	baseCtx context.Context
	cancel  context.CancelFunc

	onItemStarted  func(uuid.UUID)
	onItemFinished func(uuid.UUID)
	onItemFailed   func(uuid.UUID, error)
}

func NewPlayer(sink Sink, opts ...PlayerOption) *Player {
	p := &Player{
		sink:    sink,
		baseCtx: context.Background(),

		onItemStarted:  func(uuid.UUID) {},
		onItemFinished: func(uuid.UUID) {},
		onItemFailed:   func(uuid.UUID, error) {},
	}

	for _, opt := range opts {
		opt(p)
	}
	p.baseCtx, p.cancel = context.WithCancel(p.baseCtx)

	return p
}

// Enqueue appends a base64 or data URI encoded payload to the queue and
// starts playback if nothing is playing.
func (p *Player) Enqueue(payload string) (uuid.UUID, error) {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return uuid.Nil, ErrClosed
	}

	item := queueItem{id: uuid.New(), payload: payload, queuedAt: time.Now()}
	p.queue = append(p.queue, item)

	startChain := !p.active
	p.active = true
	p.mu.Unlock()

	if startChain {
		go p.playNext()
	}
	return item.id, nil
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Len returns the number of payloads waiting to be played.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops playback, releases the loaded sound and drops everything still
// queued. The player cannot be reused.
func (p *Player) Close() {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}

	p.state = StateClosed
	dropped := len(p.queue)
	p.queue = nil
	current := p.current
	p.current = nil
	p.mu.Unlock()

	p.cancel()
	if current != nil {
		current.Release()
	}
	logger.Debug("player closed", "dropped_items", dropped)
}

func (p *Player) playNext() {
	for {
		p.mu.Lock()
		if p.state == StateClosed {
			p.active = false
			p.mu.Unlock()
			return
		}
		if len(p.queue) == 0 {
			p.active = false
			p.state = StateIdle
			p.mu.Unlock()
			return
		}

		item := p.queue[0]
		p.queue = p.queue[1:]
		previous := p.current
		p.current = nil
		p.state = StateLoading
		p.mu.Unlock()

		if previous != nil {
			previous.Release()
		}

		if err := p.play(item); err != nil {
			if errors.Is(err, ErrClosed) {
				continue
			}
			logger.Error("failed to play audio item", "id", item.id, "error", err)
			p.onItemFailed(item.id, err)
			continue
		}
		return
	}
}

func (p *Player) play(item queueItem) error {
	ctx, span := tracer.Start(p.baseCtx, "play audio item")
	span.SetAttributes(attribute.String("audio_item.id", item.id.String()))
	span.AddEvent("taken out of queue", trace.WithAttributes(
		attribute.Float64("audio_item.queued_time", time.Since(item.queuedAt).Seconds()),
	))

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return err
	}

	decoded, _, err := audio.DecodePayload(item.payload)
	if err != nil {
		return fail(fmt.Errorf("failed to decode payload: %w", err))
	}
	span.SetAttributes(attribute.Int("audio_item.size", len(decoded)))

	sound, err := p.sink.Load(ctx, decoded)
	if err != nil {
		return fail(fmt.Errorf("failed to load audio: %w", err))
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		sound.Release()
		span.End()
		return ErrClosed
	}
	p.current = sound
	p.state = StatePlaying
	p.mu.Unlock()

	p.onItemStarted(item.id)
	if err := sound.Play(func() { p.finished(item, sound, span) }); err != nil {
		p.mu.Lock()
		if p.current == sound {
			p.current = nil
		}
		p.mu.Unlock()
		sound.Release()
		return fail(fmt.Errorf("failed to start playback: %w", err))
	}

	return nil
}

func (p *Player) finished(item queueItem, sound Sound, span trace.Span) {
	p.mu.Lock()
	if p.current != sound {
		// Released by Close while playing
		p.mu.Unlock()
		span.End()
		return
	}
	p.current = nil
	p.mu.Unlock()

	sound.Release()
	span.End()
	p.onItemFinished(item.id)

	p.playNext()
}
