package playback

import (
	"context"

	"github.com/google/uuid"
)

type PlayerOption func(*Player)

// Sink loads decoded audio into something that can be played once.
type Sink interface {
	Load(ctx context.Context, audio []byte) (Sound, error)
}

// Sound is a loaded audio resource. Play must call onFinished exactly once
// when the audio has played to the end, unless the sound is released first.
type Sound interface {
	Play(onFinished func()) error
	Release()
}

func WithOnItemStarted(callback func(id uuid.UUID)) PlayerOption {
	return func(p *Player) {
		if callback != nil {
			p.onItemStarted = callback
		}
	}
}

func WithOnItemFinished(callback func(id uuid.UUID)) PlayerOption {
	return func(p *Player) {
		if callback != nil {
			p.onItemFinished = callback
		}
	}
}

func WithOnItemFailed(callback func(id uuid.UUID, err error)) PlayerOption {
	return func(p *Player) {
		if callback != nil {
			p.onItemFailed = callback
		}
	}
}

func WithContext(ctx context.Context) PlayerOption {
	return func(p *Player) {
		if ctx != nil {
			p.baseCtx = ctx
		}
	}
}
