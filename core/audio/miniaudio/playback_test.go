package miniaudio

import (
	"bytes"
	"testing"
	"time"
)

func TestProcessAudioFiresMarkAfterSamplesPlayed(t *testing.T) {
	device := &playbackDevice{pending: []byte{1, 2, 3, 4, 5, 6}}
	fired := make(chan struct{}, 1)
	device.Mark(1, 6, func() { fired <- struct{}{} })

	process := device.processAudio(2)

	out := make([]byte, 4)
	process(out, nil, 2)
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Fatalf("expected first period [1 2 3 4], got %v", out)
	}
	select {
	case <-fired:
		t.Fatalf("expected mark not to fire before its samples are played")
	case <-time.After(10 * time.Millisecond):
	}

	process(out, nil, 2)
	if !bytes.Equal(out, []byte{5, 6, 0, 0}) {
		t.Fatalf("expected silence padded period [5 6 0 0], got %v", out)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected mark to fire once its samples are played")
	}
}

func TestDropRemovesUnplayedSound(t *testing.T) {
	device := &playbackDevice{pending: []byte{1, 2, 3, 4, 5, 6}}
	device.Mark(1, 2, func() {})
	device.Mark(2, 4, func() {})
	device.Mark(3, 6, func() {})

	device.Drop(2, 2, 4)

	if !bytes.Equal(device.pending, []byte{1, 2, 5, 6}) {
		t.Fatalf("expected dropped samples to be removed, got %v", device.pending)
	}
	if len(device.marks) != 2 {
		t.Fatalf("expected two marks left, got %d", len(device.marks))
	}
	if got := device.marks[1].position; got != 4 {
		t.Fatalf("expected later mark to shift to 4, got %d", got)
	}
}
