package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type playbackDevice struct {
	device *malgo.Device
	config malgo.DeviceConfig

	mu      sync.Mutex
	pending []byte
	marks   []playbackMark
	// played counts the bytes handed to the device since the last clear,
	// marks are positioned against it.
	played int
}

type playbackMark struct {
	id       uint64
	position int
	callback func()
}

func (d *playbackDevice) Init(audioContext *malgo.AllocatedContext, sampleRate uint32) error {
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	d.config = malgo.DefaultDeviceConfig(malgo.Playback)
	d.config.SampleRate = sampleRate
	d.config.Playback.Format = format
	d.config.Playback.Channels = uint32(channels)
	d.config.Alsa.NoMMap = 1
	d.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	d.config.Periods = 4

	var err error
	if d.device, err = malgo.InitDevice(
		audioContext.Context,
		d.config,
		malgo.DeviceCallbacks{Data: d.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	if err := d.device.Start(); err != nil {
		d.device.Uninit()
		d.device = nil
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

// Append queues samples behind everything already pending and returns the
// position at which they end.
func (d *playbackDevice) Append(samples []byte) (int, error) {
	if d.device == nil {
		return 0, fmt.Errorf("device not initialized")
	} else if !d.device.IsStarted() {
		return 0, fmt.Errorf("device not started")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, samples...)
	return d.played + len(d.pending), nil
}

func (d *playbackDevice) Mark(id uint64, position int, callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marks = append(d.marks, playbackMark{id: id, position: position, callback: callback})
}

// Drop removes the samples and the mark belonging to a sound that is
// released before it finished playing.
func (d *playbackDevice) Drop(id uint64, start, end int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, mark := range d.marks {
		if mark.id == id {
			d.marks = append(d.marks[:i], d.marks[i+1:]...)
			break
		}
	}

	from := max(start-d.played, 0)
	to := min(end-d.played, len(d.pending))
	if from >= to {
		return
	}
	d.pending = append(d.pending[:from], d.pending[to:]...)
	shift := to - from
	for i := range d.marks {
		if d.marks[i].position >= end {
			d.marks[i].position -= shift
		}
	}
}

func (d *playbackDevice) Uninit() error {
	if d.device == nil {
		return fmt.Errorf("device not initialized")
	}

	d.device.Uninit()
	d.device = nil

	d.mu.Lock()
	d.pending = nil
	d.marks = nil
	d.mu.Unlock()

	return nil
}

func (d *playbackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		d.mu.Lock()
		n := copy(pOutput[:need], d.pending)
		clear(pOutput[n:need])
		d.pending = d.pending[n:]
		d.played += n

		passed := 0
		for _, mark := range d.marks {
			if mark.position > d.played {
				break
			}
			passed++
		}
		reached := d.marks[:passed:passed]
		d.marks = d.marks[passed:]
		d.mu.Unlock()

		if len(reached) > 0 {
			go func() {
				for _, mark := range reached {
					mark.callback()
				}
			}()
		}
	}
}
