package tts

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Player turns an MP3 stream into audible output, honoring the stop flag
// between sample chunks.
type Player interface {
	Play(ctx context.Context, src io.ReadCloser, stop *atomic.Bool) error
}

type beepPlayer struct {
	mu       sync.Mutex
	initRate beep.SampleRate
}

func newBeepPlayer() *beepPlayer {
	return &beepPlayer{}
}

func (p *beepPlayer) Play(ctx context.Context, src io.ReadCloser, stop *atomic.Bool) error {
	streamer, format, err := mp3.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode mp3: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	if p.initRate != format.SampleRate {
		if err = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to init speaker: %w", err)
		}
		p.initRate = format.SampleRate
	}
	p.mu.Unlock()

	done := make(chan struct{})

	speaker.Play(beep.Seq(
		&stoppableStreamer{inner: streamer, stop: stop},
		beep.Callback(func() {
			close(done)
		}),
	))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// stoppableStreamer ends playback between chunks once the stop flag is set.
type stoppableStreamer struct {
	inner beep.Streamer
	stop  *atomic.Bool
}

func (s *stoppableStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.stop.Load() {
		return 0, false
	}

	return s.inner.Stream(samples)
}

func (s *stoppableStreamer) Err() error {
	return s.inner.Err()
}
