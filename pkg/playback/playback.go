// Package playback renders PCM audio through the system's output device.
// The speaker is queue backed: chunks append to an internal feed that the
// device drains continuously, so consecutive chunks play without gaps.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
)

// Speaker plays PCM chunks through the default output device.
type Speaker struct {
	cfg    audio.Config
	logger *slog.Logger
	otoCtx *oto.Context
	feed   *pcmFeed

	mu     sync.Mutex
	player *oto.Player
	closed bool
}

// New opens the output device in the given format. A zero config means the
// standard playback format, 24 kHz mono s16le.
func New(cfg audio.Config, logger *slog.Logger) (*Speaker, error) {
	if cfg.SampleRate == 0 {
		cfg = audio.PlaybackConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	// ~100ms device buffer: low latency without glitching.
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, core.NewEnvironmentError("audio playback unavailable: " + err.Error())
	}
	<-ready

	return &Speaker{
		cfg:    cfg,
		logger: logger,
		otoCtx: otoCtx,
		feed:   newPCMFeed(cfg.BytesPerSecond() * 2),
	}, nil
}

// Play queues a chunk for rendering. The device player starts lazily on the
// first chunk.
func (s *Speaker) Play(c audio.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.NewEnvironmentError("speaker closed")
	}

	s.feed.Append(c.PCM)
	if s.player == nil {
		s.player = s.otoCtx.NewPlayer(s.feed)
		s.player.Play()
	}
	return nil
}

// Flush discards everything queued but not yet rendered.
func (s *Speaker) Flush() {
	s.feed.Flush()
}

// Close stops playback and releases the device player. Idempotent.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.feed.Close()
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			s.logger.Warn("speaker player close failed", "error", err)
		}
		s.player = nil
	}
	return nil
}

// pcmFeed adapts the append-side queue to the io.Reader the device player
// pulls from. After Close it serves silence so the device drains gracefully.
type pcmFeed struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newPCMFeed(capacity int) *pcmFeed {
	f := &pcmFeed{buf: make([]byte, 0, capacity)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *pcmFeed) Append(pcm []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.buf = append(f.buf, pcm...)
	f.cond.Signal()
}

func (f *pcmFeed) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = f.buf[:0]
}

func (f *pcmFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Read implements io.Reader for the device player.
func (f *pcmFeed) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.buf) == 0 && !f.closed {
		f.cond.Wait()
	}

	if f.closed && len(f.buf) == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}
