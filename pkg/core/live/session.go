package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/metrics"
)

// Capture provides microphone audio. Start begins delivering chunks to fn
// from a device-owned goroutine; Stop releases the device. Implementations
// report unusable devices with the device error taxonomy so callers can
// distinguish a denied permission from a missing microphone.
type Capture interface {
	Start(ctx context.Context, fn func(audio.Chunk)) error
	Stop() error
}

// Player renders decoded model audio. Play blocks until the chunk has been
// handed to the device, which keeps consecutive chunks contiguous.
type Player interface {
	Play(c audio.Chunk) error
	Close() error
}

// Config configures a live session.
type Config struct {
	Model             string
	SystemInstruction string
	Voice             string

	// PlaybackQueue bounds the decoded chunks waiting for the player.
	// Zero means the default of 64.
	PlaybackQueue int

	// MaxDuration stops the session after the given time. Zero means no
	// limit; sessions run until Stop or a transport error.
	MaxDuration time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

const defaultPlaybackQueue = 64

// Session is a duplex live audio conversation: microphone chunks stream up
// the channel while model audio and transcripts stream down. A single
// consumer goroutine processes inbound events in arrival order; a playback
// goroutine renders audio on a gapless schedule.
type Session struct {
	cfg     Config
	service genservice.LiveService
	capture Capture
	player  Player
	logger  *slog.Logger
	mtr     *metrics.Metrics

	mu      sync.RWMutex
	state   State
	history []ConversationTurn

	acc      transcriptAccumulator
	schedule *Schedule

	channel   genservice.Channel
	events    chan Event
	playQueue chan audio.Chunk
	done      chan struct{}
	closed    atomic.Bool
	stopOnce  sync.Once
	wg        sync.WaitGroup
	startedAt time.Time
	maxTimer  *time.Timer

	ctx    context.Context
	cancel context.CancelFunc

	errMu sync.Mutex
	err   error
}

// NewSession creates a session in the Idle state. Nothing is connected until
// Start.
func NewSession(service genservice.LiveService, capture Capture, player Player, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queue := cfg.PlaybackQueue
	if queue <= 0 {
		queue = defaultPlaybackQueue
	}
	return &Session{
		cfg:       cfg,
		service:   service,
		capture:   capture,
		player:    player,
		logger:    logger,
		mtr:       cfg.Metrics,
		state:     StateIdle,
		schedule:  NewSchedule(),
		events:    make(chan Event, 100),
		playQueue: make(chan audio.Chunk, queue),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events returns the channel for receiving session events. It is closed
// after the session fully stops.
func (s *Session) Events() <-chan Event {
	return s.events
}

// History returns the completed conversation turns so far.
func (s *Session) History() []ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// PartialTranscripts returns the in-progress turn's transcripts.
func (s *Session) PartialTranscripts() (user, model string) {
	return s.acc.Partial()
}

// Err returns the terminal error, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Start connects the channel and the microphone and begins streaming. If any
// step fails, everything already acquired is released and the session returns
// to Idle holding no resources.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return fmt.Errorf("session already stopped")
	}
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.state = StateStarting
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	// The microphone comes first: a denied or missing device fails the
	// start before anything touches the network.
	if err := s.capture.Start(s.ctx, s.onCaptureChunk); err != nil {
		s.cancel()
		s.setState(StateIdle)
		if ce := core.AsError(err); ce != nil {
			s.mtr.RecordError(string(ce.Type))
		}
		return err
	}

	channel, err := s.service.OpenLiveChannel(s.ctx, genservice.LiveConfig{
		Model:             s.cfg.Model,
		SystemInstruction: s.cfg.SystemInstruction,
		Voice:             s.cfg.Voice,
	})
	if err != nil {
		if stopErr := s.capture.Stop(); stopErr != nil {
			s.logger.Warn("capture stop failed", "error", stopErr)
		}
		s.cancel()
		s.setState(StateIdle)
		s.mtr.RecordError(string(core.ErrTransport))
		return err
	}
	s.mu.Lock()
	s.channel = channel
	s.mu.Unlock()

	s.startedAt = time.Now()
	if s.cfg.MaxDuration > 0 {
		s.maxTimer = time.AfterFunc(s.cfg.MaxDuration, func() { s.Stop() })
	}
	s.wg.Add(2)
	go s.consumeLoop(channel)
	go s.playLoop()

	s.setState(StateActive)
	s.mtr.RecordSessionStart()
	s.emit(&SessionStartedEvent{Model: s.cfg.Model, Voice: s.cfg.Voice})
	return nil
}

// onCaptureChunk runs on the capture device's goroutine. It must never
// block: the frame is encoded and handed off, and the channel drops it if
// the transport has fallen behind. Frames arriving before the channel is
// up are discarded.
func (s *Session) onCaptureChunk(chunk audio.Chunk) {
	if s.closed.Load() {
		return
	}
	s.mu.RLock()
	channel := s.channel
	s.mu.RUnlock()
	if channel == nil {
		return
	}
	s.mtr.RecordAudio("input", len(chunk.PCM))
	if err := channel.SendRealtimeAudio(audio.EncodeFrame(chunk)); err != nil {
		s.logger.Debug("realtime send failed", "error", err)
	}
}

// Stop tears the session down: capture, channel, playback, in that order.
// Every resource is released even if an earlier one fails; failures are
// logged, not returned. Safe to call from any goroutine, any number of
// times.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.closed.Store(true)

		if s.cancel != nil {
			s.cancel()
		}
		if s.maxTimer != nil {
			s.maxTimer.Stop()
		}
		if s.capture != nil {
			if err := s.capture.Stop(); err != nil {
				s.logger.Warn("capture stop failed", "error", err)
			}
		}
		s.mu.RLock()
		channel := s.channel
		s.mu.RUnlock()
		if channel != nil {
			if err := channel.Close(); err != nil {
				s.logger.Warn("channel close failed", "error", err)
			}
		}
		s.schedule.Reset()

		wasActive := s.State() == StateActive
		s.setState(StateIdle)
		s.emit(&SessionEndedEvent{Reason: s.endReason()})
		close(s.done)

		if wasActive {
			status := "ok"
			if s.Err() != nil {
				status = "error"
			}
			s.mtr.RecordSessionEnd(status, time.Since(s.startedAt))
		}

		// The loops drain out before the player and events channel go away.
		go func() {
			s.wg.Wait()
			if s.player != nil {
				if err := s.player.Close(); err != nil {
					s.logger.Warn("player close failed", "error", err)
				}
			}
			close(s.events)
		}()
	})
	return nil
}

func (s *Session) endReason() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return "stopped"
}

// setErr records the first terminal error.
func (s *Session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState != newState {
		s.logger.Debug("session state changed", "from", oldState.String(), "to", newState.String())
		s.emit(&StateChangedEvent{From: oldState, To: newState})
	}
}

// emit delivers a session event without blocking; a slow listener loses
// events rather than stalling the stream.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
	}
}

// consumeLoop is the single consumer of inbound channel events. Processing
// happens strictly in arrival order, so transcripts accumulate and turns
// close exactly as the remote side emitted them.
func (s *Session) consumeLoop(channel genservice.Channel) {
	defer s.wg.Done()

	for ev := range channel.Events() {
		switch e := ev.(type) {
		case genservice.InputTranscriptEvent:
			s.acc.AppendInput(e.Text)
			s.mtr.RecordTranscript("input")
			s.emit(&UserTranscriptEvent{Text: e.Text})

		case genservice.OutputTranscriptEvent:
			s.acc.AppendOutput(e.Text)
			s.mtr.RecordTranscript("output")
			s.emit(&ModelTranscriptEvent{Text: e.Text})

		case genservice.AudioEvent:
			chunk, err := audio.DecodeFrame(e.Frame, audio.PlaybackConfig())
			if err != nil {
				s.logger.Warn("discarding undecodable audio payload", "error", err)
				continue
			}
			s.enqueuePlayback(chunk)

		case genservice.TurnCompleteEvent:
			turn := s.acc.CompleteTurn(time.Now())
			s.mu.Lock()
			s.history = append(s.history, turn)
			s.mu.Unlock()
			s.mtr.RecordTurn()
			s.emit(&TurnCompletedEvent{Turn: turn})

		case genservice.InterruptedEvent:
			s.flushPlayback()
			s.mtr.RecordInterrupt()
			s.emit(&InterruptedEvent{})
		}
	}

	if err := channel.Err(); err != nil && !s.closed.Load() {
		s.setErr(err)
		s.mtr.RecordError(string(core.ErrTransport))
		s.emit(&ErrorEvent{Err: err})
	}
	s.Stop()
}

func (s *Session) enqueuePlayback(chunk audio.Chunk) {
	select {
	case s.playQueue <- chunk:
		s.mtr.SetPlaybackBacklog(len(s.playQueue))
	case <-s.done:
	}
}

// flushPlayback drops everything queued but not yet playing and resets the
// schedule so the next chunk starts immediately.
func (s *Session) flushPlayback() {
	for {
		select {
		case <-s.playQueue:
		default:
			s.schedule.Reset()
			s.mtr.SetPlaybackBacklog(0)
			return
		}
	}
}

// playLoop renders queued chunks. Each chunk gets a slot from the schedule:
// back to back with its predecessor, or at "now" after a gap.
func (s *Session) playLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.playQueue:
			s.mtr.SetPlaybackBacklog(len(s.playQueue))
			start := s.schedule.Next(chunk.Duration())
			if wait := time.Until(start); wait > 0 {
				select {
				case <-time.After(wait):
				case <-s.done:
					return
				}
			}
			s.mtr.RecordAudio("output", len(chunk.PCM))
			if err := s.player.Play(chunk); err != nil {
				s.logger.Warn("playback failed", "error", err)
			}
		case <-s.done:
			return
		}
	}
}
