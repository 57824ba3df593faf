package genstudio

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/genstudio-go/genstudio/pkg/capture"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/core/live"
	"github.com/genstudio-go/genstudio/pkg/playback"
)

// LiveService starts duplex live audio conversations.
type LiveService struct {
	client *Client
}

// LiveSessionOptions configures one live session.
type LiveSessionOptions struct {
	// Model overrides the default live model.
	Model string

	// SystemInstruction steers the conversation.
	SystemInstruction string

	// Voice selects the prebuilt voice for spoken responses.
	Voice string

	// Capture and Player replace the real microphone and speaker. Leave
	// nil to use the system devices.
	Capture live.Capture
	Player  live.Player
}

// StartSession opens the channel, acquires the audio devices, and returns
// an active session. On any failure nothing stays acquired.
func (s *LiveService) StartSession(ctx context.Context, opts LiveSessionOptions) (*live.Session, error) {
	c := s.client

	var span trace.Span
	if c.cfg.tracer != nil {
		ctx, span = c.cfg.tracer.Start(ctx, "live.session")
		defer span.End()
	}

	mic := opts.Capture
	if mic == nil {
		mic = capture.New(audio.CaptureConfig(), c.logger())
	}

	player := opts.Player
	if player == nil {
		speaker, err := playback.New(audio.PlaybackConfig(), c.logger())
		if err != nil {
			c.observe(err)
			return nil, err
		}
		player = speaker
	}

	session := live.NewSession(c.service, mic, player, live.Config{
		Model:             opts.Model,
		SystemInstruction: opts.SystemInstruction,
		Voice:             opts.Voice,
		Logger:            c.logger(),
		Metrics:           c.cfg.metrics,
	})

	if err := session.Start(ctx); err != nil {
		if opts.Player == nil {
			// The speaker was ours to clean up.
			player.Close()
		}
		c.observe(err)
		return nil, err
	}

	c.observe(nil)
	return session, nil
}
