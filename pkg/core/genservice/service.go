// Package genservice is the boundary to the hosted Generation Service: one
// interface covering the async video job operations, the duplex live channel,
// and the one-shot generation calls. The core session and poller packages
// depend only on this interface; the Gemini implementation lives alongside it.
package genservice

import (
	"context"

	"github.com/genstudio-go/genstudio/pkg/core/audio"
)

// Service is the full Generation Service surface the core depends on.
type Service interface {
	VideoService
	LiveService
	MediaService
}

// VideoService covers asynchronous video generation.
type VideoService interface {
	// SubmitVideoJob sends a one-shot creation request and returns the
	// opaque job handle. Rejections surface as submission errors with the
	// invalid-credential code distinguished from generic failures.
	SubmitVideoJob(ctx context.Context, req VideoJobRequest) (JobHandle, error)

	// PollVideoJob queries the status of a previously submitted job.
	PollVideoJob(ctx context.Context, handle JobHandle) (VideoJobStatus, error)
}

// LiveService opens duplex real-time channels.
type LiveService interface {
	OpenLiveChannel(ctx context.Context, cfg LiveConfig) (Channel, error)
}

// MediaService covers the one-shot request/response generation calls.
type MediaService interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	EditImage(ctx context.Context, req EditImageRequest) (*ImageResult, error)
	Analyze(ctx context.Context, req AnalyzeRequest) (string, error)
	Synthesize(ctx context.Context, req SpeechRequest) (audio.Chunk, error)
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
}

// JobHandle is the opaque token identifying an in-flight video job.
type JobHandle string

// VideoJobRequest configures a video generation job.
type VideoJobRequest struct {
	Prompt      string
	AspectRatio string // e.g. "16:9"
	Resolution  string // e.g. "720p"

	// Optional starting image for image-to-video.
	StartImage     []byte
	StartImageMIME string
}

// VideoResult is the payload of a completed video job.
type VideoResult struct {
	VideoBytes []byte
	URI        string
	MIMEType   string
}

// VideoJobStatus is one poll response. Result is present only on successful
// completion; ErrorDetail only when the service reports the job itself
// failed.
type VideoJobStatus struct {
	Done        bool
	Result      *VideoResult
	ErrorDetail string
}

// LiveConfig configures a duplex live channel.
type LiveConfig struct {
	Model             string
	SystemInstruction string
	Voice             string
}

// ImageRequest configures a one-shot text-to-image call.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// ImageResult is a generated or edited image.
type ImageResult struct {
	ImageBytes []byte
	MIMEType   string
}

// EditImageRequest applies a text instruction to an existing image.
type EditImageRequest struct {
	Instruction string
	Image       []byte
	MIMEType    string
}

// AnalyzeRequest asks a question about an optional media attachment.
type AnalyzeRequest struct {
	Prompt   string
	Media    []byte
	MIMEType string
}

// SpeechRequest converts text to spoken audio.
type SpeechRequest struct {
	Text  string
	Voice string
}

// TranscribeRequest converts recorded audio to text. Prompt optionally
// steers the transcription.
type TranscribeRequest struct {
	Prompt   string
	Audio    []byte
	MIMEType string
}

// ServerEvent is one inbound message from a live channel, decoded into a
// tagged variant so a single consumer loop can process arrivals in order.
type ServerEvent interface {
	serverEventType() string
}

// InputTranscriptEvent carries the remote side's transcription of the user's
// speech.
type InputTranscriptEvent struct {
	Text string
}

func (InputTranscriptEvent) serverEventType() string { return "input_transcript" }

// OutputTranscriptEvent carries a fragment of the model's spoken response as
// text.
type OutputTranscriptEvent struct {
	Text string
}

func (OutputTranscriptEvent) serverEventType() string { return "output_transcript" }

// TurnCompleteEvent signals the end of one user/model exchange.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) serverEventType() string { return "turn_complete" }

// AudioEvent carries one encoded chunk of model audio.
type AudioEvent struct {
	Frame audio.EncodedFrame
}

func (AudioEvent) serverEventType() string { return "audio" }

// InterruptedEvent signals that the model's turn was cut off by user speech.
type InterruptedEvent struct{}

func (InterruptedEvent) serverEventType() string { return "interrupted" }

// Channel is one open duplex live connection. Events are delivered strictly
// in arrival order; the channel never reorders or drops inbound messages.
type Channel interface {
	// Events yields decoded inbound events. The channel is closed when the
	// connection ends for any reason; Err reports why.
	Events() <-chan ServerEvent

	// SendRealtimeAudio forwards one encoded frame without blocking the
	// caller. Frames may be discarded under backpressure rather than stall
	// audio capture.
	SendRealtimeAudio(frame audio.EncodedFrame) error

	// Err returns the terminal error, if any, once Events is closed.
	Err() error

	// Close tears down the connection. Idempotent.
	Close() error
}
