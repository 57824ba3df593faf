package genstudio

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/core/live"
)

// fakeGenService scripts every Generation Service call.
type fakeGenService struct {
	mu sync.Mutex

	submitErr  error
	pollStatus genservice.VideoJobStatus
	imageErr   error
	channel    *scriptedChannel
}

func (f *fakeGenService) SubmitVideoJob(ctx context.Context, req genservice.VideoJobRequest) (genservice.JobHandle, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "operations/fake-1", nil
}

func (f *fakeGenService) PollVideoJob(ctx context.Context, handle genservice.JobHandle) (genservice.VideoJobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollStatus, nil
}

func (f *fakeGenService) OpenLiveChannel(ctx context.Context, cfg genservice.LiveConfig) (genservice.Channel, error) {
	if f.channel == nil {
		return nil, core.NewTransportError("no channel scripted", nil)
	}
	return f.channel, nil
}

func (f *fakeGenService) GenerateImage(ctx context.Context, req genservice.ImageRequest) (*genservice.ImageResult, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &genservice.ImageResult{ImageBytes: []byte{0x89, 0x50}, MIMEType: "image/png"}, nil
}

func (f *fakeGenService) EditImage(ctx context.Context, req genservice.EditImageRequest) (*genservice.ImageResult, error) {
	return &genservice.ImageResult{ImageBytes: req.Image, MIMEType: req.MIMEType}, nil
}

func (f *fakeGenService) Analyze(ctx context.Context, req genservice.AnalyzeRequest) (string, error) {
	return "a sunny beach", nil
}

func (f *fakeGenService) Synthesize(ctx context.Context, req genservice.SpeechRequest) (audio.Chunk, error) {
	return audio.NewChunk(make([]byte, 480), audio.PlaybackConfig()), nil
}

func (f *fakeGenService) Transcribe(ctx context.Context, req genservice.TranscribeRequest) (string, error) {
	return "hello world", nil
}

type scriptedChannel struct {
	events chan genservice.ServerEvent
	once   sync.Once
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{events: make(chan genservice.ServerEvent, 8)}
}

func (c *scriptedChannel) Events() <-chan genservice.ServerEvent { return c.events }
func (c *scriptedChannel) SendRealtimeAudio(audio.EncodedFrame) error {
	return nil
}
func (c *scriptedChannel) Err() error { return nil }
func (c *scriptedChannel) Close() error {
	c.once.Do(func() { close(c.events) })
	return nil
}

type nopCapture struct{}

func (nopCapture) Start(ctx context.Context, fn func(audio.Chunk)) error { return nil }
func (nopCapture) Stop() error                                           { return nil }

type nopPlayer struct{}

func (nopPlayer) Play(c audio.Chunk) error { return nil }
func (nopPlayer) Close() error             { return nil }

func newTestClient(t *testing.T, svc genservice.Service, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithService(svc),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithPollInterval(10 * time.Millisecond),
		WithProgressInterval(5 * time.Millisecond),
	}, opts...)
	c, err := NewClient(opts...)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c
}

func TestCredentialConfirmedNotAssumed(t *testing.T) {
	c := newTestClient(t, &fakeGenService{})

	if c.CredentialValidated() {
		t.Fatal("credential must start unvalidated")
	}

	if _, err := c.Images.Generate(context.Background(), genservice.ImageRequest{Prompt: "a cat"}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !c.CredentialValidated() {
		t.Fatal("credential not confirmed after successful call")
	}
}

func TestInvalidCredentialResetsCachedState(t *testing.T) {
	svc := &fakeGenService{}
	c := newTestClient(t, svc)

	if _, err := c.Media.Analyze(context.Background(), genservice.AnalyzeRequest{Prompt: "what is this"}); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !c.CredentialValidated() {
		t.Fatal("credential not confirmed")
	}

	svc.submitErr = core.NewSubmissionError(core.CodeInvalidCredential, "API key not valid")
	if _, err := c.Videos.Generate(context.Background(), genservice.VideoJobRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected submission to fail")
	}
	if c.CredentialValidated() {
		t.Fatal("credential confirmation must reset on invalid_credential")
	}
}

func TestGenericFailureKeepsCredentialState(t *testing.T) {
	svc := &fakeGenService{}
	c := newTestClient(t, svc)

	if _, err := c.Media.Analyze(context.Background(), genservice.AnalyzeRequest{Prompt: "q"}); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	svc.imageErr = core.NewRequestError("overloaded", nil)
	if _, err := c.Images.Generate(context.Background(), genservice.ImageRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected failure")
	}
	if !c.CredentialValidated() {
		t.Fatal("non-credential failure must not reset confirmation")
	}
}

func TestVideosGenerateAndWait(t *testing.T) {
	svc := &fakeGenService{
		pollStatus: genservice.VideoJobStatus{
			Done:   true,
			Result: &genservice.VideoResult{VideoBytes: []byte("mp4"), MIMEType: "video/mp4"},
		},
	}
	c := newTestClient(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := c.Videos.GenerateAndWait(ctx, genservice.VideoJobRequest{Prompt: "a red kite"})
	if err != nil {
		t.Fatalf("GenerateAndWait error: %v", err)
	}
	if string(result.VideoBytes) != "mp4" {
		t.Fatalf("result = %q", result.VideoBytes)
	}
}

func TestLiveStartSessionWithInjectedDevices(t *testing.T) {
	svc := &fakeGenService{channel: newScriptedChannel()}
	c := newTestClient(t, svc)

	session, err := c.Live.StartSession(context.Background(), LiveSessionOptions{
		Model:   "test-model",
		Capture: nopCapture{},
		Player:  nopPlayer{},
	})
	if err != nil {
		t.Fatalf("StartSession error: %v", err)
	}
	defer session.Stop()

	if session.State() != live.StateActive {
		t.Fatalf("state = %v, want active", session.State())
	}
	if !c.CredentialValidated() {
		t.Fatal("credential not confirmed after live start")
	}
}

func TestSynthesizeWAVProducesRIFFHeader(t *testing.T) {
	c := newTestClient(t, &fakeGenService{})

	wav, err := c.Speech.SynthesizeWAV(context.Background(), genservice.SpeechRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("SynthesizeWAV error: %v", err)
	}
	if len(wav) < 44 || string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("not a WAV file: % x", wav[:12])
	}
}
