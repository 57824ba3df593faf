package genstudio

import (
	"context"

	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
)

// ImagesService covers one-shot image generation and editing.
type ImagesService struct {
	client *Client
}

// Generate produces an image from a text prompt.
func (s *ImagesService) Generate(ctx context.Context, req genservice.ImageRequest) (*genservice.ImageResult, error) {
	ctx, end := s.client.span(ctx, "images.generate")
	defer end()

	result, err := s.client.service.GenerateImage(ctx, req)
	s.client.observe(err)
	return result, err
}

// Edit applies a text instruction to an existing image.
func (s *ImagesService) Edit(ctx context.Context, req genservice.EditImageRequest) (*genservice.ImageResult, error) {
	ctx, end := s.client.span(ctx, "images.edit")
	defer end()

	result, err := s.client.service.EditImage(ctx, req)
	s.client.observe(err)
	return result, err
}

// MediaService answers questions about media attachments.
type MediaService struct {
	client *Client
}

// Analyze asks a question about an optional media attachment.
func (s *MediaService) Analyze(ctx context.Context, req genservice.AnalyzeRequest) (string, error) {
	ctx, end := s.client.span(ctx, "media.analyze")
	defer end()

	text, err := s.client.service.Analyze(ctx, req)
	s.client.observe(err)
	return text, err
}

// SpeechService converts between text and audio.
type SpeechService struct {
	client *Client
}

// Synthesize converts text to a PCM chunk in the playback format.
func (s *SpeechService) Synthesize(ctx context.Context, req genservice.SpeechRequest) (audio.Chunk, error) {
	ctx, end := s.client.span(ctx, "speech.synthesize")
	defer end()

	chunk, err := s.client.service.Synthesize(ctx, req)
	s.client.observe(err)
	return chunk, err
}

// SynthesizeWAV converts text to a complete WAV file.
func (s *SpeechService) SynthesizeWAV(ctx context.Context, req genservice.SpeechRequest) ([]byte, error) {
	chunk, err := s.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	return audio.PCMToWAV(chunk.PCM, chunk.Config), nil
}

// Transcribe converts recorded audio to text.
func (s *SpeechService) Transcribe(ctx context.Context, req genservice.TranscribeRequest) (string, error) {
	ctx, end := s.client.span(ctx, "speech.transcribe")
	defer end()

	text, err := s.client.service.Transcribe(ctx, req)
	s.client.observe(err)
	return text, err
}

// span starts a tracer span when a tracer is configured; the returned func
// ends it.
func (c *Client) span(ctx context.Context, name string) (context.Context, func()) {
	if c.cfg.tracer == nil {
		return ctx, func() {}
	}
	ctx, sp := c.cfg.tracer.Start(ctx, name)
	return ctx, func() { sp.End() }
}
