package genservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/metrics"
)

// Default model IDs per capability.
const (
	DefaultChatModel      = "gemini-2.5-flash"
	DefaultImageModel     = "imagen-4.0-generate-001"
	DefaultImageEditModel = "gemini-2.5-flash-image"
	DefaultVideoModel     = "veo-3.0-generate-001"
	DefaultSpeechModel    = "gemini-2.5-flash-preview-tts"
	DefaultLiveModel      = "gemini-2.0-flash-live-001"
	DefaultVoice          = "Puck"
)

// Models selects the model ID used for each capability.
type Models struct {
	Chat      string
	Image     string
	ImageEdit string
	Video     string
	Speech    string
	Live      string
}

// DefaultModels returns the default model selection.
func DefaultModels() Models {
	return Models{
		Chat:      DefaultChatModel,
		Image:     DefaultImageModel,
		ImageEdit: DefaultImageEditModel,
		Video:     DefaultVideoModel,
		Speech:    DefaultSpeechModel,
		Live:      DefaultLiveModel,
	}
}

// Gemini implements Service against the Gemini API.
type Gemini struct {
	apiKey     string
	client     *genai.Client
	models     Models
	logger     *slog.Logger
	mtr        *metrics.Metrics
	httpClient *http.Client

	// liveBaseURL overrides the live websocket endpoint, primarily so tests
	// can point at a local server.
	liveBaseURL string
}

var _ Service = (*Gemini)(nil)

// GeminiOption configures a Gemini service.
type GeminiOption func(*Gemini)

// WithModels overrides the per-capability model selection.
func WithModels(m Models) GeminiOption {
	return func(g *Gemini) { g.models = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = l }
}

// WithMetrics attaches instrumentation.
func WithMetrics(m *metrics.Metrics) GeminiOption {
	return func(g *Gemini) { g.mtr = m }
}

// WithLiveBaseURL overrides the live websocket base URL.
func WithLiveBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.liveBaseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets the HTTP client used for one-shot calls.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = hc }
}

// NewGemini creates a Gemini-backed Generation Service.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, core.NewSubmissionError(core.CodeInvalidCredential, "API key must not be empty")
	}
	g := &Gemini{
		apiKey:      apiKey,
		models:      DefaultModels(),
		logger:      slog.Default(),
		liveBaseURL: defaultLiveBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, core.NewRequestError("create generation client", err)
	}
	g.client = client
	return g, nil
}

// SubmitVideoJob starts a video generation job and returns its opaque handle.
func (g *Gemini) SubmitVideoJob(ctx context.Context, req VideoJobRequest) (JobHandle, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", core.NewSubmissionError(core.CodeGeneric, "prompt must not be empty")
	}

	var image *genai.Image
	if len(req.StartImage) > 0 {
		image = &genai.Image{ImageBytes: req.StartImage, MIMEType: req.StartImageMIME}
	}
	cfg := &genai.GenerateVideosConfig{
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	}

	op, err := g.client.Models.GenerateVideos(ctx, g.models.Video, req.Prompt, image, cfg)
	if err != nil {
		return "", submissionError(err)
	}
	if op == nil || strings.TrimSpace(op.Name) == "" {
		return "", core.NewSubmissionError(core.CodeGeneric, "service returned no job handle")
	}
	g.logger.Debug("video job submitted", "operation", op.Name, "model", g.models.Video)
	return JobHandle(op.Name), nil
}

// PollVideoJob queries the status of a video generation job.
func (g *Gemini) PollVideoJob(ctx context.Context, handle JobHandle) (VideoJobStatus, error) {
	if strings.TrimSpace(string(handle)) == "" {
		return VideoJobStatus{}, errors.New("job handle must not be empty")
	}
	op, err := g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: string(handle)}, nil)
	if err != nil {
		return VideoJobStatus{}, err
	}
	return g.videoStatus(ctx, op), nil
}

// videoStatus maps a polled operation into a job status. When the service
// returns only a URI, the bytes are fetched so the caller gets a
// self-contained result; a failed fetch leaves a URI-only result and is
// logged rather than failing the job.
func (g *Gemini) videoStatus(ctx context.Context, op *genai.GenerateVideosOperation) VideoJobStatus {
	if !op.Done {
		return VideoJobStatus{Done: false}
	}
	if len(op.Error) > 0 {
		return VideoJobStatus{Done: true, ErrorDetail: fmt.Sprintf("%v", op.Error)}
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return VideoJobStatus{Done: true}
	}
	v := op.Response.GeneratedVideos[0].Video
	if len(v.VideoBytes) == 0 && v.URI != "" {
		if _, err := g.client.Files.Download(ctx, v, nil); err != nil {
			g.logger.Warn("video bytes download failed, result carries URI only",
				"uri", v.URI, "error", err)
		}
	}
	return VideoJobStatus{
		Done: true,
		Result: &VideoResult{
			VideoBytes: v.VideoBytes,
			URI:        v.URI,
			MIMEType:   v.MIMEType,
		},
	}
}

// OpenLiveChannel dials a duplex live channel.
func (g *Gemini) OpenLiveChannel(ctx context.Context, cfg LiveConfig) (Channel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = g.models.Live
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = DefaultVoice
	}
	return dialLiveChannel(ctx, g.liveBaseURL, g.apiKey, cfg, g.logger, g.mtr)
}

// GenerateImage produces an image from a text prompt.
func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, core.NewRequestError("prompt must not be empty", nil)
	}
	cfg := &genai.GenerateImagesConfig{NumberOfImages: 1}
	if req.AspectRatio != "" {
		cfg.AspectRatio = req.AspectRatio
	}
	resp, err := g.client.Models.GenerateImages(ctx, g.models.Image, req.Prompt, cfg)
	if err != nil {
		return nil, core.NewRequestError("generate image", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, core.NewRequestError("service returned no image", nil)
	}
	img := resp.GeneratedImages[0].Image
	return &ImageResult{ImageBytes: img.ImageBytes, MIMEType: img.MIMEType}, nil
}

// EditImage applies a text instruction to an existing image.
func (g *Gemini) EditImage(ctx context.Context, req EditImageRequest) (*ImageResult, error) {
	if len(req.Image) == 0 {
		return nil, core.NewRequestError("image must not be empty", nil)
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(req.Instruction),
			genai.NewPartFromBytes(req.Image, req.MIMEType),
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.models.ImageEdit, contents, nil)
	if err != nil {
		return nil, core.NewRequestError("edit image", err)
	}
	for _, p := range candidateParts(resp) {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return &ImageResult{ImageBytes: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}, nil
		}
	}
	return nil, core.NewRequestError("service returned no edited image", nil)
}

// Analyze answers a question about a media attachment.
func (g *Gemini) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Media) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Media, req.MIMEType))
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.client.Models.GenerateContent(ctx, g.models.Chat, contents, nil)
	if err != nil {
		return "", core.NewRequestError("analyze media", err)
	}
	text := candidateText(resp)
	if text == "" {
		return "", core.NewRequestError("service returned no analysis", nil)
	}
	return text, nil
}

// Synthesize converts text to 24 kHz mono PCM speech.
func (g *Gemini) Synthesize(ctx context.Context, req SpeechRequest) (audio.Chunk, error) {
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(req.Text)}}}
	resp, err := g.client.Models.GenerateContent(ctx, g.models.Speech, contents, cfg)
	if err != nil {
		return audio.Chunk{}, core.NewRequestError("synthesize speech", err)
	}
	for _, p := range candidateParts(resp) {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return audio.NewChunk(p.InlineData.Data, audio.PlaybackConfig()), nil
		}
	}
	return audio.Chunk{}, core.NewRequestError("service returned no audio", nil)
}

// Transcribe converts an audio attachment to text.
func (g *Gemini) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	if len(req.Audio) == 0 {
		return "", core.NewRequestError("audio must not be empty", nil)
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = "Transcribe this audio verbatim."
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(req.Audio, req.MIMEType),
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.models.Chat, contents, nil)
	if err != nil {
		return "", core.NewRequestError("transcribe audio", err)
	}
	text := candidateText(resp)
	if text == "" {
		return "", core.NewRequestError("service returned no transcript", nil)
	}
	return text, nil
}

func candidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func candidateText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, p := range candidateParts(resp) {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// submissionError maps a service rejection to the submission taxonomy,
// distinguishing credential failures from everything else.
func submissionError(err error) *core.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 || strings.EqualFold(apiErr.Status, "UNAUTHENTICATED") {
			return &core.Error{
				Type:    core.ErrSubmission,
				Message: apiErr.Message,
				Code:    core.CodeInvalidCredential,
				Err:     err,
			}
		}
	}
	return &core.Error{
		Type:    core.ErrSubmission,
		Message: err.Error(),
		Code:    core.CodeGeneric,
		Err:     err,
	}
}
