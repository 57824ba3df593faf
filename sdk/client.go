// Package genstudio provides the GenStudio SDK for Go: duplex live audio
// conversations, async video generation, and one-shot image, speech, and
// analysis calls against the Generation Service.
package genstudio

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
)

// Client is the main entry point for the SDK.
type Client struct {
	Live   *LiveService
	Videos *VideosService
	Images *ImagesService
	Media  *MediaService
	Speech *SpeechService

	// Internal
	service genservice.Service
	cfg     clientConfig

	// credentialOK means the key has been confirmed by at least one
	// successful call. Confirmed, never assumed: it starts false and
	// resets whenever the service rejects the credential.
	credentialOK atomic.Bool
}

// NewClient creates a client. The API key comes from WithAPIKey or, failing
// that, GENSTUDIO_API_KEY / GEMINI_API_KEY in the environment.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		cfg: clientConfig{logger: slog.Default()},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.service == nil {
		key := c.cfg.apiKey
		if key == "" {
			key = os.Getenv("GENSTUDIO_API_KEY")
		}
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		gopts := []genservice.GeminiOption{genservice.WithLogger(c.cfg.logger)}
		if c.cfg.metrics != nil {
			gopts = append(gopts, genservice.WithMetrics(c.cfg.metrics))
		}
		if c.cfg.httpClient != nil {
			gopts = append(gopts, genservice.WithHTTPClient(c.cfg.httpClient))
		}
		if c.cfg.models != nil {
			gopts = append(gopts, genservice.WithModels(*c.cfg.models))
		}
		if c.cfg.liveBaseURL != "" {
			gopts = append(gopts, genservice.WithLiveBaseURL(c.cfg.liveBaseURL))
		}
		svc, err := genservice.NewGemini(context.Background(), key, gopts...)
		if err != nil {
			return nil, err
		}
		c.service = svc
	}

	c.Live = &LiveService{client: c}
	c.Videos = newVideosService(c)
	c.Images = &ImagesService{client: c}
	c.Media = &MediaService{client: c}
	c.Speech = &SpeechService{client: c}
	return c, nil
}

// CredentialValidated reports whether the configured key has been confirmed
// by a successful service call.
func (c *Client) CredentialValidated() bool {
	return c.credentialOK.Load()
}

// observe folds one operation outcome into the cached credential state: a
// success confirms the key, a credential rejection clears the confirmation.
func (c *Client) observe(err error) {
	if err == nil {
		c.credentialOK.Store(true)
		return
	}
	if core.HasCode(err, core.CodeInvalidCredential) {
		c.credentialOK.Store(false)
	}
}

func (c *Client) logger() *slog.Logger {
	return c.cfg.logger
}
