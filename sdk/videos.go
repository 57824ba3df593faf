package genstudio

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/core/jobs"
)

// VideosService submits async video generation jobs and drives them to
// completion.
type VideosService struct {
	client *Client
	poller *jobs.Poller
}

func newVideosService(c *Client) *VideosService {
	opts := []jobs.Option{
		jobs.WithLogger(c.logger()),
		jobs.WithMetrics(c.cfg.metrics),
	}
	if c.cfg.pollInterval > 0 {
		opts = append(opts, jobs.WithPollInterval(c.cfg.pollInterval))
	}
	if c.cfg.progressInterval > 0 {
		opts = append(opts, jobs.WithProgressInterval(c.cfg.progressInterval))
	}
	return &VideosService{
		client: c,
		poller: jobs.New(c.service, opts...),
	}
}

// Generate submits a video job. The returned job is already being polled;
// wait on it or watch Done and Progress.
func (s *VideosService) Generate(ctx context.Context, req genservice.VideoJobRequest) (*jobs.Job, error) {
	c := s.client

	var span trace.Span
	if c.cfg.tracer != nil {
		ctx, span = c.cfg.tracer.Start(ctx, "videos.generate")
		defer span.End()
	}

	job, err := s.poller.Submit(ctx, req)
	c.observe(err)
	return job, err
}

// GenerateAndWait submits a video job and blocks until it is terminal or
// ctx expires.
func (s *VideosService) GenerateAndWait(ctx context.Context, req genservice.VideoJobRequest) (*genservice.VideoResult, error) {
	job, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	defer job.Cancel()
	return job.Wait(ctx)
}
