// Package jobs runs asynchronous generation jobs: submit once, then poll the
// service on a fixed ticker until the job reaches exactly one terminal state.
// A parallel cycler surfaces progress messages while the job is pending and
// stops the moment it is not.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
	"github.com/genstudio-go/genstudio/pkg/metrics"
)

const (
	// DefaultPollInterval is how often a pending job is queried.
	DefaultPollInterval = 10 * time.Second
	// DefaultProgressInterval is how often the progress message rotates.
	DefaultProgressInterval = 5 * time.Second
)

// defaultProgressMessages rotate while a job is pending.
var defaultProgressMessages = []string{
	"Warming up the render farm...",
	"Composing frames...",
	"Adding a little movie magic...",
	"Color grading the scene...",
	"Almost there, polishing pixels...",
}

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Poller submits jobs and drives them to completion.
type Poller struct {
	video  genservice.VideoService
	logger *slog.Logger
	mtr    *metrics.Metrics

	pollInterval     time.Duration
	progressInterval time.Duration
	messages         []string
}

// Option configures a Poller.
type Option func(*Poller)

// WithPollInterval overrides the status poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Poller) { p.pollInterval = d }
}

// WithProgressInterval overrides the progress message rotation interval.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Poller) { p.progressInterval = d }
}

// WithProgressMessages replaces the rotating progress messages.
func WithProgressMessages(msgs []string) Option {
	return func(p *Poller) { p.messages = msgs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics attaches instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.mtr = m }
}

// New creates a Poller backed by the given video service.
func New(video genservice.VideoService, opts ...Option) *Poller {
	p := &Poller{
		video:            video,
		logger:           slog.Default(),
		pollInterval:     DefaultPollInterval,
		progressInterval: DefaultProgressInterval,
		messages:         defaultProgressMessages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Job is one submitted generation job. It reaches exactly one terminal
// state: done with a payload, failed, or cancelled.
type Job struct {
	handle      genservice.JobHandle
	submittedAt time.Time

	mu     sync.Mutex
	status Status
	result *genservice.VideoResult
	err    error

	progress chan string

	done         chan struct{}
	terminalOnce sync.Once
	cancel       context.CancelFunc
}

// Submit sends the request and, on acceptance, starts the poll ticker and
// the progress cycler. Submission rejections come back immediately as
// submission errors; nothing is started for them.
func (p *Poller) Submit(ctx context.Context, req genservice.VideoJobRequest) (*Job, error) {
	handle, err := p.video.SubmitVideoJob(ctx, req)
	if err != nil {
		if ce := core.AsError(err); ce != nil {
			p.mtr.RecordError(string(ce.Type))
		}
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &Job{
		handle:      handle,
		submittedAt: time.Now(),
		status:      StatusPending,
		progress:    make(chan string, 4),
		done:        make(chan struct{}),
		cancel:      cancel,
	}

	p.mtr.RecordJobSubmitted()
	p.logger.Info("job submitted", "handle", string(handle))

	go p.pollLoop(jobCtx, job)
	go p.progressLoop(jobCtx, job)

	return job, nil
}

// Handle returns the job's opaque service handle.
func (j *Job) Handle() genservice.JobHandle { return j.handle }

// Status returns the job's current state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Progress yields rotating status messages while the job is pending. The
// channel closes as soon as the job leaves the pending state.
func (j *Job) Progress() <-chan string { return j.progress }

// Result returns the payload and error of a terminal job. Before the job
// finishes, both are nil.
func (j *Job) Result() (*genservice.VideoResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Wait blocks until the job is terminal or ctx expires.
func (j *Job) Wait(ctx context.Context) (*genservice.VideoResult, error) {
	select {
	case <-j.done:
		return j.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops polling and marks the job cancelled. Idempotent; a no-op
// once the job is already terminal.
func (j *Job) Cancel() {
	j.finish(StatusCancelled, nil, context.Canceled)
}

// finish performs the single terminal transition: record the outcome, stop
// the ticker and the cycler via the job context, and release waiters. Every
// later call is a no-op.
func (j *Job) finish(status Status, result *genservice.VideoResult, err error) {
	j.terminalOnce.Do(func() {
		j.mu.Lock()
		j.status = status
		j.result = result
		j.err = err
		j.mu.Unlock()

		close(j.done)
		j.cancel()
	})
}

// pollLoop queries the job on a fixed ticker until a terminal transition.
// The ticker stops on every exit path.
func (p *Poller) pollLoop(ctx context.Context, job *Job) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mtr.RecordPoll()
			status, err := p.video.PollVideoJob(ctx, job.handle)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn("job poll failed", "handle", string(job.handle), "error", err)
				p.finishJob(job, StatusFailed, nil, core.NewPollError(err), "failed")
				return
			}
			if !status.Done {
				continue
			}
			switch {
			case status.ErrorDetail != "":
				p.finishJob(job, StatusFailed, nil, core.NewPollError(errors.New(status.ErrorDetail)), "failed")
			case status.Result == nil || (len(status.Result.VideoBytes) == 0 && status.Result.URI == ""):
				p.finishJob(job, StatusFailed, nil, core.NewEmptyResultError(), "empty")
			default:
				p.finishJob(job, StatusDone, status.Result, nil, "done")
			}
			return

		case <-ctx.Done():
			// finish is a no-op when Cancel already made the terminal
			// transition.
			job.finish(StatusCancelled, nil, context.Canceled)
			p.mtr.RecordJobDone("cancelled", time.Since(job.submittedAt))
			return
		}
	}
}

func (p *Poller) finishJob(job *Job, status Status, result *genservice.VideoResult, err error, outcome string) {
	job.finish(status, result, err)
	p.mtr.RecordJobDone(outcome, time.Since(job.submittedAt))
	if err != nil {
		if ce := core.AsError(err); ce != nil {
			p.mtr.RecordError(string(ce.Type))
		}
		p.logger.Info("job finished", "handle", string(job.handle), "status", string(status), "error", err)
		return
	}
	p.logger.Info("job finished", "handle", string(job.handle), "status", string(status))
}

// progressLoop rotates pending messages. It owns the progress channel and
// closes it on exit; exit is immediate once the job context dies, which
// happens in the same instant as the terminal transition.
func (p *Poller) progressLoop(ctx context.Context, job *Job) {
	defer close(job.progress)

	if len(p.messages) == 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.progressInterval)
	defer ticker.Stop()

	idx := 0
	emit := func() {
		select {
		case job.progress <- p.messages[idx%len(p.messages)]:
		default:
		}
		idx++
	}
	emit()

	for {
		select {
		case <-ticker.C:
			emit()
		case <-ctx.Done():
			return
		}
	}
}
