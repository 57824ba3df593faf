package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/genservice"
)

// fakeVideoService scripts submit and poll responses.
type fakeVideoService struct {
	mu        sync.Mutex
	submitErr error
	polls     int
	script    []pollStep
}

type pollStep struct {
	status genservice.VideoJobStatus
	err    error
}

func (f *fakeVideoService) SubmitVideoJob(ctx context.Context, req genservice.VideoJobRequest) (genservice.JobHandle, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "operations/job-1", nil
}

func (f *fakeVideoService) PollVideoJob(ctx context.Context, handle genservice.JobHandle) (genservice.VideoJobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	step := f.script[len(f.script)-1]
	if f.polls < len(f.script) {
		step = f.script[f.polls]
	}
	f.polls++
	return step.status, step.err
}

func (f *fakeVideoService) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func newTestPoller(svc *fakeVideoService) *Poller {
	return New(svc,
		WithPollInterval(10*time.Millisecond),
		WithProgressInterval(5*time.Millisecond),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func pending() pollStep {
	return pollStep{status: genservice.VideoJobStatus{Done: false}}
}

func TestJobCompletesOnThirdPoll(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{
		pending(),
		pending(),
		{status: genservice.VideoJobStatus{
			Done:   true,
			Result: &genservice.VideoResult{VideoBytes: []byte("mp4"), MIMEType: "video/mp4"},
		}},
	}}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "a red kite"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := job.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if string(result.VideoBytes) != "mp4" {
		t.Fatalf("result bytes = %q", result.VideoBytes)
	}
	if job.Status() != StatusDone {
		t.Fatalf("status = %q, want done", job.Status())
	}
	if got := svc.pollCount(); got != 3 {
		t.Fatalf("polls = %d, want exactly 3", got)
	}

	// Terminal means terminal: the ticker is gone, no further queries.
	time.Sleep(50 * time.Millisecond)
	if got := svc.pollCount(); got != 3 {
		t.Fatalf("polls after completion = %d, want 3", got)
	}
}

func TestJobDoneWithoutPayloadIsEmptyResult(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{
		{status: genservice.VideoJobStatus{Done: true}},
	}}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := job.Wait(ctx)
	if result != nil {
		t.Fatalf("result = %+v, want nil", result)
	}
	if !core.IsType(err, core.ErrEmptyResult) {
		t.Fatalf("err = %v, want empty result error", err)
	}
	if job.Status() != StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status())
	}
}

func TestJobPollErrorIsTerminal(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{
		pending(),
		{err: errors.New("backend unavailable")},
	}}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := job.Wait(ctx); !core.IsType(err, core.ErrPoll) {
		t.Fatalf("err = %v, want poll error", err)
	}

	polls := svc.pollCount()
	time.Sleep(50 * time.Millisecond)
	if got := svc.pollCount(); got != polls {
		t.Fatalf("polls kept running after failure: %d -> %d", polls, got)
	}
}

func TestJobErrorDetailBecomesPollError(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{
		{status: genservice.VideoJobStatus{Done: true, ErrorDetail: "safety rejection"}},
	}}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = job.Wait(ctx)
	if !core.IsType(err, core.ErrPoll) {
		t.Fatalf("err = %v, want poll error", err)
	}
}

func TestJobCancelIsIdempotent(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{pending()}}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	job.Cancel()
	job.Cancel()
	job.Cancel()

	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job never reached terminal state")
	}
	if job.Status() != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", job.Status())
	}

	// No new polls once cancelled.
	polls := svc.pollCount()
	time.Sleep(50 * time.Millisecond)
	if got := svc.pollCount(); got != polls {
		t.Fatalf("polls kept running after cancel: %d -> %d", polls, got)
	}
}

func TestProgressCyclerStopsWithJob(t *testing.T) {
	svc := &fakeVideoService{script: []pollStep{
		pending(),
		pending(),
		{status: genservice.VideoJobStatus{Done: true, Result: &genservice.VideoResult{URI: "files/v1"}}},
	}}
	p := New(svc,
		WithPollInterval(10*time.Millisecond),
		WithProgressInterval(2*time.Millisecond),
		WithProgressMessages([]string{"first", "second"}),
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	var msgs []string
	for msg := range job.Progress() {
		msgs = append(msgs, msg)
	}
	// Progress closed, so the job must already be terminal.
	select {
	case <-job.Done():
	default:
		t.Fatal("progress closed before job was terminal")
	}
	if len(msgs) == 0 {
		t.Fatal("no progress messages seen")
	}
	if msgs[0] != "first" {
		t.Fatalf("first message = %q, want %q", msgs[0], "first")
	}
}

func TestSubmitRejectionStartsNothing(t *testing.T) {
	svc := &fakeVideoService{
		submitErr: core.NewSubmissionError(core.CodeInvalidCredential, "API key not valid"),
	}
	p := newTestPoller(svc)

	job, err := p.Submit(context.Background(), genservice.VideoJobRequest{Prompt: "x"})
	if job != nil {
		t.Fatal("expected no job on rejected submission")
	}
	if !core.HasCode(err, core.CodeInvalidCredential) {
		t.Fatalf("err = %v, want invalid_credential submission error", err)
	}

	time.Sleep(30 * time.Millisecond)
	if got := svc.pollCount(); got != 0 {
		t.Fatalf("polls = %d, want 0", got)
	}
}
