package humanize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/metrics"
)

// Settings is the fixed part of every submission plus the polling policy.
type Settings struct {
	Strength     string
	Model        string
	MinLength    int
	PollInterval time.Duration
	MaxPolls     int
}

// DefaultSettings mirrors the service's recommended parameters.
func DefaultSettings() Settings {
	return Settings{
		Strength:     "More Human",
		Model:        "v11",
		MinLength:    50,
		PollInterval: 5 * time.Second,
		MaxPolls:     120,
	}
}

// Error codes exposed on failed jobs.
const (
	CodeUpstreamQuota = "UPSTREAM_QUOTA"
	CodeSubmitFailed  = "SUBMIT_FAILED"
	CodePollFailed    = "POLL_FAILED"
	CodePollTimeout   = "POLL_TIMEOUT"
	CodeCancelled     = "CANCELLED"
)

// Workflow drives one submission from Idle to Completed or Failed.
// An instance is single use.
type Workflow struct {
	api      API
	settings Settings
	log      logger.Logger
	onChange func(Job)
	now      func() time.Time

	mu  sync.Mutex
	job Job
	err error
}

// NewWorkflow creates an idle workflow.
func NewWorkflow(api API, settings Settings, log logger.Logger) *Workflow {
	def := DefaultSettings()
	if settings.MinLength <= 0 {
		settings.MinLength = def.MinLength
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = def.PollInterval
	}
	if settings.MaxPolls <= 0 {
		settings.MaxPolls = def.MaxPolls
	}
	if settings.Strength == "" {
		settings.Strength = def.Strength
	}
	if settings.Model == "" {
		settings.Model = def.Model
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	now := time.Now()
	return &Workflow{
		api:      api,
		settings: settings,
		log:      log,
		now:      time.Now,
		job: Job{
			Status:    StatusIdle,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// OnChange registers an observer called after every state change.
// It must be set before Run.
func (w *Workflow) OnChange(fn func(Job)) {
	w.onChange = fn
}

// Snapshot returns a copy of the job as it is now.
func (w *Workflow) Snapshot() Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.job
}

// Err returns the failure cause once the workflow has failed.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Validate checks a request against the configured minimum length.
func (w *Workflow) Validate(req *Request) error {
	return req.Validate(w.settings.MinLength)
}

// Run submits req and polls until the output is ready, the poll budget is
// spent, or ctx is cancelled. A request that fails validation leaves the
// workflow Idle and makes no network call.
func (w *Workflow) Run(ctx context.Context, req Request) (string, error) {
	if err := w.Validate(&req); err != nil {
		return "", err
	}

	w.mu.Lock()
	if w.job.Status != StatusIdle {
		w.mu.Unlock()
		return "", ErrWorkflowUsed
	}
	w.job.Readability = req.Readability
	w.job.Purpose = req.Purpose
	w.mu.Unlock()

	// 1. Create the job
	w.transition(StatusSubmitting, nil)

	resp, err := w.api.Submit(ctx, SubmitRequest{
		Content:     req.Text,
		Readability: req.Readability,
		Purpose:     req.Purpose,
		Strength:    w.settings.Strength,
		Model:       w.settings.Model,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", w.fail(CodeCancelled, fmt.Errorf("humanize cancelled: %w", ctx.Err()))
		}
		code := CodeSubmitFailed
		if IsQuota(err) {
			code = CodeUpstreamQuota
		}
		return "", w.fail(code, fmt.Errorf("%w: %w", ErrSubmitFailed, err))
	}
	if resp.ID == "" {
		return "", w.fail(CodeSubmitFailed, fmt.Errorf("%w: service returned no job id", ErrSubmitFailed))
	}

	// 2. Poll until the output is filled in
	w.transition(StatusPolling, func(j *Job) { j.ExternalID = resp.ID })
	w.log.Debug("Humanize job submitted", map[string]interface{}{
		"external_id": resp.ID,
		"status":      resp.Status,
	})

	return w.poll(ctx, resp.ID)
}

func (w *Workflow) poll(ctx context.Context, externalID string) (string, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for polls := 1; ; polls++ {
		doc, err := w.api.Document(ctx, externalID)
		metrics.HumanizePolls.Inc()
		if err != nil {
			if ctx.Err() != nil {
				return "", w.fail(CodeCancelled, fmt.Errorf("humanize cancelled: %w", ctx.Err()))
			}
			return "", w.fail(CodePollFailed, fmt.Errorf("%w: %w", ErrPollFailed, err))
		}

		if doc.Output != "" {
			w.transition(StatusCompleted, func(j *Job) {
				j.Output = doc.Output
				j.Polls = polls
			})
			return doc.Output, nil
		}

		w.touch(func(j *Job) { j.Polls = polls })

		if polls >= w.settings.MaxPolls {
			return "", w.fail(CodePollTimeout, fmt.Errorf("%w: no output after %d polls", ErrPollTimeout, polls))
		}

		timer.Reset(w.settings.PollInterval)
		select {
		case <-ctx.Done():
			return "", w.fail(CodeCancelled, fmt.Errorf("humanize cancelled: %w", ctx.Err()))
		case <-timer.C:
		}
	}
}

func (w *Workflow) fail(code string, err error) error {
	w.transition(StatusFailed, func(j *Job) {
		j.Error = err.Error()
		j.ErrorCode = code
	})
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()

	fields := map[string]interface{}{"code": code, "error": err.Error()}
	if errors.Is(err, context.Canceled) {
		w.log.Info("Humanize job cancelled", fields)
	} else {
		w.log.Warn("Humanize job failed", fields)
	}
	return err
}

// transition applies a state change and notifies the observer.
// Invalid edges are dropped and logged.
func (w *Workflow) transition(to Status, mutate func(*Job)) {
	w.mu.Lock()
	from := w.job.Status
	if !isValidTransition(from, to) {
		w.mu.Unlock()
		w.log.Error("Invalid workflow transition", map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		})
		return
	}
	w.job.Status = to
	if mutate != nil {
		mutate(&w.job)
	}
	w.job.UpdatedAt = w.now()
	if to.Terminal() {
		finished := w.job.UpdatedAt
		w.job.FinishedAt = &finished
	}
	snapshot := w.job
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(snapshot)
	}
}

// touch updates bookkeeping fields without a state change.
func (w *Workflow) touch(mutate func(*Job)) {
	w.mu.Lock()
	mutate(&w.job)
	w.job.UpdatedAt = w.now()
	w.mu.Unlock()
}

// isValidTransition enforces the allowed workflow edges.
func isValidTransition(from, to Status) bool {
	switch from {
	case StatusIdle:
		return to == StatusSubmitting
	case StatusSubmitting:
		return to == StatusPolling || to == StatusFailed
	case StatusPolling:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
