package humanize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/metrics"
	"github.com/google/uuid"
)

var (
	// ErrJobActive is returned when a user submits while a job is still running.
	ErrJobActive = errors.New("a humanize job is already running")
	// ErrJobNotFound is returned for unknown ids and for jobs owned by someone else.
	ErrJobNotFound = errors.New("humanize job not found")
	// ErrJobFinished is returned when cancelling a resolved job.
	ErrJobFinished = errors.New("humanize job already finished")
	// ErrShuttingDown is returned by Start after Shutdown.
	ErrShuttingDown = errors.New("tracker is shutting down")
)

// Credits is the part of the ledger the tracker charges against.
type Credits interface {
	TryConsume(ctx context.Context, userID, amount int64) (bool, error)
	Refund(ctx context.Context, userID, amount int64, note string) error
}

// Notifier is told when a job resolves. It may be nil.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message, link string) error
}

type entry struct {
	id       string
	userID   int64
	words    int64
	workflow *Workflow
	cancel   context.CancelFunc
	done     chan struct{}
}

// Tracker runs workflows in the background and keeps their results until pruned.
type Tracker struct {
	api      API
	settings Settings
	credits  Credits
	notifier Notifier
	log      logger.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*entry
	active   map[int64]string
	closed   bool
	reserved map[int64]bool
}

// NewTracker creates a tracker. notifier may be nil.
func NewTracker(api API, settings Settings, credits Credits, notifier Notifier, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Tracker{
		api:      api,
		settings: settings,
		credits:  credits,
		notifier: notifier,
		log:      log,
		baseCtx:  ctx,
		stop:     stop,
		jobs:     make(map[string]*entry),
		active:   make(map[int64]string),
		reserved: make(map[int64]bool),
	}
}

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int64 {
	return int64(len(strings.Fields(text)))
}

// Start validates req, charges the user's credits and launches the workflow.
// Validation and credit failures return before any upstream call.
func (t *Tracker) Start(ctx context.Context, userID int64, req Request) (Job, error) {
	wf := NewWorkflow(t.api, t.settings, t.log.WithFields(map[string]interface{}{"user_id": userID}))

	// 1. Validate locally
	if err := wf.Validate(&req); err != nil {
		return Job{}, err
	}

	// 2. Reserve the user's slot
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Job{}, ErrShuttingDown
	}
	if _, busy := t.active[userID]; busy || t.reserved[userID] {
		t.mu.Unlock()
		return Job{}, ErrJobActive
	}
	t.reserved[userID] = true
	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		delete(t.reserved, userID)
		t.mu.Unlock()
	}

	// 3. Charge credits before anything leaves the process
	words := CountWords(req.Text)
	if ok, err := t.credits.TryConsume(ctx, userID, words); !ok {
		release()
		if err == nil {
			err = fmt.Errorf("credit consumption denied")
		}
		return Job{}, err
	}

	// 4. Register and launch
	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(t.baseCtx)
	e := &entry{
		id:       id,
		userID:   userID,
		words:    words,
		workflow: wf,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	wf.job.ID = id
	wf.job.UserID = userID
	wf.job.Words = words
	wf.job.Readability = req.Readability
	wf.job.Purpose = req.Purpose

	t.mu.Lock()
	delete(t.reserved, userID)
	if t.closed {
		t.mu.Unlock()
		cancel()
		t.refund(e, "service shutting down")
		return Job{}, ErrShuttingDown
	}
	t.jobs[id] = e
	t.active[userID] = id
	t.wg.Add(1)
	t.mu.Unlock()

	metrics.HumanizeJobsStarted.Inc()
	metrics.HumanizeJobsActive.Inc()
	t.log.Info("Humanize job started", map[string]interface{}{
		"job_id":  id,
		"user_id": userID,
		"words":   words,
	})

	go t.run(jobCtx, e, req)

	return wf.Snapshot(), nil
}

func (t *Tracker) run(ctx context.Context, e *entry, req Request) {
	defer t.wg.Done()
	defer close(e.done)
	defer e.cancel()

	started := time.Now()
	output, err := e.workflow.Run(ctx, req)

	metrics.HumanizeJobsActive.Dec()
	metrics.HumanizeJobDuration.Observe(time.Since(started).Seconds())

	t.mu.Lock()
	if t.active[e.userID] == e.id {
		delete(t.active, e.userID)
	}
	t.mu.Unlock()

	if err != nil {
		metrics.HumanizeJobsFinished.WithLabelValues(string(StatusFailed), e.workflow.Snapshot().ErrorCode).Inc()
		t.refund(e, "humanize job failed")
		t.notify(e.userID, "Failed to humanize your text. Your words have been refunded.", e.id)
		return
	}

	metrics.HumanizeJobsFinished.WithLabelValues(string(StatusCompleted), "none").Inc()
	t.log.Info("Humanize job completed", map[string]interface{}{
		"job_id":        e.id,
		"user_id":       e.userID,
		"output_length": len(output),
	})
	t.notify(e.userID, "Text has been humanized successfully!", e.id)
}

func (t *Tracker) refund(e *entry, note string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.credits.Refund(ctx, e.userID, e.words, note); err != nil {
		t.log.Error("Failed to refund words", map[string]interface{}{
			"job_id":  e.id,
			"user_id": e.userID,
			"words":   e.words,
			"error":   err.Error(),
		})
	}
}

func (t *Tracker) notify(userID int64, message, jobID string) {
	if t.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.notifier.Notify(ctx, userID, message, "/v1/humanize/"+jobID); err != nil {
		t.log.Warn("Failed to record notification", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
}

// Get returns the job if userID owns it.
func (t *Tracker) Get(jobID string, userID int64) (Job, error) {
	t.mu.Lock()
	e, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok || e.userID != userID {
		return Job{}, ErrJobNotFound
	}
	return e.workflow.Snapshot(), nil
}

// Active returns the user's running job, if any.
func (t *Tracker) Active(userID int64) (Job, bool) {
	t.mu.Lock()
	id, ok := t.active[userID]
	var e *entry
	if ok {
		e = t.jobs[id]
	}
	t.mu.Unlock()
	if e == nil {
		return Job{}, false
	}
	return e.workflow.Snapshot(), true
}

// Cancel stops a running job and waits for it to resolve.
func (t *Tracker) Cancel(ctx context.Context, jobID string, userID int64) (Job, error) {
	t.mu.Lock()
	e, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok || e.userID != userID {
		return Job{}, ErrJobNotFound
	}
	if e.workflow.Snapshot().Status.Terminal() {
		return Job{}, ErrJobFinished
	}

	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	return e.workflow.Snapshot(), nil
}

// Prune drops resolved jobs that finished more than olderThan ago.
func (t *Tracker) Prune(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for id, e := range t.jobs {
		job := e.workflow.Snapshot()
		if !job.Status.Terminal() || job.FinishedAt == nil {
			continue
		}
		if job.FinishedAt.Before(cutoff) {
			delete(t.jobs, id)
			pruned++
		}
	}
	if pruned > 0 {
		t.log.Debug("Pruned humanize jobs", map[string]interface{}{"count": pruned})
	}
	return pruned
}

// Shutdown cancels every running job and waits for them to resolve.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.stop()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
