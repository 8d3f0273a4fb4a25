// Package activity records user activity entries produced by write tools.
// Recording is best effort: entries are queued, written by a background
// worker and optionally mirrored to MQTT. Failures are logged and counted but
// never reach the caller whose write produced the entry.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/metrics"
	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/pkg/models"
)

// Mirror receives every stored entry.
type Mirror interface {
	Publish(ctx context.Context, a models.UserActivity) error
	Close()
}

// Options configures a Recorder.
type Options struct {
	// QueueSize bounds the number of pending entries. Zero writes inline.
	QueueSize int
	// WriteTimeout bounds a single append, including mirroring. Defaults to 5s.
	WriteTimeout time.Duration
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Mirror       Mirror
}

// Recorder appends activity entries to the activity log.
type Recorder struct {
	repo    services.UserActivityRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	mirror  Mirror
	timeout time.Duration

	mu          sync.RWMutex
	closed      bool
	queue       chan models.UserActivity
	done        chan struct{}
	mirrorClose sync.Once
}

// NewRecorder creates a Recorder and, for a positive queue size, starts its
// worker. Close must be called to drain the queue.
func NewRecorder(repo services.UserActivityRepository, opts Options) *Recorder {
	r := &Recorder{
		repo:    repo,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		mirror:  opts.Mirror,
		timeout: opts.WriteTimeout,
		done:    make(chan struct{}),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.timeout <= 0 {
		r.timeout = 5 * time.Second
	}
	if opts.QueueSize > 0 {
		r.queue = make(chan models.UserActivity, opts.QueueSize)
		go r.run()
	} else {
		close(r.done)
	}
	return r
}

// Record queues a. When the queue is full the entry is dropped.
func (r *Recorder) Record(ctx context.Context, a models.UserActivity) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(a, "recorder closed")
		return
	}
	if r.queue == nil {
		r.write(ctx, a)
		return
	}
	select {
	case r.queue <- a:
		r.metrics.SetQueueDepth(len(r.queue))
	default:
		r.drop(a, "queue full")
	}
}

func (r *Recorder) drop(a models.UserActivity, reason string) {
	r.metrics.Activity("dropped")
	r.logger.Warn("activity dropped",
		zap.String("reason", reason),
		zap.String("user_id", a.UserID),
		zap.String("activity_type", a.ActivityType),
	)
}

func (r *Recorder) run() {
	defer close(r.done)
	for a := range r.queue {
		r.metrics.SetQueueDepth(len(r.queue))
		r.write(context.Background(), a)
	}
}

func (r *Recorder) write(ctx context.Context, a models.UserActivity) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.repo.Append(ctx, &a); err != nil {
		r.metrics.Activity("failed")
		r.logger.Error("record activity",
			zap.String("user_id", a.UserID),
			zap.String("activity_type", a.ActivityType),
			zap.Error(err),
		)
		return
	}
	r.metrics.Activity("stored")

	if r.mirror == nil {
		return
	}
	if err := r.mirror.Publish(ctx, a); err != nil {
		r.metrics.Activity("mirror_failed")
		r.logger.Warn("mirror activity",
			zap.String("user_id", a.UserID),
			zap.Error(err),
		)
	}
}

// Close stops accepting entries and waits until the queue is drained or ctx
// ends. The mirror is closed once the worker has finished.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		if r.queue != nil {
			close(r.queue)
		}
	}
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.mirror != nil {
		r.mirrorClose.Do(r.mirror.Close)
	}
	return nil
}
