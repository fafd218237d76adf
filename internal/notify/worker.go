package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/metrics"
	"github.com/ikkim/bizreview-backend/pkg/logger"
)

// TemplateStore loads active email templates by key.
type TemplateStore interface {
	FindActiveByKey(key string) (*model.EmailTemplate, error)
}

// RecipientStore loads the user an email is addressed to.
type RecipientStore interface {
	FindByID(id uint) (*model.User, error)
}

// RetryPolicy bounds delivery retries with exponential backoff.
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}
	b.MaxElapsedTime = 0 // bounded by MaxRetries instead
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Worker drains the queue and delivers emails, retrying transient failures.
type Worker struct {
	queue     Queue
	templates TemplateStore
	users     RecipientStore
	mailer    Mailer
	policy    RetryPolicy
}

func NewWorker(queue Queue, templates TemplateStore, users RecipientStore, mailer Mailer, policy RetryPolicy) *Worker {
	return &Worker{
		queue:     queue,
		templates: templates,
		users:     users,
		mailer:    mailer,
		policy:    policy,
	}
}

// Start launches n consumer goroutines; the returned WaitGroup finishes after ctx is done.
func (w *Worker) Start(ctx context.Context, n int) *sync.WaitGroup {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.Run(ctx, id)
		}(i)
	}
	logger.Info("Notification workers started", map[string]interface{}{
		"workers": n,
	})
	return &wg
}

// Run consumes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context, id int) {
	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to pop email job", err, map[string]interface{}{
				"worker": id,
			})
			// Keeps a broken backend from spinning
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		_ = w.Process(ctx, *job)
	}
}

// Process delivers a single job. The returned error is for callers that need it (tests);
// Run only logs.
func (w *Worker) Process(ctx context.Context, job EmailJob) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDeliveryDuration.WithLabelValues(job.TemplateKey).Observe(time.Since(start).Seconds())
	}()

	fields := map[string]interface{}{
		"job_id":       job.ID,
		"template":     job.TemplateKey,
		"recipient_id": job.RecipientUserID,
	}

	msg, err := w.build(job)
	if err != nil {
		metrics.NotificationJobs.WithLabelValues(job.TemplateKey, metrics.StageDropped).Inc()
		logger.Warn("Email job dropped", merge(fields, map[string]interface{}{"reason": err.Error()}))
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		return w.mailer.Send(ctx, *msg)
	}
	onRetry := func(err error, wait time.Duration) {
		metrics.NotificationJobs.WithLabelValues(job.TemplateKey, metrics.StageRetried).Inc()
		logger.Warn("Email delivery failed, retrying", merge(fields, map[string]interface{}{
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		}))
	}

	if err := backoff.RetryNotify(op, w.policy.backOff(ctx), onRetry); err != nil {
		metrics.NotificationJobs.WithLabelValues(job.TemplateKey, metrics.StageFailed).Inc()
		logger.Error("Email delivery failed", err, merge(fields, map[string]interface{}{
			"attempts": attempt,
		}))
		return err
	}

	metrics.NotificationJobs.WithLabelValues(job.TemplateKey, metrics.StageSent).Inc()
	logger.Info("Email delivered", merge(fields, map[string]interface{}{
		"attempts": attempt,
	}))
	return nil
}

// ErrUndeliverable marks jobs that can never succeed (missing template or recipient).
var ErrUndeliverable = errors.New("email job is undeliverable")

func (w *Worker) build(job EmailJob) (*Message, error) {
	tmpl, err := w.templates.FindActiveByKey(job.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: template %q: %v", ErrUndeliverable, job.TemplateKey, err)
	}
	user, err := w.users.FindByID(job.RecipientUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %d: %v", ErrUndeliverable, job.RecipientUserID, err)
	}
	if user.Email == "" || !user.IsActive {
		return nil, fmt.Errorf("%w: recipient %d has no active address", ErrUndeliverable, job.RecipientUserID)
	}

	subject, body, err := Render(tmpl, job.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndeliverable, err)
	}
	return &Message{
		ToAddress: user.Email,
		ToName:    user.DisplayName(),
		Subject:   subject,
		Body:      body,
	}, nil
}

func merge(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
