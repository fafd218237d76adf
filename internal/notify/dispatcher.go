package notify

import (
	"context"

	"github.com/ikkim/bizreview-backend/internal/metrics"
	"github.com/ikkim/bizreview-backend/pkg/logger"
)

// Dispatcher hands off templated emails for out-of-band delivery.
// Dispatch never blocks on delivery and never reports failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, templateKey string, recipientUserID uint, params map[string]string)
}

type QueueDispatcher struct {
	queue Queue
}

func NewQueueDispatcher(queue Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, templateKey string, recipientUserID uint, params map[string]string) {
	job := NewEmailJob(templateKey, recipientUserID, params)
	if err := d.queue.Push(ctx, job); err != nil {
		metrics.NotificationJobs.WithLabelValues(templateKey, metrics.StageEnqueueFailed).Inc()
		logger.Error("Failed to enqueue email job", err, map[string]interface{}{
			"job_id":       job.ID,
			"template":     templateKey,
			"recipient_id": recipientUserID,
		})
		return
	}

	metrics.NotificationJobs.WithLabelValues(templateKey, metrics.StageEnqueued).Inc()
	logger.Debug("Email job enqueued", map[string]interface{}{
		"job_id":       job.ID,
		"template":     templateKey,
		"recipient_id": recipientUserID,
	})
}
