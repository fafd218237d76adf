package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationDecisions counts moderation requests by decision and whether the status changed.
	ModerationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizreview_moderation_decisions_total",
			Help: "Total number of review moderation decisions",
		},
		[]string{"decision", "result"},
	)

	// RatingRecomputations counts aggregate recomputations per target kind.
	RatingRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizreview_rating_recomputations_total",
			Help: "Total number of target rating recomputations",
		},
		[]string{"target_kind"},
	)

	// ReviewsSubmitted counts accepted review submissions per target kind.
	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizreview_reviews_submitted_total",
			Help: "Total number of reviews submitted",
		},
		[]string{"target_kind"},
	)

	// NotificationJobs counts email jobs by lifecycle stage.
	NotificationJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizreview_notification_jobs_total",
			Help: "Email notification jobs by stage (enqueued, enqueue_failed, sent, failed, dropped, retried)",
		},
		[]string{"template", "stage"},
	)

	// NotificationDeliveryDuration observes time spent delivering one job including retries.
	NotificationDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizreview_notification_delivery_duration_seconds",
			Help:    "Duration of email delivery including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"template"},
	)
)

const (
	StageEnqueued      = "enqueued"
	StageEnqueueFailed = "enqueue_failed"
	StageSent          = "sent"
	StageFailed        = "failed"
	StageDropped       = "dropped"
	StageRetried       = "retried"
)
