package notify

import (
	"time"

	"github.com/google/uuid"
)

// EmailJob is one queued templated email to a user.
type EmailJob struct {
	ID              string            `json:"id"`
	TemplateKey     string            `json:"template_key"`
	RecipientUserID uint              `json:"recipient_user_id"`
	Params          map[string]string `json:"params"`
	EnqueuedAt      time.Time         `json:"enqueued_at"`
}

// NewEmailJob stamps a job with an id and enqueue time.
func NewEmailJob(templateKey string, recipientUserID uint, params map[string]string) EmailJob {
	if params == nil {
		params = map[string]string{}
	}
	return EmailJob{
		ID:              uuid.New().String(),
		TemplateKey:     templateKey,
		RecipientUserID: recipientUserID,
		Params:          params,
		EnqueuedAt:      time.Now(),
	}
}
