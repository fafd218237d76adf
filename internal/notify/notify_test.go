package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTemplates map[string]*model.EmailTemplate

func (f fakeTemplates) FindActiveByKey(key string) (*model.EmailTemplate, error) {
	if t, ok := f[key]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeUsers map[uint]*model.User

func (f fakeUsers) FindByID(id uint) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type scriptedMailer struct {
	mu       sync.Mutex
	failures []error
	sent     []Message
	calls    int
}

func (m *scriptedMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var fastPolicy = RetryPolicy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func newTestWorker(mailer Mailer) *Worker {
	templates := fakeTemplates{
		model.TemplateReviewApproved: {
			Key:     model.TemplateReviewApproved,
			Subject: "Review for {{.TargetName}} approved",
			Body:    "Hi {{.AuthorName}}, see {{.Link}}{{.Missing}}",
		},
	}
	users := fakeUsers{
		1: {ID: 1, Email: "alice@example.com", Username: "alice", Name: "Alice", IsActive: true},
		2: {ID: 2, Email: "gone@example.com", Username: "gone", IsActive: false},
	}
	return NewWorker(NewMemoryQueue(10), templates, users, mailer, fastPolicy)
}

func approvedJob(recipient uint) EmailJob {
	return NewEmailJob(model.TemplateReviewApproved, recipient, map[string]string{
		"TargetName": "Acme",
		"AuthorName": "Alice",
		"Link":       "http://x/1",
	})
}

func TestWorker_Process_RendersAndSends(t *testing.T) {
	mailer := &scriptedMailer{}
	w := newTestWorker(mailer)

	require.NoError(t, w.Process(context.Background(), approvedJob(1)))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].ToAddress)
	assert.Equal(t, "Review for Acme approved", mailer.sent[0].Subject)
	assert.Equal(t, "Hi Alice, see http://x/1", mailer.sent[0].Body)
}

func TestWorker_Process_RetriesTransientFailures(t *testing.T) {
	mailer := &scriptedMailer{failures: []error{errors.New("timeout"), errors.New("timeout")}}
	w := newTestWorker(mailer)

	require.NoError(t, w.Process(context.Background(), approvedJob(1)))
	assert.Equal(t, 3, mailer.calls)
	assert.Len(t, mailer.sent, 1)
}

func TestWorker_Process_GivesUpAfterMaxRetries(t *testing.T) {
	transient := errors.New("smtp down")
	mailer := &scriptedMailer{failures: []error{transient, transient, transient, transient, transient}}
	w := newTestWorker(mailer)

	err := w.Process(context.Background(), approvedJob(1))
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 4, mailer.calls) // first attempt + 3 retries
}

func TestWorker_Process_PermanentFailureNotRetried(t *testing.T) {
	mailer := &scriptedMailer{failures: []error{backoff.Permanent(errors.New("bad address"))}}
	w := newTestWorker(mailer)

	assert.Error(t, w.Process(context.Background(), approvedJob(1)))
	assert.Equal(t, 1, mailer.calls)
}

func TestWorker_Process_Undeliverable(t *testing.T) {
	tests := []struct {
		name string
		job  EmailJob
	}{
		{"unknown template", NewEmailJob("nope", 1, nil)},
		{"unknown recipient", approvedJob(99)},
		{"inactive recipient", approvedJob(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &scriptedMailer{}
			w := newTestWorker(mailer)

			err := w.Process(context.Background(), tt.job)
			assert.ErrorIs(t, err, ErrUndeliverable)
			assert.Equal(t, 0, mailer.calls)
		})
	}
}

func TestWorker_RunDrainsQueue(t *testing.T) {
	mailer := &scriptedMailer{}
	queue := NewMemoryQueue(10)
	w := newTestWorker(mailer)
	w.queue = queue

	NewQueueDispatcher(queue).Dispatch(context.Background(), model.TemplateReviewApproved, 1, map[string]string{"TargetName": "Acme"})

	ctx, cancel := context.WithCancel(context.Background())
	wg := w.Start(ctx, 2)
	require.Eventually(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(mailer.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()
}

func TestMemoryQueue_Full(t *testing.T) {
	q := NewMemoryQueue(1)
	q.SetPushWait(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, approvedJob(1)))
	assert.ErrorIs(t, q.Push(ctx, approvedJob(1)), ErrQueueFull)

	// Dispatch swallows the error
	NewQueueDispatcher(q).Dispatch(ctx, model.TemplateReviewApproved, 1, nil)
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueue_PushWaitsForFreeSlot(t *testing.T) {
	q := NewMemoryQueue(1)
	q.SetPushWait(time.Second)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, approvedJob(1)))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = q.Pop(ctx)
	}()

	require.NoError(t, q.Push(ctx, approvedJob(2)))
	job, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), job.RecipientUserID)
}

func TestMemoryQueue_PushHonorsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	q.SetPushWait(time.Second)
	require.NoError(t, q.Push(context.Background(), approvedJob(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, approvedJob(2))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueue_PopHonorsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, classifyStatus(202, ""))

	transient := classifyStatus(503, "unavailable")
	require.Error(t, transient)
	var permanent *backoff.PermanentError
	assert.False(t, errors.As(transient, &permanent))

	assert.True(t, errors.As(classifyStatus(400, "bad request"), &permanent))
	assert.False(t, errors.As(classifyStatus(429, "slow down"), &permanent))
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("no-reply@x.test", "BizReview", Message{
		ToAddress: "a@x.test",
		Subject:   "리뷰가 게시되었습니다",
		Body:      "hello",
	}))
	assert.Contains(t, raw, "To: a@x.test\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, _, err := Render(&model.EmailTemplate{Key: "broken", Subject: "{{.Oops", Body: ""}, nil)
	assert.Error(t, err)
}
