package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRatings struct {
	calls atomic.Int32
}

func (r *countingRatings) RecomputeRating(model.TargetRef) (model.RatingAggregate, error) {
	return model.RatingAggregate{}, nil
}

func (r *countingRatings) GetRatingSummary(model.TargetRef) (*model.RatingSummary, error) {
	return nil, nil
}

func (r *countingRatings) ReconcileAll(ctx context.Context) (*service.ReconcileReport, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &service.ReconcileReport{Recomputed: 2}, nil
}

func TestRatingReconcileScheduler_DisabledWithoutSpec(t *testing.T) {
	ratings := &countingRatings{}
	s := NewRatingReconcileScheduler("", ratings)

	assert.False(t, s.Enabled())
	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, int32(0), ratings.calls.Load())
}

func TestRatingReconcileScheduler_InvalidSpec(t *testing.T) {
	s := NewRatingReconcileScheduler("not a cron", &countingRatings{})
	assert.Error(t, s.Start())
}

func TestRatingReconcileScheduler_RunAndStop(t *testing.T) {
	ratings := &countingRatings{}
	s := NewRatingReconcileScheduler("0 4 * * *", ratings)
	require.NoError(t, s.Start())

	s.run()
	assert.Equal(t, int32(1), ratings.calls.Load())

	s.Stop()
	// 중지 후에는 컨텍스트가 취소된 상태로 실행됨
	s.run()
	assert.Equal(t, int32(2), ratings.calls.Load())
}
