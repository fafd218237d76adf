package scheduler

import (
	"context"

	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// RatingReconcileScheduler 평점 집계 정기 재계산 스케줄러
type RatingReconcileScheduler struct {
	cron    *cron.Cron
	spec    string
	ratings service.RatingService

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRatingReconcileScheduler 스케줄러 생성 (spec이 비어 있으면 비활성화)
func NewRatingReconcileScheduler(spec string, ratings service.RatingService) *RatingReconcileScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RatingReconcileScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:    spec,
		ratings: ratings,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enabled cron 표현식이 설정되었는지
func (s *RatingReconcileScheduler) Enabled() bool {
	return s.spec != ""
}

// Start 스케줄러 시작
func (s *RatingReconcileScheduler) Start() error {
	if !s.Enabled() {
		logger.Info("Rating reconcile scheduler disabled", nil)
		return nil
	}

	// 예: "0 4 * * *" = 매일 4시 0분
	_, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		logger.Error("Failed to add cron job for rating reconcile", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Rating reconcile scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

func (s *RatingReconcileScheduler) run() {
	logger.Info("Starting scheduled rating reconcile", nil)

	report, err := s.ratings.ReconcileAll(s.ctx)
	if err != nil {
		logger.Error("Rating reconcile aborted", err)
		return
	}

	logger.Info("Scheduled rating reconcile finished", map[string]interface{}{
		"recomputed": report.Recomputed,
		"failed":     report.Failed,
	})
}

// Stop 스케줄러 중지 (진행 중인 재계산은 취소)
func (s *RatingReconcileScheduler) Stop() {
	logger.Info("Stopping rating reconcile scheduler...", nil)
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("Rating reconcile scheduler stopped", nil)
}
