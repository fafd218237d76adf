package service

import (
	"context"
	"fmt"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/metrics"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// ReconcileReport 전체 재계산 결과
type ReconcileReport struct {
	Recomputed int `json:"recomputed"`
	Failed     int `json:"failed"`
}

type RatingService interface {
	RecomputeRating(ref model.TargetRef) (model.RatingAggregate, error)
	GetRatingSummary(ref model.TargetRef) (*model.RatingSummary, error)
	ReconcileAll(ctx context.Context) (*ReconcileReport, error)
}

type ratingService struct {
	db      *gorm.DB
	targets *TargetRegistry
}

func NewRatingService(db *gorm.DB, targets *TargetRegistry) RatingService {
	return &ratingService{db: db, targets: targets}
}

// recomputeRatingTx 승인된 리뷰 기준으로 대상의 평점 캐시를 다시 계산합니다.
// 항상 전체 재집계하며 호출한 트랜잭션 안에서 실행됩니다.
func recomputeRatingTx(tx *gorm.DB, targets *TargetRegistry, ref model.TargetRef) (model.RatingAggregate, error) {
	handler, err := targets.Handler(ref.Kind)
	if err != nil {
		return model.RatingAggregate{}, err
	}

	agg, err := repository.NewReviewRepository(tx).Aggregate(ref)
	if err != nil {
		return model.RatingAggregate{}, fmt.Errorf("failed to aggregate ratings for %s: %w", ref, err)
	}
	if err := handler.ApplyRating(tx, ref.ID, agg); err != nil {
		return model.RatingAggregate{}, fmt.Errorf("failed to store rating for %s: %w", ref, err)
	}

	metrics.RatingRecomputations.WithLabelValues(string(ref.Kind)).Inc()
	logger.Debug("Rating recomputed", map[string]interface{}{
		"target":         ref.String(),
		"rating_average": agg.Average,
		"rating_count":   agg.Count,
	})
	return agg, nil
}

// RecomputeRating 단독 트랜잭션으로 평점 재계산
func (s *ratingService) RecomputeRating(ref model.TargetRef) (model.RatingAggregate, error) {
	var agg model.RatingAggregate
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		agg, err = recomputeRatingTx(tx, s.targets, ref)
		return err
	})
	return agg, err
}

// GetRatingSummary 공개 대상의 평점 캐시와 별점 분포 조회
func (s *ratingService) GetRatingSummary(ref model.TargetRef) (*model.RatingSummary, error) {
	target, err := s.targets.Resolve(s.db, ref)
	if err != nil {
		return nil, err
	}
	if !target.Visible {
		return nil, ErrTargetNotFound
	}

	breakdown, err := repository.NewReviewRepository(s.db).Breakdown(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating breakdown: %w", err)
	}

	return &model.RatingSummary{
		Target:    ref,
		Average:   target.Rating.Average,
		Count:     target.Rating.Count,
		Breakdown: breakdown,
	}, nil
}

// ReconcileAll 등록된 모든 대상의 평점을 재계산합니다 (스케줄러용).
// 개별 실패는 기록 후 계속 진행합니다.
func (s *ratingService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	for _, kind := range s.targets.Kinds() {
		handler, _ := s.targets.Handler(kind)
		ids, err := handler.ListIDs(s.db.WithContext(ctx))
		if err != nil {
			return report, fmt.Errorf("failed to list %s targets: %w", kind, err)
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			ref := model.TargetRef{Kind: kind, ID: id}
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				_, err := recomputeRatingTx(tx, s.targets, ref)
				return err
			})
			if err != nil {
				report.Failed++
				logger.Error("Failed to reconcile rating", err, map[string]interface{}{
					"target": ref.String(),
				})
				continue
			}
			report.Recomputed++
		}
	}

	logger.Info("Rating reconciliation finished", map[string]interface{}{
		"recomputed": report.Recomputed,
		"failed":     report.Failed,
	})
	return report, nil
}
