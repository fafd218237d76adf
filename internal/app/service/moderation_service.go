package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/metrics"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// ReviewNotifier 검수/답글 결과를 리뷰 작성자에게 알림 (커밋 이후 호출, 실패는 반환하지 않음)
type ReviewNotifier interface {
	NotifyReviewModerated(ctx context.Context, review *model.Review, target *Target)
	NotifyReviewReplied(ctx context.Context, review *model.Review, reply *model.ReviewReply, target *Target)
}

// ModerationResult 단건 검수 결과
type ModerationResult struct {
	Review  *model.Review          `json:"review"`
	Changed bool                   `json:"changed"`
	Rating  *model.RatingAggregate `json:"rating,omitempty"` // 상태가 바뀐 경우에만
}

// BulkModerationResult 일괄 검수 결과
type BulkModerationResult struct {
	Updated           []uint            `json:"updated"`
	Unchanged         []uint            `json:"unchanged"`
	NotFound          []uint            `json:"not_found"`
	UpdatedCount      int               `json:"updated_count"`
	UnchangedCount    int               `json:"unchanged_count"` // 이미 같은 상태였던 리뷰
	TargetsRecomputed []model.TargetRef `json:"targets_recomputed"`
}

type ModerationService interface {
	Moderate(ctx context.Context, reviewID uint, decision model.ModerationStatus, actorID uint) (*ModerationResult, error)
	ModerateBulk(ctx context.Context, reviewIDs []uint, decision model.ModerationStatus, actorID uint) (*BulkModerationResult, error)
}

type moderationService struct {
	db       *gorm.DB
	targets  *TargetRegistry
	notifier ReviewNotifier
}

func NewModerationService(db *gorm.DB, targets *TargetRegistry, notifier ReviewNotifier) ModerationService {
	return &moderationService{
		db:       db,
		targets:  targets,
		notifier: notifier,
	}
}

func validateDecision(decision model.ModerationStatus) error {
	if !decision.IsDecision() {
		return invalid("decision", "검수 결과는 APPROVED 또는 REJECTED 여야 합니다")
	}
	return nil
}

// resolveForModeration 검수 대상 조회 및 권한 확인
func (s *moderationService) resolveForModeration(tx *gorm.DB, ref model.TargetRef, actor *model.User) (*Target, error) {
	target, err := s.targets.Resolve(tx, ref)
	if errors.Is(err, ErrTargetNotFound) || errors.Is(err, ErrUnsupportedTargetKind) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, ref)
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.targets.Authorize(tx, target, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return target, nil
}

// Moderate 리뷰 검수. 같은 결정을 반복하면 아무 변화 없이 성공합니다.
func (s *moderationService) Moderate(ctx context.Context, reviewID uint, decision model.ModerationStatus, actorID uint) (*ModerationResult, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}

	result := &ModerationResult{}
	var target *Target
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewRepo := repository.NewReviewRepository(tx)

		review, err := reviewRepo.FindByID(reviewID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load review: %w", err)
		}

		actor, err := loadActor(tx, actorID)
		if err != nil {
			return err
		}
		target, err = s.resolveForModeration(tx, review.Target(), actor)
		if err != nil {
			return err
		}

		changed, err := reviewRepo.SetStatusIfChanged(review.ID, decision)
		if err != nil {
			return fmt.Errorf("failed to update moderation status: %w", err)
		}
		result.Changed = changed
		review.ModerationStatus = decision
		result.Review = review

		if changed {
			// updated_at이 바뀌었으므로 다시 읽어 반환합니다
			if result.Review, err = reviewRepo.FindByID(review.ID); err != nil {
				return fmt.Errorf("failed to reload review: %w", err)
			}
			agg, err := recomputeRatingTx(tx, s.targets, review.Target())
			if err != nil {
				return err
			}
			result.Rating = &agg
		}
		return nil
	})
	if err != nil {
		metrics.ModerationDecisions.WithLabelValues(string(decision), outcomeLabel(err)).Inc()
		logger.Warn("Review moderation rejected", map[string]interface{}{
			"review_id": reviewID,
			"actor_id":  actorID,
			"decision":  decision,
			"error":     err.Error(),
		})
		return nil, err
	}

	if !result.Changed {
		metrics.ModerationDecisions.WithLabelValues(string(decision), "unchanged").Inc()
		logger.Debug("Moderation decision unchanged", map[string]interface{}{
			"review_id": reviewID,
			"decision":  decision,
		})
		return result, nil
	}

	metrics.ModerationDecisions.WithLabelValues(string(decision), "changed").Inc()
	logger.Info("Review moderated", map[string]interface{}{
		"review_id":      reviewID,
		"actor_id":       actorID,
		"decision":       decision,
		"target":         target.Ref.String(),
		"rating_average": result.Rating.Average,
		"rating_count":   result.Rating.Count,
	})
	s.notify(ctx, result.Review, target)
	return result, nil
}

// ModerateBulk 여러 리뷰를 한 번에 검수합니다.
// 권한이 없는 리뷰가 하나라도 있으면 아무것도 변경하지 않습니다.
func (s *moderationService) ModerateBulk(ctx context.Context, reviewIDs []uint, decision model.ModerationStatus, actorID uint) (*BulkModerationResult, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}
	ids := dedupeIDs(reviewIDs)
	if len(ids) == 0 {
		return nil, invalid("review_ids", "검수할 리뷰를 선택해주세요")
	}

	result := &BulkModerationResult{
		Updated:           []uint{},
		Unchanged:         []uint{},
		NotFound:          []uint{},
		TargetsRecomputed: []model.TargetRef{},
	}
	var changedReviews []model.Review
	targetsByRef := make(map[model.TargetRef]*Target)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewRepo := repository.NewReviewRepository(tx)

		reviews, err := reviewRepo.FindByIDs(ids)
		if err != nil {
			return fmt.Errorf("failed to load reviews: %w", err)
		}
		byID := make(map[uint]model.Review, len(reviews))
		for _, r := range reviews {
			byID[r.ID] = r
		}

		actor, err := loadActor(tx, actorID)
		if err != nil {
			return err
		}

		// 쓰기 전에 전체 권한 확인 (대상별 1회)
		for _, id := range ids {
			review, ok := byID[id]
			if !ok {
				result.NotFound = append(result.NotFound, id)
				continue
			}
			ref := review.Target()
			if _, seen := targetsByRef[ref]; seen {
				continue
			}
			target, err := s.resolveForModeration(tx, ref, actor)
			if err != nil {
				return err
			}
			targetsByRef[ref] = target
		}

		var dirty []model.TargetRef
		dirtySeen := make(map[model.TargetRef]bool)
		for _, id := range ids {
			review, ok := byID[id]
			if !ok {
				continue
			}
			changed, err := reviewRepo.SetStatusIfChanged(id, decision)
			if err != nil {
				return fmt.Errorf("failed to update moderation status of review %d: %w", id, err)
			}
			if !changed {
				result.Unchanged = append(result.Unchanged, id)
				continue
			}
			result.Updated = append(result.Updated, id)
			review.ModerationStatus = decision
			changedReviews = append(changedReviews, review)

			ref := review.Target()
			if !dirtySeen[ref] {
				dirtySeen[ref] = true
				dirty = append(dirty, ref)
			}
		}

		for _, ref := range dirty {
			if _, err := recomputeRatingTx(tx, s.targets, ref); err != nil {
				return err
			}
			result.TargetsRecomputed = append(result.TargetsRecomputed, ref)
		}
		result.UpdatedCount = len(result.Updated)
		result.UnchangedCount = len(result.Unchanged)
		return nil
	})
	if err != nil {
		metrics.ModerationDecisions.WithLabelValues(string(decision), outcomeLabel(err)).Add(float64(len(ids)))
		logger.Warn("Bulk moderation rejected", map[string]interface{}{
			"actor_id": actorID,
			"decision": decision,
			"count":    len(ids),
			"error":    err.Error(),
		})
		return nil, err
	}

	metrics.ModerationDecisions.WithLabelValues(string(decision), "changed").Add(float64(len(result.Updated)))
	metrics.ModerationDecisions.WithLabelValues(string(decision), "unchanged").Add(float64(len(result.Unchanged)))
	logger.Info("Bulk moderation completed", map[string]interface{}{
		"actor_id":           actorID,
		"decision":           decision,
		"updated":            result.UpdatedCount,
		"unchanged":          result.UnchangedCount,
		"not_found":          len(result.NotFound),
		"targets_recomputed": len(result.TargetsRecomputed),
	})

	for i := range changedReviews {
		s.notify(ctx, &changedReviews[i], targetsByRef[changedReviews[i].Target()])
	}
	return result, nil
}

func (s *moderationService) notify(ctx context.Context, review *model.Review, target *Target) {
	if s.notifier == nil || review.UserID == nil {
		return
	}
	s.notifier.NotifyReviewModerated(ctx, review, target)
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrReviewNotFound):
		return "not_found"
	default:
		return "error"
	}
}
