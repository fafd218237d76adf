package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReplyService interface {
	UpsertReply(ctx context.Context, reviewID, actorID uint, body string) (*model.ReviewReply, error)
}

type replyService struct {
	db       *gorm.DB
	targets  *TargetRegistry
	notifier ReviewNotifier
}

func NewReplyService(db *gorm.DB, targets *TargetRegistry, notifier ReviewNotifier) ReplyService {
	return &replyService{db: db, targets: targets, notifier: notifier}
}

// UpsertReply 업체 답글 작성/수정 (리뷰당 1개, 마지막 작성자로 덮어씀)
func (s *replyService) UpsertReply(ctx context.Context, reviewID, actorID uint, body string) (*model.ReviewReply, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("body", "답글 내용을 입력해주세요")
	}

	var review *model.Review
	var target *Target
	var reply *model.ReviewReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewRepo := repository.NewReviewRepository(tx)

		var err error
		review, err = reviewRepo.FindByID(reviewID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load review: %w", err)
		}

		target, err = s.targets.Resolve(tx, review.Target())
		if errors.Is(err, ErrTargetNotFound) {
			return fmt.Errorf("%w: %s", ErrInvalidTarget, review.Target())
		}
		if err != nil {
			return err
		}
		actor, err := loadActor(tx, actorID)
		if err != nil {
			return err
		}
		ok, err := s.targets.Authorize(tx, target, actor)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}

		reply, err = reviewRepo.UpsertReply(&model.ReviewReply{
			ReviewID: review.ID,
			AuthorID: &actorID,
			Body:     body,
		})
		if err != nil {
			return fmt.Errorf("failed to save reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Review reply saved", map[string]interface{}{
		"review_id": reviewID,
		"reply_id":  reply.ID,
		"actor_id":  actorID,
	})

	if s.notifier != nil && review.UserID != nil && *review.UserID != actorID {
		s.notifier.NotifyReviewReplied(ctx, review, reply, target)
	}
	return reply, nil
}
