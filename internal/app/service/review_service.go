package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/metrics"
	"github.com/ikkim/bizreview-backend/internal/storage"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/ikkim/bizreview-backend/pkg/pagination"
	"gorm.io/gorm"
)

// SubmitReviewInput 리뷰 작성 요청
type SubmitReviewInput struct {
	Target    model.TargetRef
	UserID    uint
	Rating    int
	Title     string
	Body      string
	IPAddress string
	UserAgent string
}

// EditReviewInput 리뷰 수정 요청 (삭제할 미디어 ID 포함)
type EditReviewInput struct {
	Rating         int
	Title          string
	Body           string
	RemoveMediaIDs []uint
}

// ReviewListQuery 대시보드 리뷰 목록 조건
type ReviewListQuery struct {
	Status   *model.ModerationStatus
	Search   string
	Page     int
	PageSize int
}

// EventPublisher 대상 토픽으로 실시간 이벤트 발행 (websocket.Hub)
type EventPublisher interface {
	PublishToTopic(topic string, message interface{}) error
}

type ReviewService interface {
	SubmitReview(ctx context.Context, input SubmitReviewInput) (*model.Review, error)
	EditReview(ctx context.Context, reviewID, actorID uint, input EditReviewInput) (*model.Review, error)
	DeleteReview(ctx context.Context, reviewID, actorID uint) error
	GetMyReview(ref model.TargetRef, userID uint) (*model.Review, error)
	ListPublicReviews(ref model.TargetRef, page, pageSize int) (*pagination.Result[model.Review], error)
	ListDashboardReviews(ref model.TargetRef, actorID uint, query ReviewListQuery) (*pagination.Result[model.Review], error)
	ListUserReviews(userID uint, page, pageSize int) (*pagination.Result[model.Review], error)
	ExportDashboardReviews(ref model.TargetRef, actorID uint, query ReviewListQuery, w io.Writer) (int, error)
}

type reviewService struct {
	db        *gorm.DB
	targets   *TargetRegistry
	files     storage.FileStorage
	publisher EventPublisher
}

func NewReviewService(db *gorm.DB, targets *TargetRegistry, files storage.FileStorage, publisher EventPublisher) ReviewService {
	return &reviewService{
		db:        db,
		targets:   targets,
		files:     files,
		publisher: publisher,
	}
}

func validateReviewContent(rating int, title, body string) error {
	if rating < model.MinRating || rating > model.MaxRating {
		return invalid("rating", fmt.Sprintf("평점은 %d~%d 사이여야 합니다", model.MinRating, model.MaxRating))
	}
	if strings.TrimSpace(body) == "" {
		return invalid("body", "리뷰 내용을 입력해주세요")
	}
	if utf8.RuneCountInString(title) > model.MaxReviewTitleLen {
		return invalid("title", fmt.Sprintf("제목은 %d자 이하여야 합니다", model.MaxReviewTitleLen))
	}
	return nil
}

// SubmitReview 리뷰 작성 (검수 대기 상태로 생성, 평점 캐시는 변경하지 않음)
func (s *reviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*model.Review, error) {
	author, err := loadActor(s.db, input.UserID)
	if err != nil {
		return nil, err
	}
	if author == nil || !author.IsActive {
		return nil, ErrUnauthenticated
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)

	review := &model.Review{
		TargetKind:       input.Target.Kind,
		TargetID:         input.Target.ID,
		UserID:           &author.ID,
		AuthorName:       author.DisplayName(),
		AuthorEmail:      author.Email,
		Rating:           input.Rating,
		Title:            input.Title,
		Body:             input.Body,
		ModerationStatus: model.ModerationPending,
		IsVerified:       true,
		IPAddress:        input.IPAddress,
		UserAgent:        input.UserAgent,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.targets.Resolve(tx, input.Target)
		if err != nil {
			return err
		}
		if !target.Visible {
			return ErrTargetNotFound
		}
		if err := validateReviewContent(input.Rating, input.Title, input.Body); err != nil {
			return err
		}

		reviewRepo := repository.NewReviewRepository(tx)
		exists, err := reviewRepo.ExistsByUserAndTarget(author.ID, input.Target)
		if err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if exists {
			return ErrDuplicateReview
		}
		if err := reviewRepo.Create(review); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to create review: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrDuplicateReview) && !errors.Is(err, ErrTargetNotFound) {
			logger.Error("Failed to submit review", err, map[string]interface{}{
				"user_id": author.ID,
				"target":  input.Target.String(),
			})
		}
		return nil, err
	}

	metrics.ReviewsSubmitted.WithLabelValues(string(input.Target.Kind)).Inc()
	logger.Info("Review submitted", map[string]interface{}{
		"review_id": review.ID,
		"user_id":   author.ID,
		"target":    input.Target.String(),
		"rating":    review.Rating,
	})
	s.publish(input.Target, "review_submitted", review.ID)

	review.Media = []model.ReviewMedia{}
	return review, nil
}

// EditReview 작성자 본인만 수정 가능. 수정하면 다시 검수 대기 상태가 됩니다.
func (s *reviewService) EditReview(ctx context.Context, reviewID, actorID uint, input EditReviewInput) (*model.Review, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)
	if err := validateReviewContent(input.Rating, input.Title, input.Body); err != nil {
		return nil, err
	}

	var removed []model.ReviewMedia
	var review *model.Review
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
		if !review.IsOwnedBy(actorID) {
			return ErrForbidden
		}

		wasApproved := review.ModerationStatus == model.ModerationApproved
		review.Rating = input.Rating
		review.Title = input.Title
		review.Body = input.Body
		review.ModerationStatus = model.ModerationPending
		if err := reviewRepo.UpdateContent(review); err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}

		removed, err = reviewRepo.DeleteMediaScoped(review.ID, input.RemoveMediaIDs)
		if err != nil {
			return fmt.Errorf("failed to delete review media: %w", err)
		}

		// 승인 상태에서 내려오면 평점 캐시도 즉시 맞춥니다
		if wasApproved {
			if _, err := recomputeRatingTx(tx, s.targets, review.Target()); err != nil {
				return err
			}
		}

		review, err = reviewRepo.FindByID(review.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.removeFiles(ctx, mediaKeys(removed))
	logger.Info("Review edited", map[string]interface{}{
		"review_id":     review.ID,
		"user_id":       actorID,
		"removed_media": len(removed),
	})

	s.resolveMediaURLs(review)
	return review, nil
}

// DeleteReview 리뷰 하드 삭제 (대상 관리자, 스태프만 가능)
func (s *reviewService) DeleteReview(ctx context.Context, reviewID, actorID uint) error {
	var keys []string
	var target model.TargetRef
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewRepo := repository.NewReviewRepository(tx)

		review, err := reviewRepo.FindByID(reviewID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load review: %w", err)
		}
		target = review.Target()

		// 작성자 본인이라도 관리 권한이 없으면 삭제할 수 없습니다
		actor, err := loadActor(tx, actorID)
		if err != nil {
			return err
		}
		ok, err := s.targets.CanManage(tx, target, actor)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}

		keys = mediaKeys(review.Media)
		if err := reviewRepo.Delete(review.ID); err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}
		if review.ModerationStatus == model.ModerationApproved {
			if _, err := recomputeRatingTx(tx, s.targets, target); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFiles(ctx, keys)
	logger.Info("Review deleted", map[string]interface{}{
		"review_id": reviewID,
		"actor_id":  actorID,
		"target":    target.String(),
	})
	return nil
}

// GetMyReview 사용자가 대상에 남긴 리뷰 (상태 무관)
func (s *reviewService) GetMyReview(ref model.TargetRef, userID uint) (*model.Review, error) {
	if _, err := s.targets.Handler(ref.Kind); err != nil {
		return nil, err
	}
	review, err := repository.NewReviewRepository(s.db).FindByUserAndTarget(userID, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	s.resolveMediaURLs(review)
	return review, nil
}

// ListPublicReviews 승인된 리뷰만 최신순으로 조회
func (s *reviewService) ListPublicReviews(ref model.TargetRef, page, pageSize int) (*pagination.Result[model.Review], error) {
	target, err := s.targets.Resolve(s.db, ref)
	if err != nil {
		return nil, err
	}
	if !target.Visible {
		return nil, ErrTargetNotFound
	}

	approved := model.ModerationApproved
	params := pagination.New(page, pageSize)
	reviews, total, err := repository.NewReviewRepository(s.db).ListByTarget(ref, repository.ReviewFilter{Status: &approved}, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return s.page(reviews, total, params), nil
}

// ListDashboardReviews 관리자용 리뷰 목록 (상태 필터, 검색)
func (s *reviewService) ListDashboardReviews(ref model.TargetRef, actorID uint, query ReviewListQuery) (*pagination.Result[model.Review], error) {
	if err := s.authorizeDashboard(ref, actorID); err != nil {
		return nil, err
	}

	params := pagination.New(query.Page, query.PageSize)
	filter := repository.ReviewFilter{Status: query.Status, Search: query.Search}
	reviews, total, err := repository.NewReviewRepository(s.db).ListByTarget(ref, filter, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return s.page(reviews, total, params), nil
}

// ListUserReviews 내가 쓴 리뷰 목록
func (s *reviewService) ListUserReviews(userID uint, page, pageSize int) (*pagination.Result[model.Review], error) {
	params := pagination.New(page, pageSize)
	reviews, total, err := repository.NewReviewRepository(s.db).ListByUser(userID, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}
	return s.page(reviews, total, params), nil
}

func (s *reviewService) authorizeDashboard(ref model.TargetRef, actorID uint) error {
	target, err := s.targets.Resolve(s.db, ref)
	if err != nil {
		return err
	}
	actor, err := loadActor(s.db, actorID)
	if err != nil {
		return err
	}
	ok, err := s.targets.Authorize(s.db, target, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *reviewService) page(reviews []model.Review, total int64, params pagination.Params) *pagination.Result[model.Review] {
	for i := range reviews {
		s.resolveMediaURLs(&reviews[i])
	}
	result := pagination.NewResult(reviews, total, params)
	return &result
}

func (s *reviewService) resolveMediaURLs(review *model.Review) {
	resolveMediaURLs(s.files, review)
}

func (s *reviewService) removeFiles(ctx context.Context, keys []string) {
	removeStoredFiles(ctx, s.files, keys)
}

func (s *reviewService) publish(ref model.TargetRef, event string, reviewID uint) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishToTopic(ref.String(), map[string]interface{}{
		"type":      event,
		"target":    ref,
		"review_id": reviewID,
	})
}

// purgeTargetReviews 대상 삭제 시 리뷰를 모두 지우고 저장된 파일 키를 반환합니다
func purgeTargetReviews(tx *gorm.DB, ref model.TargetRef) ([]string, int64, error) {
	reviewRepo := repository.NewReviewRepository(tx)
	keys, err := reviewRepo.MediaKeysByTarget(ref)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to collect media keys: %w", err)
	}
	deleted, err := reviewRepo.DeleteByTarget(ref)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to delete reviews: %w", err)
	}
	return keys, deleted, nil
}

func resolveMediaURLs(files storage.FileStorage, review *model.Review) {
	if review.Media == nil {
		review.Media = []model.ReviewMedia{}
	}
	if files == nil {
		return
	}
	for i := range review.Media {
		review.Media[i].URL = files.URL(review.Media[i].FileKey)
	}
}

func mediaKeys(media []model.ReviewMedia) []string {
	keys := make([]string, 0, len(media))
	for _, m := range media {
		keys = append(keys, m.FileKey)
	}
	return keys
}

// removeStoredFiles 커밋 후 파일 삭제 (실패는 기록만)
func removeStoredFiles(ctx context.Context, files storage.FileStorage, keys []string) {
	if files == nil {
		return
	}
	for _, key := range keys {
		if err := files.Delete(ctx, key); err != nil {
			logger.Warn("Failed to delete stored file", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}
