package repository

import (
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewFilter 대시보드 목록 필터
type ReviewFilter struct {
	Status *model.ModerationStatus
	Search string
}

type ReviewRepository interface {
	Create(review *model.Review) error
	FindByID(id uint) (*model.Review, error)
	FindByIDs(ids []uint) ([]model.Review, error)
	FindByUserAndTarget(userID uint, target model.TargetRef) (*model.Review, error)
	ExistsByUserAndTarget(userID uint, target model.TargetRef) (bool, error)
	ListByTarget(target model.TargetRef, filter ReviewFilter, offset, limit int) ([]model.Review, int64, error)
	ListByUser(userID uint, offset, limit int) ([]model.Review, int64, error)
	UpdateContent(review *model.Review) error
	SetStatusIfChanged(id uint, status model.ModerationStatus) (bool, error)
	Delete(id uint) error
	DeleteByTarget(target model.TargetRef) (int64, error)

	// 평점 집계
	Aggregate(target model.TargetRef) (model.RatingAggregate, error)
	Breakdown(target model.TargetRef) (map[int]int, error)

	// 미디어
	LockForUpdate(id uint) error
	CountMedia(reviewID uint) (int64, error)
	CreateMedia(media *model.ReviewMedia) error
	DeleteMediaScoped(reviewID uint, mediaIDs []uint) ([]model.ReviewMedia, error)
	MediaKeysByTarget(target model.TargetRef) ([]string, error)

	// 답글
	UpsertReply(reply *model.ReviewReply) (*model.ReviewReply, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create 리뷰 생성
func (r *reviewRepository) Create(review *model.Review) error {
	return r.db.Omit(clause.Associations).Create(review).Error
}

// FindByID ID로 리뷰 조회 (답글, 미디어 포함)
func (r *reviewRepository) FindByID(id uint) (*model.Review, error) {
	var review model.Review
	err := r.db.Preload("Reply").Preload("Media", orderMedia).First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByIDs 여러 리뷰 조회 (존재하는 것만 반환)
func (r *reviewRepository) FindByIDs(ids []uint) ([]model.Review, error) {
	var reviews []model.Review
	if len(ids) == 0 {
		return reviews, nil
	}
	err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

// FindByUserAndTarget 사용자가 대상에 남긴 리뷰 조회
func (r *reviewRepository) FindByUserAndTarget(userID uint, target model.TargetRef) (*model.Review, error) {
	var review model.Review
	err := r.db.Preload("Reply").Preload("Media", orderMedia).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, target.Kind, target.ID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ExistsByUserAndTarget(userID uint, target model.TargetRef) (bool, error) {
	var count int64
	err := r.db.Model(&model.Review{}).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, target.Kind, target.ID).
		Count(&count).Error
	return count > 0, err
}

// ListByTarget 대상별 리뷰 목록 조회 (최신순)
func (r *reviewRepository) ListByTarget(target model.TargetRef, filter ReviewFilter, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.Model(&model.Review{}).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID)

	// 상태 필터
	if filter.Status != nil {
		query = query.Where("moderation_status = ?", *filter.Status)
	}

	// 검색어 (제목, 본문)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)", like, like)
	}

	// 전체 개수
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Reply").Preload("Media", orderMedia).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// ListByUser 사용자별 리뷰 목록 조회
func (r *reviewRepository) ListByUser(userID uint, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.Model(&model.Review{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Reply").Preload("Media", orderMedia).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// UpdateContent 수정 가능한 필드와 검수 상태만 갱신
func (r *reviewRepository) UpdateContent(review *model.Review) error {
	return r.db.Model(review).
		Select("title", "body", "rating", "moderation_status").
		Updates(review).Error
}

// SetStatusIfChanged 현재 상태와 다를 때만 검수 상태를 변경합니다.
// 동시에 같은 결정이 들어와도 한 요청만 true를 받습니다.
func (r *reviewRepository) SetStatusIfChanged(id uint, status model.ModerationStatus) (bool, error) {
	result := r.db.Model(&model.Review{}).
		Where("id = ? AND moderation_status <> ?", id, status).
		Updates(map[string]interface{}{"moderation_status": status})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete 리뷰 하드 삭제 (답글, 미디어 포함)
func (r *reviewRepository) Delete(id uint) error {
	if err := r.db.Where("review_id = ?", id).Delete(&model.ReviewMedia{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("review_id = ?", id).Delete(&model.ReviewReply{}).Error; err != nil {
		return err
	}
	result := r.db.Delete(&model.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByTarget 대상에 달린 리뷰 전체 삭제
func (r *reviewRepository) DeleteByTarget(target model.TargetRef) (int64, error) {
	ids := r.db.Model(&model.Review{}).Select("id").
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID)
	if err := r.db.Where("review_id IN (?)", ids).Delete(&model.ReviewMedia{}).Error; err != nil {
		return 0, err
	}
	if err := r.db.Where("review_id IN (?)", ids).Delete(&model.ReviewReply{}).Error; err != nil {
		return 0, err
	}
	result := r.db.Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).Delete(&model.Review{})
	return result.RowsAffected, result.Error
}

type aggregateRow struct {
	Count int64
	Total int64
}

// Aggregate 승인된 리뷰의 평균(소수 둘째 자리 반올림)과 개수
func (r *reviewRepository) Aggregate(target model.TargetRef) (model.RatingAggregate, error) {
	var row aggregateRow
	err := r.db.Model(&model.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS total").
		Where("target_kind = ? AND target_id = ? AND moderation_status = ?", target.Kind, target.ID, model.ModerationApproved).
		Scan(&row).Error
	if err != nil {
		return model.RatingAggregate{}, err
	}
	return model.RatingAggregate{
		Average: RoundedAverage(row.Total, row.Count),
		Count:   int(row.Count),
	}, nil
}

// RoundedAverage total/count를 소수 둘째 자리에서 반올림 (정수 연산, half-up)
func RoundedAverage(total, count int64) float64 {
	if count <= 0 {
		return 0
	}
	cents := (total*200 + count) / (2 * count)
	return float64(cents) / 100
}

type breakdownRow struct {
	Rating int
	Count  int
}

// Breakdown 승인된 리뷰의 별점 분포
func (r *reviewRepository) Breakdown(target model.TargetRef) (map[int]int, error) {
	var rows []breakdownRow
	err := r.db.Model(&model.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("target_kind = ? AND target_id = ? AND moderation_status = ?", target.Kind, target.ID, model.ModerationApproved).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	breakdown := make(map[int]int, model.MaxRating)
	for star := model.MinRating; star <= model.MaxRating; star++ {
		breakdown[star] = 0
	}
	for _, row := range rows {
		breakdown[row.Rating] = row.Count
	}
	return breakdown, nil
}

// LockForUpdate 트랜잭션 안에서 리뷰 행 잠금 (no-op 업데이트로 행 락 획득)
func (r *reviewRepository) LockForUpdate(id uint) error {
	result := r.db.Exec("UPDATE reviews SET id = id WHERE id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reviewRepository) CountMedia(reviewID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ReviewMedia{}).Where("review_id = ?", reviewID).Count(&count).Error
	return count, err
}

func (r *reviewRepository) CreateMedia(media *model.ReviewMedia) error {
	return r.db.Create(media).Error
}

// DeleteMediaScoped 해당 리뷰에 속한 미디어만 삭제하고 삭제된 행을 반환합니다
func (r *reviewRepository) DeleteMediaScoped(reviewID uint, mediaIDs []uint) ([]model.ReviewMedia, error) {
	var media []model.ReviewMedia
	if len(mediaIDs) == 0 {
		return media, nil
	}
	if err := r.db.Where("review_id = ? AND id IN ?", reviewID, mediaIDs).Find(&media).Error; err != nil {
		return nil, err
	}
	if len(media) == 0 {
		return media, nil
	}

	ids := make([]uint, len(media))
	for i, m := range media {
		ids[i] = m.ID
	}
	if err := r.db.Where("review_id = ? AND id IN ?", reviewID, ids).Delete(&model.ReviewMedia{}).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// MediaKeysByTarget 대상에 달린 모든 리뷰 미디어의 파일 키
func (r *reviewRepository) MediaKeysByTarget(target model.TargetRef) ([]string, error) {
	var keys []string
	err := r.db.Model(&model.ReviewMedia{}).
		Joins("JOIN reviews ON reviews.id = review_media.review_id").
		Where("reviews.target_kind = ? AND reviews.target_id = ?", target.Kind, target.ID).
		Pluck("review_media.file_key", &keys).Error
	return keys, err
}

// UpsertReply 리뷰당 하나의 답글을 생성하거나 덮어씁니다
func (r *reviewRepository) UpsertReply(reply *model.ReviewReply) (*model.ReviewReply, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "author_id", "updated_at"}),
	}).Create(reply).Error
	if err != nil {
		return nil, err
	}

	var saved model.ReviewReply
	if err := r.db.Where("review_id = ?", reply.ReviewID).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func orderMedia(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
