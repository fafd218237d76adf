package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/storage"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// MediaUpload 업로드된 파일 정보
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type MediaService interface {
	AttachMedia(ctx context.Context, reviewID, uploaderID uint, upload MediaUpload) (*model.ReviewMedia, error)
}

type mediaService struct {
	db          *gorm.DB
	files       storage.FileStorage
	maxFileSize int64
}

func NewMediaService(db *gorm.DB, files storage.FileStorage, maxFileSize int64) MediaService {
	return &mediaService{db: db, files: files, maxFileSize: maxFileSize}
}

// AttachMedia 리뷰에 이미지/동영상 첨부 (작성자 또는 스태프, 리뷰당 최대 5개)
func (s *mediaService) AttachMedia(ctx context.Context, reviewID, uploaderID uint, upload MediaUpload) (*model.ReviewMedia, error) {
	mediaType, ok := model.InferMediaType(upload.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, upload.Filename)
	}
	if err := storage.ValidateFileSize(upload.Size, s.maxFileSize); err != nil {
		return nil, invalid("file", err.Error())
	}

	reviewRepo := repository.NewReviewRepository(s.db.WithContext(ctx))
	review, err := reviewRepo.FindByID(reviewID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	if !review.IsOwnedBy(uploaderID) {
		actor, err := loadActor(s.db, uploaderID)
		if err != nil {
			return nil, err
		}
		if actor == nil || !actor.IsActive || !actor.IsStaff() {
			return nil, ErrForbidden
		}
	}

	// 업로드 전에 한 번 걸러내고, 확정은 잠금 후 트랜잭션에서 합니다
	if len(review.Media) >= model.MaxMediaPerReview {
		return nil, ErrMediaLimitExceeded
	}

	key := storage.NewObjectKey(fmt.Sprintf("reviews/%d", review.ID), upload.Filename)
	if err := s.files.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		logger.Error("Failed to store review media", err, map[string]interface{}{
			"review_id": review.ID,
			"filename":  upload.Filename,
		})
		return nil, fmt.Errorf("failed to store media: %w", err)
	}

	media := &model.ReviewMedia{
		ReviewID:     review.ID,
		FileKey:      key,
		MediaType:    mediaType,
		OriginalName: upload.Filename,
		ContentType:  upload.ContentType,
		Size:         upload.Size,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repository.NewReviewRepository(tx)
		if err := txRepo.LockForUpdate(review.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to lock review: %w", err)
		}
		count, err := txRepo.CountMedia(review.ID)
		if err != nil {
			return fmt.Errorf("failed to count media: %w", err)
		}
		if count >= model.MaxMediaPerReview {
			return ErrMediaLimitExceeded
		}
		return txRepo.CreateMedia(media)
	})
	if err != nil {
		removeStoredFiles(ctx, s.files, []string{key})
		return nil, err
	}

	media.URL = s.files.URL(key)
	logger.Info("Review media attached", map[string]interface{}{
		"review_id":  review.ID,
		"media_id":   media.ID,
		"media_type": mediaType,
		"size":       upload.Size,
	})
	return media, nil
}
