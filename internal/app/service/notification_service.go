package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/notify"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/ikkim/bizreview-backend/pkg/pagination"
	"gorm.io/gorm"
)

// UserPusher 접속 중인 사용자에게 실시간 메시지 전송 (websocket.Hub)
type UserPusher interface {
	SendToUser(userID uint, message interface{}) error
}

// NotificationService 알림 서비스 인터페이스
type NotificationService interface {
	ReviewNotifier

	GetNotifications(userID uint, notifType *model.NotificationType, isRead *bool, page, pageSize int) ([]model.Notification, int64, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(notificationID, userID uint) (*model.Notification, error)
	MarkAllAsRead(userID uint) error
	DeleteNotification(notificationID, userID uint) error

	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error)
}

type notificationService struct {
	repo       repository.NotificationRepository
	pusher     UserPusher
	dispatcher notify.Dispatcher
	publicURL  string
}

// UpdateNotificationSettingsRequest 알림 설정 수정 요청
type UpdateNotificationSettingsRequest struct {
	InAppEnabled *bool `json:"in_app_enabled"`
	EmailEnabled *bool `json:"email_enabled"`
}

// NewNotificationService 알림 서비스 생성자 (pusher, dispatcher는 nil 가능)
func NewNotificationService(repo repository.NotificationRepository, pusher UserPusher, dispatcher notify.Dispatcher, publicURL string) NotificationService {
	return &notificationService{
		repo:       repo,
		pusher:     pusher,
		dispatcher: dispatcher,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

// GetNotifications 알림 목록 조회 (목록, 전체 개수, 안읽은 개수)
func (s *notificationService) GetNotifications(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	page, pageSize int,
) ([]model.Notification, int64, int64, error) {
	params := pagination.New(page, pageSize)

	notifications, total, err := s.repo.GetNotifications(userID, notifType, isRead, params.PageSize, params.Offset)
	if err != nil {
		return nil, 0, 0, err
	}

	unreadCount, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return notifications, total, unreadCount, nil
}

// GetUnreadCount 안읽은 알림 개수 조회
func (s *notificationService) GetUnreadCount(userID uint) (int64, error) {
	return s.repo.GetUnreadCount(userID)
}

// findOwned 본인 알림만 조회
func (s *notificationService) findOwned(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.repo.GetNotificationByID(notificationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	if notification.UserID != userID {
		return nil, ErrForbidden
	}
	return notification, nil
}

// MarkAsRead 알림 읽음 처리
func (s *notificationService) MarkAsRead(notificationID, userID uint) (*model.Notification, error) {
	notification, err := s.findOwned(notificationID, userID)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}

	if err := s.repo.MarkAsRead(notificationID); err != nil {
		return nil, err
	}
	notification.IsRead = true
	return notification, nil
}

// MarkAllAsRead 모든 알림 읽음 처리
func (s *notificationService) MarkAllAsRead(userID uint) error {
	return s.repo.MarkAllAsRead(userID)
}

// DeleteNotification 알림 삭제
func (s *notificationService) DeleteNotification(notificationID, userID uint) error {
	if _, err := s.findOwned(notificationID, userID); err != nil {
		return err
	}
	return s.repo.DeleteNotification(notificationID)
}

// GetNotificationSettings 알림 설정 조회 (없으면 기본값으로 생성)
func (s *notificationService) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	return s.repo.GetNotificationSettings(userID)
}

// UpdateNotificationSettings 알림 설정 수정
func (s *notificationService) UpdateNotificationSettings(userID uint, req *UpdateNotificationSettingsRequest) (*model.NotificationSettings, error) {
	settings, err := s.repo.GetNotificationSettings(userID)
	if err != nil {
		return nil, err
	}

	if req.InAppEnabled != nil {
		settings.InAppEnabled = *req.InAppEnabled
	}
	if req.EmailEnabled != nil {
		settings.EmailEnabled = *req.EmailEnabled
	}

	if err := s.repo.UpdateNotificationSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// NotifyReviewModerated 검수 결과를 리뷰 작성자에게 알림
func (s *notificationService) NotifyReviewModerated(ctx context.Context, review *model.Review, target *Target) {
	if review.UserID == nil || target == nil {
		return
	}

	notifType := model.NotificationTypeReviewApproved
	templateKey := model.TemplateReviewApproved
	title := fmt.Sprintf("%s에 남긴 리뷰가 게시되었어요", target.Name)
	if review.ModerationStatus == model.ModerationRejected {
		notifType = model.NotificationTypeReviewRejected
		templateKey = model.TemplateReviewRejected
		title = fmt.Sprintf("%s에 남긴 리뷰가 게시되지 않았어요", target.Name)
	}

	s.deliver(ctx, *review.UserID, &model.Notification{
		Type:            notifType,
		Title:           title,
		Content:         summarize(review.Body),
		Link:            target.Path,
		RelatedReviewID: &review.ID,
	}, templateKey, map[string]string{
		"AuthorName": review.AuthorName,
		"TargetName": target.Name,
		"Link":       s.publicURL + target.Path,
	})
}

// NotifyReviewReplied 답글 등록을 리뷰 작성자에게 알림
func (s *notificationService) NotifyReviewReplied(ctx context.Context, review *model.Review, reply *model.ReviewReply, target *Target) {
	if review.UserID == nil || target == nil || reply == nil {
		return
	}

	s.deliver(ctx, *review.UserID, &model.Notification{
		Type:            model.NotificationTypeReviewReplied,
		Title:           fmt.Sprintf("%s에서 리뷰에 답글을 남겼어요", target.Name),
		Content:         summarize(reply.Body),
		Link:            target.Path,
		RelatedReviewID: &review.ID,
	}, model.TemplateReviewReplied, map[string]string{
		"AuthorName": review.AuthorName,
		"TargetName": target.Name,
		"ReplyBody":  reply.Body,
		"Link":       s.publicURL + target.Path,
	})
}

// deliver 설정에 따라 앱 알림 저장/푸시와 이메일 발송 요청. 실패는 기록만 합니다.
func (s *notificationService) deliver(ctx context.Context, userID uint, notification *model.Notification, templateKey string, params map[string]string) {
	fields := map[string]interface{}{
		"user_id":   userID,
		"type":      notification.Type,
		"review_id": *notification.RelatedReviewID,
	}

	settings, err := s.repo.GetNotificationSettings(userID)
	if err != nil {
		logger.Error("Failed to load notification settings", err, fields)
		return
	}

	if settings.InAppEnabled {
		notification.UserID = userID
		if err := s.repo.CreateNotification(notification); err != nil {
			logger.Error("Failed to create notification", err, fields)
		} else if s.pusher != nil {
			unreadCount, _ := s.repo.GetUnreadCount(userID)
			if err := s.pusher.SendToUser(userID, map[string]interface{}{
				"type":         "new_notification",
				"unread_count": unreadCount,
				"notification": notification,
			}); err != nil {
				logger.Warn("Failed to push notification", fields)
			}
		}
	}

	if settings.EmailEnabled && s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, templateKey, userID, params)
	}
}

func summarize(text string) string {
	const limit = 100
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}
