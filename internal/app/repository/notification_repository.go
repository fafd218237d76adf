package repository

import (
	"errors"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"gorm.io/gorm"
)

// NotificationRepository 알림 저장소 인터페이스
type NotificationRepository interface {
	// Notification operations
	CreateNotification(notification *model.Notification) error
	GetNotificationByID(id uint) (*model.Notification, error)
	GetNotifications(userID uint, notifType *model.NotificationType, isRead *bool, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(userID uint) (int64, error)
	MarkAsRead(id uint) error
	MarkAllAsRead(userID uint) error
	DeleteNotification(id uint) error

	// NotificationSettings operations
	GetNotificationSettings(userID uint) (*model.NotificationSettings, error)
	UpdateNotificationSettings(settings *model.NotificationSettings) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 알림 저장소 생성자
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateNotification 알림 생성
func (r *notificationRepository) CreateNotification(notification *model.Notification) error {
	return r.db.Create(notification).Error
}

// GetNotificationByID 알림 ID로 조회
func (r *notificationRepository) GetNotificationByID(id uint) (*model.Notification, error) {
	var notification model.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// GetNotifications 알림 목록 조회
func (r *notificationRepository) GetNotifications(
	userID uint,
	notifType *model.NotificationType,
	isRead *bool,
	limit, offset int,
) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID)

	// 타입 필터
	if notifType != nil {
		query = query.Where("type = ?", *notifType)
	}

	// 읽음 상태 필터
	if isRead != nil {
		query = query.Where("is_read = ?", *isRead)
	}

	// 총 개수 조회
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 페이지네이션
	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// GetUnreadCount 안읽은 알림 개수 조회
func (r *notificationRepository) GetUnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkAsRead 알림 읽음 처리
func (r *notificationRepository) MarkAsRead(id uint) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

// MarkAllAsRead 모든 알림 읽음 처리
func (r *notificationRepository) MarkAllAsRead(userID uint) error {
	return r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// DeleteNotification 알림 삭제
func (r *notificationRepository) DeleteNotification(id uint) error {
	return r.db.Delete(&model.Notification{}, id).Error
}

// GetNotificationSettings 알림 설정 조회
func (r *notificationRepository) GetNotificationSettings(userID uint) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 설정이 없으면 기본값으로 생성
		settings = model.NotificationSettings{
			UserID:       userID,
			InAppEnabled: true,
			EmailEnabled: true,
		}
		if err := r.db.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateNotificationSettings 알림 설정 수정
func (r *notificationRepository) UpdateNotificationSettings(settings *model.NotificationSettings) error {
	return r.db.Model(settings).
		Select("in_app_enabled", "email_enabled").
		Updates(settings).Error
}
