package model

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeReviewApproved NotificationType = "review_approved"
	NotificationTypeReviewRejected NotificationType = "review_rejected"
	NotificationTypeReviewReplied  NotificationType = "review_replied"
)

// Notification 알림 모델
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 알림 받을 사용자
	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	// 알림 타입
	Type NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`

	// 알림 내용
	Title   string `gorm:"type:text;not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Link    string `gorm:"type:text" json:"link"`

	// 상태
	IsRead bool `gorm:"default:false;index" json:"is_read"`

	// 관련 리뷰 (nullable)
	RelatedReviewID *uint `gorm:"index" json:"related_review_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings 사용자별 알림 설정
type NotificationSettings struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"uniqueIndex;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	// 앱 내 알림
	InAppEnabled bool `gorm:"default:true" json:"in_app_enabled"`

	// 이메일 알림
	EmailEnabled bool `gorm:"default:true" json:"email_enabled"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}
