package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TargetKind 리뷰 대상 종류
type TargetKind string

const (
	TargetCompany  TargetKind = "company"
	TargetBlogPost TargetKind = "blog_post"
)

// TargetRef 리뷰 대상 (종류 + ID)
type TargetRef struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id"`
}

func (r TargetRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Reviewable 리뷰를 받을 수 있는 엔티티
type Reviewable interface {
	ReviewTarget() TargetRef
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "PENDING"
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationRejected ModerationStatus = "REJECTED"
)

// IsDecision 검수 결정으로 사용할 수 있는 상태인지 (PENDING 제외)
func (s ModerationStatus) IsDecision() bool {
	return s == ModerationApproved || s == ModerationRejected
}

const (
	MinRating         = 1
	MaxRating         = 5
	MaxReviewTitleLen = 255
	MaxMediaPerReview = 5
)

// Review 리뷰 모델 (회사, 블로그 글 등 여러 대상에 연결)
type Review struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 리뷰 대상
	TargetKind TargetKind `gorm:"type:varchar(30);not null;index:idx_review_target;uniqueIndex:idx_review_user_target" json:"target_kind"`
	TargetID   uint       `gorm:"not null;index:idx_review_target;uniqueIndex:idx_review_user_target" json:"target_id"`

	// 작성자 (탈퇴 시 NULL, 스냅샷은 유지)
	UserID      *uint  `gorm:"uniqueIndex:idx_review_user_target" json:"user_id,omitempty"`
	User        *User  `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	AuthorName  string `gorm:"type:varchar(150)" json:"author_name"`
	AuthorEmail string `gorm:"type:varchar(254)" json:"-"`

	// 리뷰 내용
	Rating int    `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"` // 평점 (1-5)
	Title  string `gorm:"type:varchar(255)" json:"title"`
	Body   string `gorm:"type:text;not null" json:"body"`

	// 검수 상태
	ModerationStatus ModerationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"moderation_status"`
	IsVerified       bool             `gorm:"default:false" json:"is_verified"`

	// 요청 정보 (작성 시 1회 기록)
	IPAddress string `gorm:"type:varchar(45)" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`

	Reply *ReviewReply  `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"reply,omitempty"`
	Media []ReviewMedia `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"media"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) Target() TargetRef {
	return TargetRef{Kind: r.TargetKind, ID: r.TargetID}
}

// IsOwnedBy 작성자 본인 여부
func (r *Review) IsOwnedBy(userID uint) bool {
	return r.UserID != nil && *r.UserID == userID
}

// ReviewReply 리뷰에 대한 업체 답글 (리뷰당 최대 1개)
type ReviewReply struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReviewID uint   `gorm:"not null;uniqueIndex" json:"review_id"`
	AuthorID *uint  `gorm:"index" json:"author_id,omitempty"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"-"`
	Body     string `gorm:"type:text;not null" json:"body"`
}

func (ReviewReply) TableName() string {
	return "review_replies"
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

var mediaExtensions = map[string]MediaType{
	".jpg":  MediaImage,
	".jpeg": MediaImage,
	".png":  MediaImage,
	".webp": MediaImage,
	".mp4":  MediaVideo,
	".mov":  MediaVideo,
	".webm": MediaVideo,
}

// InferMediaType 파일 확장자로 미디어 타입을 판별합니다
func InferMediaType(filename string) (MediaType, bool) {
	mt, ok := mediaExtensions[strings.ToLower(filepath.Ext(filename))]
	return mt, ok
}

// ReviewMedia 리뷰 첨부 미디어 (리뷰당 최대 5개)
type ReviewMedia struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ReviewID     uint      `gorm:"not null;index" json:"review_id"`
	FileKey      string    `gorm:"not null" json:"-"`
	MediaType    MediaType `gorm:"type:varchar(10);not null" json:"media_type"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `gorm:"type:varchar(100)" json:"content_type"`
	Size         int64     `json:"size"`

	URL string `gorm:"-" json:"url"` // 조회 시 스토리지에서 계산
}

func (ReviewMedia) TableName() string {
	return "review_media"
}

// RatingAggregate 승인된 리뷰 기준 평점 집계
type RatingAggregate struct {
	Average float64 `json:"rating_average"`
	Count   int     `json:"rating_count"`
}

// RatingSummary 별점 분포를 포함한 평점 요약
type RatingSummary struct {
	Target    TargetRef   `json:"target"`
	Average   float64     `json:"rating_average"`
	Count     int         `json:"rating_count"`
	Breakdown map[int]int `json:"breakdown"`
}
