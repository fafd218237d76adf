package model

import "time"

// 이메일 템플릿 키
const (
	TemplateReviewApproved = "review_approved"
	TemplateReviewRejected = "review_rejected"
	TemplateReviewReplied  = "review_replied"
)

// EmailTemplate 운영자가 관리하는 이메일 템플릿 (text/template 문법)
type EmailTemplate struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Key       string    `gorm:"column:template_key;type:varchar(100);uniqueIndex;not null" json:"key"`
	Subject   string    `gorm:"not null" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmailTemplate) TableName() string {
	return "email_templates"
}
