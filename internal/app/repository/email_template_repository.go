package repository

import (
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"gorm.io/gorm"
)

type EmailTemplateRepository interface {
	FindActiveByKey(key string) (*model.EmailTemplate, error)
}

type emailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) EmailTemplateRepository {
	return &emailTemplateRepository{db: db}
}

// FindActiveByKey 활성화된 템플릿만 조회
func (r *emailTemplateRepository) FindActiveByKey(key string) (*model.EmailTemplate, error) {
	var tmpl model.EmailTemplate
	err := r.db.Where("template_key = ? AND is_active = ?", key, true).First(&tmpl).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}
