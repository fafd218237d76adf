package db

import (
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Company{},
		&model.CompanyMembership{},
		&model.BlogPost{},
		&model.Review{},
		&model.ReviewReply{},
		&model.ReviewMedia{},
		&model.Notification{},
		&model.NotificationSettings{},
		&model.EmailTemplate{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedEmailTemplates(DB); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// DefaultEmailTemplates 기본 이메일 템플릿 (운영 중 DB에서 수정 가능)
func DefaultEmailTemplates() []model.EmailTemplate {
	return []model.EmailTemplate{
		{
			Key:      model.TemplateReviewApproved,
			Subject:  "리뷰가 게시되었습니다",
			Body:     "{{.AuthorName}}님, {{.TargetName}}에 남기신 리뷰가 승인되어 게시되었습니다.\n{{.Link}}",
			IsActive: true,
		},
		{
			Key:      model.TemplateReviewRejected,
			Subject:  "리뷰가 게시되지 않았습니다",
			Body:     "{{.AuthorName}}님, {{.TargetName}}에 남기신 리뷰가 운영 정책에 따라 게시되지 않았습니다.",
			IsActive: true,
		},
		{
			Key:      model.TemplateReviewReplied,
			Subject:  "리뷰에 답글이 달렸습니다",
			Body:     "{{.AuthorName}}님, {{.TargetName}}에서 리뷰에 답글을 남겼습니다.\n\n{{.ReplyBody}}\n{{.Link}}",
			IsActive: true,
		},
	}
}

// SeedEmailTemplates 없는 템플릿만 추가합니다 (기존 템플릿은 건드리지 않음)
func SeedEmailTemplates(db *gorm.DB) error {
	inserted := 0
	for _, tmpl := range DefaultEmailTemplates() {
		tmpl := tmpl
		result := db.Where(model.EmailTemplate{Key: tmpl.Key}).FirstOrCreate(&tmpl)
		if result.Error != nil {
			logger.Error("Failed to seed email template", result.Error, map[string]interface{}{
				"key": tmpl.Key,
			})
			return result.Error
		}
		inserted += int(result.RowsAffected)
	}

	logger.Info("Email templates seeded", map[string]interface{}{
		"inserted": inserted,
	})
	return nil
}
