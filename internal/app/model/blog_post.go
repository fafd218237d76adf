package model

import (
	"time"

	"gorm.io/gorm"
)

type BlogPostStatus string

const (
	BlogPostDraft     BlogPostStatus = "DRAFT"
	BlogPostPublished BlogPostStatus = "PUBLISHED"
)

// BlogPost 블로그 글 (리뷰 대상)
type BlogPost struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	AuthorID    *uint          `gorm:"index" json:"author_id"`
	Author      *User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex" json:"slug"`
	Excerpt     string         `gorm:"type:text" json:"excerpt"`
	Content     string         `gorm:"type:text" json:"content"`
	Status      BlogPostStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`

	RatingAverage float64 `gorm:"type:decimal(3,2);not null;default:0" json:"rating_average"`
	RatingCount   int     `gorm:"not null;default:0" json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}

func (p *BlogPost) ReviewTarget() TargetRef {
	return TargetRef{Kind: TargetBlogPost, ID: p.ID}
}

// IsPublished 공개 여부
func (p *BlogPost) IsPublished() bool {
	return p.Status == BlogPostPublished
}

func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if p.Status == BlogPostPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	if p.Slug != "" {
		return nil
	}
	slug, err := uniqueSlug(tx, &BlogPost{}, GenerateSlug(p.Title), 0)
	if err != nil {
		return err
	}
	p.Slug = slug
	return nil
}
