package repository

import (
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"gorm.io/gorm"
)

type BlogPostRepository interface {
	Create(post *model.BlogPost) error
	FindByID(id uint) (*model.BlogPost, error)
	ListIDs() ([]uint, error)
	UpdateRating(id uint, agg model.RatingAggregate) error
}

type blogPostRepository struct {
	db *gorm.DB
}

func NewBlogPostRepository(db *gorm.DB) BlogPostRepository {
	return &blogPostRepository{db: db}
}

func (r *blogPostRepository) Create(post *model.BlogPost) error {
	return r.db.Create(post).Error
}

func (r *blogPostRepository) FindByID(id uint) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := r.db.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *blogPostRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.BlogPost{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *blogPostRepository) UpdateRating(id uint, agg model.RatingAggregate) error {
	result := r.db.Model(&model.BlogPost{ID: id}).UpdateColumns(map[string]interface{}{
		"rating_average": agg.Average,
		"rating_count":   agg.Count,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
