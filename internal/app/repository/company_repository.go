package repository

import (
	"errors"
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"gorm.io/gorm"
)

// CompanyFilter 회사 목록 필터
type CompanyFilter struct {
	City       string
	Search     string
	ActiveOnly bool
}

type CompanyRepository interface {
	Create(company *model.Company) error
	CreateBatch(companies []model.Company, batchSize int) error
	FindByID(id uint) (*model.Company, error)
	FindBySlug(slug string) (*model.Company, error)
	List(filter CompanyFilter, offset, limit int) ([]model.Company, int64, error)
	ListIDs() ([]uint, error)
	UpdateRating(id uint, agg model.RatingAggregate) error
	Delete(id uint) error

	// 소속 정보
	UpsertMembership(membership *model.CompanyMembership) error
	FindMembership(userID, companyID uint) (*model.CompanyMembership, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(company *model.Company) error {
	return r.db.Create(company).Error
}

// CreateBatch 대량 등록 (시드 데이터 임포트용)
func (r *companyRepository) CreateBatch(companies []model.Company, batchSize int) error {
	return r.db.CreateInBatches(companies, batchSize).Error
}

func (r *companyRepository) FindByID(id uint) (*model.Company, error) {
	var company model.Company
	if err := r.db.First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindBySlug(slug string) (*model.Company, error) {
	var company model.Company
	if err := r.db.Where("slug = ?", slug).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// List 회사 목록 조회 (평점 높은 순)
func (r *companyRepository) List(filter CompanyFilter, offset, limit int) ([]model.Company, int64, error) {
	var companies []model.Company
	var total int64

	query := r.db.Model(&model.Company{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("rating_average DESC").Order("rating_count DESC").Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&companies).Error
	if err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *companyRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Company{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// UpdateRating 평점 두 컬럼만 갱신 (다른 필드, updated_at은 건드리지 않음)
func (r *companyRepository) UpdateRating(id uint, agg model.RatingAggregate) error {
	result := r.db.Model(&model.Company{ID: id}).UpdateColumns(map[string]interface{}{
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

func (r *companyRepository) Delete(id uint) error {
	if err := r.db.Where("company_id = ?", id).Delete(&model.CompanyMembership{}).Error; err != nil {
		return err
	}
	result := r.db.Delete(&model.Company{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertMembership (user, company) 쌍 기준으로 역할과 상태를 저장
func (r *companyRepository) UpsertMembership(membership *model.CompanyMembership) error {
	existing, err := r.FindMembership(membership.UserID, membership.CompanyID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(membership).Error
	}
	if err != nil {
		return err
	}
	membership.ID = existing.ID
	return r.db.Model(existing).Updates(map[string]interface{}{
		"role":   membership.Role,
		"status": membership.Status,
	}).Error
}

func (r *companyRepository) FindMembership(userID, companyID uint) (*model.CompanyMembership, error) {
	var membership model.CompanyMembership
	err := r.db.Where("user_id = ? AND company_id = ?", userID, companyID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}
