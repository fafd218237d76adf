package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/storage"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/ikkim/bizreview-backend/pkg/pagination"
	"gorm.io/gorm"
)

// CompanyListOptions 회사 목록 조건
type CompanyListOptions struct {
	City     string
	Search   string
	Page     int
	PageSize int
}

// CreateCompanyInput 회사 등록 요청
type CreateCompanyInput struct {
	Name        string
	City        string
	Address     string
	PhoneNumber string
	Website     string
	Description string
}

type CompanyService interface {
	ListCompanies(opts CompanyListOptions) (*pagination.Result[model.Company], error)
	GetCompanyBySlug(slug string) (*model.Company, error)
	CreateCompany(ownerID uint, input CreateCompanyInput) (*model.Company, error)
	ImportCompanies(companies []model.Company) (int, error)
	AddMember(companyID, actorID, userID uint, role model.MembershipRole) (*model.CompanyMembership, error)
	DeleteCompany(ctx context.Context, companyID uint) error
}

type companyService struct {
	db    *gorm.DB
	files storage.FileStorage
}

func NewCompanyService(db *gorm.DB, files storage.FileStorage) CompanyService {
	return &companyService{db: db, files: files}
}

// ListCompanies 공개된 회사 목록 (평점 높은 순)
func (s *companyService) ListCompanies(opts CompanyListOptions) (*pagination.Result[model.Company], error) {
	params := pagination.New(opts.Page, opts.PageSize)
	filter := repository.CompanyFilter{City: opts.City, Search: opts.Search, ActiveOnly: true}
	companies, total, err := repository.NewCompanyRepository(s.db).List(filter, params.Offset, params.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	result := pagination.NewResult(companies, total, params)
	return &result, nil
}

func (s *companyService) GetCompanyBySlug(slug string) (*model.Company, error) {
	company, err := repository.NewCompanyRepository(s.db).FindBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, ErrCompanyNotFound
	}
	return company, nil
}

// CreateCompany 회사 등록. 등록한 사용자는 활성 OWNER 소속이 됩니다.
func (s *companyService) CreateCompany(ownerID uint, input CreateCompanyInput) (*model.Company, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name", "회사명을 입력해주세요")
	}

	company := &model.Company{
		OwnerID:     &ownerID,
		Name:        name,
		City:        strings.TrimSpace(input.City),
		Address:     input.Address,
		PhoneNumber: input.PhoneNumber,
		Website:     input.Website,
		Description: input.Description,
		IsActive:    true,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		owner, err := loadActor(tx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil || !owner.IsActive {
			return ErrUnauthenticated
		}

		companyRepo := repository.NewCompanyRepository(tx)
		if err := companyRepo.Create(company); err != nil {
			return fmt.Errorf("failed to create company: %w", err)
		}
		return companyRepo.UpsertMembership(&model.CompanyMembership{
			UserID:    ownerID,
			CompanyID: company.ID,
			Role:      model.MembershipOwner,
			Status:    model.MembershipActive,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Company created", map[string]interface{}{
		"company_id": company.ID,
		"slug":       company.Slug,
		"owner_id":   ownerID,
	})
	return company, nil
}

// ImportCompanies 시드 데이터 대량 등록
func (s *companyService) ImportCompanies(companies []model.Company) (int, error) {
	if len(companies) == 0 {
		return 0, nil
	}
	if err := repository.NewCompanyRepository(s.db).CreateBatch(companies, 100); err != nil {
		return 0, fmt.Errorf("failed to import companies: %w", err)
	}
	return len(companies), nil
}

// AddMember 소속 추가/변경 (스태프 또는 활성 OWNER만 가능)
func (s *companyService) AddMember(companyID, actorID, userID uint, role model.MembershipRole) (*model.CompanyMembership, error) {
	switch role {
	case model.MembershipOwner, model.MembershipManager, model.MembershipEmployee:
	default:
		return nil, invalid("role", "OWNER, MANAGER, EMPLOYEE 중 하나여야 합니다")
	}

	membership := &model.CompanyMembership{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		Status:    model.MembershipActive,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		companyRepo := repository.NewCompanyRepository(tx)
		if _, err := companyRepo.FindByID(companyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCompanyNotFound
			}
			return err
		}

		actor, err := loadActor(tx, actorID)
		if err != nil {
			return err
		}
		if actor == nil || !actor.IsActive {
			return ErrForbidden
		}
		if !actor.IsStaff() {
			own, err := companyRepo.FindMembership(actorID, companyID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrForbidden
			}
			if err != nil {
				return err
			}
			if own.Status != model.MembershipActive || own.Role != model.MembershipOwner {
				return ErrForbidden
			}
		}

		member, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return invalid("user_id", "존재하지 않는 사용자입니다")
		}
		return companyRepo.UpsertMembership(membership)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Company membership saved", map[string]interface{}{
		"company_id": companyID,
		"user_id":    userID,
		"role":       role,
		"actor_id":   actorID,
	})
	return membership, nil
}

// DeleteCompany 회사와 회사에 달린 리뷰(답글, 미디어 포함)를 함께 삭제합니다
func (s *companyService) DeleteCompany(ctx context.Context, companyID uint) error {
	var keys []string
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref := model.TargetRef{Kind: model.TargetCompany, ID: companyID}

		var err error
		keys, deleted, err = purgeTargetReviews(tx, ref)
		if err != nil {
			return err
		}
		if err := repository.NewCompanyRepository(tx).Delete(companyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCompanyNotFound
			}
			return fmt.Errorf("failed to delete company: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	removeStoredFiles(ctx, s.files, keys)
	logger.Info("Company deleted", map[string]interface{}{
		"company_id":      companyID,
		"deleted_reviews": deleted,
		"deleted_files":   len(keys),
	})
	return nil
}
