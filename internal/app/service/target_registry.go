package service

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"gorm.io/gorm"
)

// Target 조회된 리뷰 대상
type Target struct {
	Ref     model.TargetRef
	Name    string
	Path    string // 공개 페이지 경로 (알림 링크용)
	Visible bool   // 공개 리뷰 작성/조회 가능 여부
	Rating  model.RatingAggregate
	Entity  model.Reviewable
}

// TargetHandler 대상 종류별 동작 (조회, 관리 권한, 평점 반영, ID 목록)
type TargetHandler interface {
	Kind() model.TargetKind
	Resolve(tx *gorm.DB, id uint) (*Target, error)
	CanManage(tx *gorm.DB, target *Target, actor *model.User) (bool, error)
	ApplyRating(tx *gorm.DB, id uint, agg model.RatingAggregate) error
	ListIDs(tx *gorm.DB) ([]uint, error)
}

// TargetRegistry 대상 종류 -> 핸들러 매핑
type TargetRegistry struct {
	handlers map[model.TargetKind]TargetHandler
}

func NewTargetRegistry(handlers ...TargetHandler) *TargetRegistry {
	r := &TargetRegistry{handlers: make(map[model.TargetKind]TargetHandler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Kind()] = h
	}
	return r
}

// DefaultTargetRegistry 회사와 블로그 글을 등록한 레지스트리
func DefaultTargetRegistry() *TargetRegistry {
	return NewTargetRegistry(CompanyTargetHandler{}, BlogPostTargetHandler{})
}

// ParseTargetKind 요청 경로의 대상 종류 문자열 검증
func (r *TargetRegistry) ParseTargetKind(kind string) (model.TargetKind, error) {
	k := model.TargetKind(kind)
	if _, ok := r.handlers[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTargetKind, kind)
	}
	return k, nil
}

func (r *TargetRegistry) Handler(kind model.TargetKind) (TargetHandler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTargetKind, kind)
	}
	return h, nil
}

// Kinds 등록된 대상 종류 (정렬)
func (r *TargetRegistry) Kinds() []model.TargetKind {
	kinds := make([]model.TargetKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Resolve 대상 조회 (없으면 ErrTargetNotFound)
func (r *TargetRegistry) Resolve(tx *gorm.DB, ref model.TargetRef) (*Target, error) {
	h, err := r.Handler(ref.Kind)
	if err != nil {
		return nil, err
	}
	if ref.ID == 0 {
		return nil, ErrTargetNotFound
	}
	return h.Resolve(tx, ref.ID)
}

// Authorize 관리 권한 확인. 스태프는 모든 대상을 관리할 수 있습니다.
func (r *TargetRegistry) Authorize(tx *gorm.DB, target *Target, actor *model.User) (bool, error) {
	if actor == nil || !actor.IsActive {
		return false, nil
	}
	if actor.IsStaff() {
		return true, nil
	}
	h, err := r.Handler(target.Ref.Kind)
	if err != nil {
		return false, err
	}
	return h.CanManage(tx, target, actor)
}

// CanManage 대상을 조회한 뒤 관리 권한 확인 (대상이 없으면 스태프만 허용)
func (r *TargetRegistry) CanManage(tx *gorm.DB, ref model.TargetRef, actor *model.User) (bool, error) {
	if actor != nil && actor.IsActive && actor.IsStaff() {
		return true, nil
	}
	target, err := r.Resolve(tx, ref)
	if errors.Is(err, ErrTargetNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Authorize(tx, target, actor)
}

// CanUserManage 사용자 ID 기준 관리 권한 확인
func (r *TargetRegistry) CanUserManage(tx *gorm.DB, ref model.TargetRef, userID uint) (bool, error) {
	actor, err := loadActor(tx, userID)
	if err != nil {
		return false, err
	}
	return r.CanManage(tx, ref, actor)
}

// ParseTopic "company:12" 형태의 토픽을 대상으로 변환
func (r *TargetRegistry) ParseTopic(topic string) (model.TargetRef, error) {
	kind, rawID, ok := strings.Cut(topic, ":")
	if !ok {
		return model.TargetRef{}, ErrInvalidTarget
	}
	k, err := r.ParseTargetKind(kind)
	if err != nil {
		return model.TargetRef{}, err
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		return model.TargetRef{}, ErrInvalidTarget
	}
	return model.TargetRef{Kind: k, ID: uint(id)}, nil
}

// loadActor 요청 사용자 조회 (없으면 nil)
func loadActor(tx *gorm.DB, userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, nil
	}
	user, err := repository.NewUserRepository(tx).FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user, nil
}

// CompanyTargetHandler 회사 리뷰 대상
type CompanyTargetHandler struct{}

func (CompanyTargetHandler) Kind() model.TargetKind { return model.TargetCompany }

func (CompanyTargetHandler) Resolve(tx *gorm.DB, id uint) (*Target, error) {
	company, err := repository.NewCompanyRepository(tx).FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company %d: %w", id, err)
	}
	return &Target{
		Ref:     company.ReviewTarget(),
		Name:    company.Name,
		Path:    "/companies/" + company.Slug,
		Visible: company.IsActive,
		Rating:  model.RatingAggregate{Average: company.RatingAverage, Count: company.RatingCount},
		Entity:  company,
	}, nil
}

// CanManage 활성 상태의 OWNER/MANAGER 소속만 관리 가능
func (CompanyTargetHandler) CanManage(tx *gorm.DB, target *Target, actor *model.User) (bool, error) {
	membership, err := repository.NewCompanyRepository(tx).FindMembership(actor.ID, target.Ref.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load membership: %w", err)
	}
	return membership.CanManage(), nil
}

func (CompanyTargetHandler) ApplyRating(tx *gorm.DB, id uint, agg model.RatingAggregate) error {
	return repository.NewCompanyRepository(tx).UpdateRating(id, agg)
}

func (CompanyTargetHandler) ListIDs(tx *gorm.DB) ([]uint, error) {
	return repository.NewCompanyRepository(tx).ListIDs()
}

// BlogPostTargetHandler 블로그 글 리뷰 대상
type BlogPostTargetHandler struct{}

func (BlogPostTargetHandler) Kind() model.TargetKind { return model.TargetBlogPost }

func (BlogPostTargetHandler) Resolve(tx *gorm.DB, id uint) (*Target, error) {
	post, err := repository.NewBlogPostRepository(tx).FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blog post %d: %w", id, err)
	}
	return &Target{
		Ref:     post.ReviewTarget(),
		Name:    post.Title,
		Path:    "/blog/" + post.Slug,
		Visible: post.IsPublished(),
		Rating:  model.RatingAggregate{Average: post.RatingAverage, Count: post.RatingCount},
		Entity:  post,
	}, nil
}

// CanManage 글 작성자만 관리 가능 (스태프는 레지스트리에서 처리)
func (BlogPostTargetHandler) CanManage(_ *gorm.DB, target *Target, actor *model.User) (bool, error) {
	post, ok := target.Entity.(*model.BlogPost)
	if !ok {
		return false, nil
	}
	return post.AuthorID != nil && *post.AuthorID == actor.ID, nil
}

func (BlogPostTargetHandler) ApplyRating(tx *gorm.DB, id uint, agg model.RatingAggregate) error {
	return repository.NewBlogPostRepository(tx).UpdateRating(id, agg)
}

func (BlogPostTargetHandler) ListIDs(tx *gorm.DB) ([]uint, error) {
	return repository.NewBlogPostRepository(tx).ListIDs()
}
