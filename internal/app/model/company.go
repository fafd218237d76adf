package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Company struct {
	ID          uint   `gorm:"primarykey" json:"id"`                 // 회사 ID
	OwnerID     *uint  `gorm:"index" json:"owner_id"`                // 등록한 사용자 (nullable)
	Owner       *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"owner,omitempty"`
	Name        string `gorm:"not null" json:"name"`                 // 회사명
	Slug        string `gorm:"uniqueIndex" json:"slug"`              // URL용 고유 식별자
	City        string `gorm:"index" json:"city"`                    // 도시
	Address     string `gorm:"type:text" json:"address"`             // 상세 주소
	PhoneNumber string `gorm:"type:varchar(30)" json:"phone_number"` // 연락처
	Website     string `json:"website"`                              // 웹사이트
	Description string `gorm:"type:text" json:"description"`         // 회사 소개
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`  // 공개 여부

	// 평점 집계 (승인된 리뷰 기준, 재계산으로만 갱신)
	RatingAverage float64 `gorm:"type:decimal(3,2);not null;default:0" json:"rating_average"`
	RatingCount   int     `gorm:"not null;default:0" json:"rating_count"`

	CreatedAt time.Time `json:"created_at"` // 생성 시각
	UpdatedAt time.Time `json:"updated_at"` // 수정 시각
}

func (Company) TableName() string {
	return "companies"
}

// ReviewTarget 리뷰 대상 참조
func (c *Company) ReviewTarget() TargetRef {
	return TargetRef{Kind: TargetCompany, ID: c.ID}
}

// BeforeCreate는 회사 생성 전에 slug를 자동 생성합니다
func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.Slug != "" {
		return nil
	}
	slug, err := uniqueSlug(tx, &Company{}, GenerateSlug(c.City, c.Name), 0)
	if err != nil {
		return err
	}
	c.Slug = slug
	return nil
}

type MembershipRole string

const (
	MembershipOwner    MembershipRole = "OWNER"
	MembershipManager  MembershipRole = "MANAGER"
	MembershipEmployee MembershipRole = "EMPLOYEE"
)

type MembershipStatus string

const (
	MembershipPending MembershipStatus = "PENDING"
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipRevoked MembershipStatus = "REVOKED"
)

// CompanyMembership 회사 소속 정보 (관리 권한 판단 근거)
type CompanyMembership struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_membership_user_company" json:"user_id"`
	CompanyID uint             `gorm:"not null;uniqueIndex:idx_membership_user_company;index" json:"company_id"`
	Role      MembershipRole   `gorm:"type:varchar(20);not null;default:'EMPLOYEE'" json:"role"`
	Status    MembershipStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Company *Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CompanyMembership) TableName() string {
	return "company_memberships"
}

// CanManage 리뷰 관리 권한 여부 (활성 상태의 OWNER/MANAGER)
func (m *CompanyMembership) CanManage() bool {
	if m.Status != MembershipActive {
		return false
	}
	return m.Role == MembershipOwner || m.Role == MembershipManager
}

var (
	slugInvalidChars = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

// GenerateSlug는 이름 조각들로 URL용 slug를 생성합니다
func GenerateSlug(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	slug := strings.Join(nonEmpty, "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.ToLower(strings.Trim(slug, "-"))
	if slug == "" {
		slug = "item"
	}
	return slug
}

// uniqueSlug는 중복되지 않을 때까지 숫자를 붙입니다
func uniqueSlug(tx *gorm.DB, table interface{}, base string, excludeID uint) (string, error) {
	slug := base
	for counter := 1; ; counter++ {
		if counter > 1 {
			slug = fmt.Sprintf("%s-%d", base, counter)
		}
		query := tx.Session(&gorm.Session{NewDB: true}).Model(table).Where("slug = ?", slug)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
	}
}
