package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // 사용자 권한 타입

const (
	RoleUser  UserRole = "user"  // 일반 사용자 권한
	RoleStaff UserRole = "staff" // 운영 스태프 권한 (리뷰 검수)
	RoleAdmin UserRole = "admin" // 관리자 권한
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`                        // 사용자 ID
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`           // 이메일
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`        // 로그인 아이디
	Name      string         `json:"name"`                                        // 이름
	Role      UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"` // 권한
	IsActive  bool           `gorm:"default:true" json:"is_active"`               // 활성 계정 여부
	CreatedAt time.Time      `json:"created_at"`                                  // 생성 시각
	UpdatedAt time.Time      `json:"updated_at"`                                  // 수정 시각
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                              // 삭제 시각(소프트 삭제)
}

func (User) TableName() string {
	return "users"
}

// IsStaff 스태프 또는 관리자 여부
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

// DisplayName 리뷰 작성자 스냅샷에 쓰이는 표시 이름
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
