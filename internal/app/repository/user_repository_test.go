package repository

import (
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewUserRepository(testDB)
}

func TestUserRepository_Create(t *testing.T) {
	_, repo := setupUserTest(t)

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name:    "Valid user",
			user:    &model.User{Email: "test@example.com", Username: "tester", Name: "Test User", Role: model.RoleUser},
			wantErr: false,
		},
		{
			name:    "Duplicate email",
			user:    &model.User{Email: "test@example.com", Username: "another", Name: "Another User", Role: model.RoleUser},
			wantErr: true,
		},
		{
			name:    "Duplicate username",
			user:    &model.User{Email: "other@example.com", Username: "tester", Name: "Other", Role: model.RoleUser},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)

			if tt.wantErr {
				assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
				assert.True(t, tt.user.IsActive)
			}
		})
	}
}

func TestUserRepository_FindByID(t *testing.T) {
	_, repo := setupUserTest(t)

	user := &model.User{Email: "test@example.com", Username: "tester", Name: "Test User", Role: model.RoleUser}
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)
	assert.Equal(t, "Test User", found.DisplayName())

	found, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, found)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	_, repo := setupUserTest(t)

	user := &model.User{Email: "test@example.com", Username: "tester", Role: model.RoleUser}
	require.NoError(t, repo.Create(user))

	found, err := repo.FindByEmail("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	// 이름이 없으면 아이디를 표시 이름으로 사용
	assert.Equal(t, "tester", found.DisplayName())

	_, err = repo.FindByEmail("notfound@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_Roles(t *testing.T) {
	testDB, repo := setupUserTest(t)

	staff := &model.User{Email: "staff@example.com", Username: "staff", Role: model.RoleStaff}
	user := &model.User{Email: "user@example.com", Username: "user"}
	require.NoError(t, repo.Create(staff))
	require.NoError(t, repo.Create(user))
	require.NoError(t, testDB.Model(staff).Update("is_active", false).Error)

	found, err := repo.FindByID(staff.ID)
	require.NoError(t, err)
	assert.True(t, found.IsStaff())
	assert.False(t, found.IsActive)

	found, err = repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, found.Role)
	assert.False(t, found.IsStaff())
}
