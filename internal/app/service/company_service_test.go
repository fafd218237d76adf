package service

import (
	"context"
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateCompany_GrantsOwnerMembership(t *testing.T) {
	f := setupServiceTest(t)

	assert.Equal(t, "seoul-acme-coffee", f.company.Slug)
	membership, err := repository.NewCompanyRepository(f.db).FindMembership(f.manager.ID, f.company.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipOwner, membership.Role)
	assert.True(t, membership.CanManage())

	_, err = f.companies.CreateCompany(f.manager.ID, CreateCompanyInput{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddMember(t *testing.T) {
	f := setupServiceTest(t)
	review := f.submit(t, f.authors[0], 4)

	_, err := f.companies.AddMember(f.company.ID, f.stranger.ID, f.stranger.ID, model.MembershipManager)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.companies.AddMember(f.company.ID, f.manager.ID, f.stranger.ID, model.MembershipEmployee)
	require.NoError(t, err)
	_, err = f.moderation.Moderate(context.Background(), review.ID, model.ModerationApproved, f.stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden, "employees cannot moderate")

	_, err = f.companies.AddMember(f.company.ID, f.manager.ID, f.stranger.ID, model.MembershipManager)
	require.NoError(t, err)
	_, err = f.moderation.Moderate(context.Background(), review.ID, model.ModerationApproved, f.stranger.ID)
	assert.NoError(t, err)

	_, err = f.companies.AddMember(f.company.ID, f.manager.ID, f.stranger.ID, "BOSS")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.companies.AddMember(9999, f.staff.ID, f.stranger.ID, model.MembershipManager)
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestListCompanies_HidesInactive(t *testing.T) {
	f := setupServiceTest(t)
	hidden, err := f.companies.CreateCompany(f.stranger.ID, CreateCompanyInput{Name: "Hidden Bar", City: "Seoul"})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Company{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	page, err := f.companies.ListCompanies(CompanyListOptions{City: "Seoul"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, f.company.ID, page.Data[0].ID)

	_, err = f.companies.GetCompanyBySlug(hidden.Slug)
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	found, err := f.companies.GetCompanyBySlug(f.company.Slug)
	require.NoError(t, err)
	assert.Equal(t, f.company.ID, found.ID)
}

func TestDeleteCompany_PurgesReviews(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	review := f.submit(t, f.authors[0], 4)
	_, err := f.media.AttachMedia(ctx, review.ID, f.authors[0].ID, upload("a.jpg"))
	require.NoError(t, err)
	_, err = f.replies.UpsertReply(ctx, review.ID, f.manager.ID, "thanks")
	require.NoError(t, err)

	require.NoError(t, f.companies.DeleteCompany(ctx, f.company.ID))

	var reviews, media, replies int64
	require.NoError(t, f.db.Model(&model.Review{}).Count(&reviews).Error)
	require.NoError(t, f.db.Model(&model.ReviewMedia{}).Count(&media).Error)
	require.NoError(t, f.db.Model(&model.ReviewReply{}).Count(&replies).Error)
	assert.Zero(t, reviews+media+replies)
	assert.Equal(t, 0, f.files.count())

	_, err = repository.NewCompanyRepository(f.db).FindByID(f.company.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, f.companies.DeleteCompany(ctx, f.company.ID), ErrCompanyNotFound)
}

func TestImportCompanies(t *testing.T) {
	f := setupServiceTest(t)
	n, err := f.companies.ImportCompanies([]model.Company{
		{Name: "Bakery One", City: "Daegu", IsActive: true},
		{Name: "Bakery Two", City: "Daegu", IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := f.companies.ListCompanies(CompanyListOptions{City: "Daegu"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
