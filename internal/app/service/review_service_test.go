package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSubmitReview(t *testing.T) {
	f := setupServiceTest(t)

	review, err := f.reviews.SubmitReview(context.Background(), SubmitReviewInput{
		Target:    f.company.ReviewTarget(),
		UserID:    f.authors[0].ID,
		Rating:    4,
		Title:     "  Cozy  ",
		Body:      "Great latte",
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ModerationPending, review.ModerationStatus)
	assert.True(t, review.IsVerified)
	assert.Equal(t, "Cozy", review.Title)
	assert.Equal(t, f.authors[0].Name, review.AuthorName)
	assert.Equal(t, f.authors[0].Email, review.AuthorEmail)
	assert.Equal(t, "10.0.0.1", review.IPAddress)
	assert.True(t, review.IsOwnedBy(f.authors[0].ID))
}

func TestSubmitReview_Duplicate(t *testing.T) {
	f := setupServiceTest(t)
	f.submit(t, f.authors[0], 4)

	_, err := f.reviews.SubmitReview(context.Background(), SubmitReviewInput{
		Target: f.company.ReviewTarget(),
		UserID: f.authors[0].ID,
		Rating: 2,
		Body:   "second try",
	})
	assert.ErrorIs(t, err, ErrDuplicateReview)

	var count int64
	require.NoError(t, f.db.Model(&model.Review{}).Where("user_id = ?", f.authors[0].ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmitReview_Validation(t *testing.T) {
	f := setupServiceTest(t)

	tests := []struct {
		name    string
		author  *model.User
		rating  int
		title   string
		body    string
		wantErr string // 비어있으면 성공
	}{
		{"rating zero", f.authors[0], 0, "", "body", "rating"},
		{"rating six", f.authors[0], 6, "", "body", "rating"},
		{"blank body", f.authors[0], 3, "", "   ", "body"},
		{"title too long", f.authors[0], 3, strings.Repeat("가", 256), "body", "title"},
		{"rating one", f.authors[0], 1, "", "body", ""},
		{"rating five", f.authors[1], 5, strings.Repeat("가", 255), "body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reviews.SubmitReview(context.Background(), SubmitReviewInput{
				Target: f.company.ReviewTarget(),
				UserID: tt.author.ID,
				Rating: tt.rating,
				Title:  tt.title,
				Body:   tt.body,
			})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestSubmitReview_TargetAndAuthorChecks(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	_, err := f.reviews.SubmitReview(ctx, SubmitReviewInput{Target: model.TargetRef{Kind: "event", ID: 1}, UserID: f.authors[0].ID, Rating: 3, Body: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedTargetKind)

	_, err = f.reviews.SubmitReview(ctx, SubmitReviewInput{Target: model.TargetRef{Kind: model.TargetCompany, ID: 9999}, UserID: f.authors[0].ID, Rating: 3, Body: "x"})
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = f.reviews.SubmitReview(ctx, SubmitReviewInput{Target: f.company.ReviewTarget(), UserID: 0, Rating: 3, Body: "x"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.authors[1].ID).Update("is_active", false).Error)
	_, err = f.reviews.SubmitReview(ctx, SubmitReviewInput{Target: f.company.ReviewTarget(), UserID: f.authors[1].ID, Rating: 3, Body: "x"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	draft := &model.BlogPost{Title: "Draft post", Status: model.BlogPostDraft}
	require.NoError(t, f.db.Create(draft).Error)
	_, err = f.reviews.SubmitReview(ctx, SubmitReviewInput{Target: draft.ReviewTarget(), UserID: f.authors[0].ID, Rating: 3, Body: "x"})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestEditReview_ResetsModerationAndRating(t *testing.T) {
	f := setupServiceTest(t)
	review := f.submit(t, f.authors[0], 4)
	f.moderate(t, review, model.ModerationApproved)
	require.Equal(t, model.RatingAggregate{Average: 4.00, Count: 1}, f.companyRating(t))

	edited, err := f.reviews.EditReview(context.Background(), review.ID, f.authors[0].ID, EditReviewInput{
		Rating: 2,
		Title:  "changed my mind",
		Body:   "coffee was cold",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ModerationPending, edited.ModerationStatus)
	assert.Equal(t, 2, edited.Rating)
	assert.Equal(t, model.RatingAggregate{Average: 0, Count: 0}, f.companyRating(t))

	// 재승인 결과는 처음부터 2점으로 승인한 것과 같음
	f.moderate(t, edited, model.ModerationApproved)
	assert.Equal(t, model.RatingAggregate{Average: 2.00, Count: 1}, f.companyRating(t))
}

func TestEditReview_OwnerOnlyAndScopedMediaRemoval(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	mine := f.submit(t, f.authors[0], 4)
	other := f.submit(t, f.authors[1], 4)

	ownMedia, err := f.media.AttachMedia(ctx, mine.ID, f.authors[0].ID, upload("a.jpg"))
	require.NoError(t, err)
	foreignMedia, err := f.media.AttachMedia(ctx, other.ID, f.authors[1].ID, upload("b.png"))
	require.NoError(t, err)

	_, err = f.reviews.EditReview(ctx, mine.ID, f.authors[1].ID, EditReviewInput{Rating: 1, Body: "hijack"})
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := f.reviews.EditReview(ctx, mine.ID, f.authors[0].ID, EditReviewInput{
		Rating:         5,
		Body:           "even better",
		RemoveMediaIDs: []uint{ownMedia.ID, foreignMedia.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, edited.Media)

	reloaded, err := f.reviews.GetMyReview(f.company.ReviewTarget(), f.authors[1].ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Media, 1)
	assert.Equal(t, foreignMedia.ID, reloaded.Media[0].ID)
	assert.Equal(t, f.files.URL(reloaded.Media[0].FileKey), reloaded.Media[0].URL)

	assert.Equal(t, 1, f.files.count())
}

func TestDeleteReview(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	approved := f.submit(t, f.authors[0], 5)
	f.moderate(t, approved, model.ModerationApproved)
	pending := f.submit(t, f.authors[1], 1)
	_, err := f.media.AttachMedia(ctx, approved.ID, f.authors[0].ID, upload("photo.webp"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, approved.ID, f.stranger.ID), ErrForbidden)
	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, approved.ID, f.authors[0].ID), ErrForbidden)
	assert.Equal(t, model.RatingAggregate{Average: 5, Count: 1}, f.companyRating(t))
	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, 9999, f.manager.ID), ErrReviewNotFound)

	require.NoError(t, f.reviews.DeleteReview(ctx, approved.ID, f.manager.ID))
	assert.Equal(t, model.RatingAggregate{Average: 0, Count: 0}, f.companyRating(t))
	assert.Equal(t, 0, f.files.count())

	assert.ErrorIs(t, f.reviews.DeleteReview(ctx, pending.ID, f.authors[1].ID), ErrForbidden)
	require.NoError(t, f.reviews.DeleteReview(ctx, pending.ID, f.staff.ID))
	_, err = f.reviews.GetMyReview(f.company.ReviewTarget(), f.authors[1].ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestListPublicReviews_ApprovedOnly(t *testing.T) {
	f := setupServiceTest(t)
	a := f.submit(t, f.authors[0], 5)
	f.submit(t, f.authors[1], 2)
	c := f.submit(t, f.authors[2], 4)
	f.moderate(t, a, model.ModerationApproved)
	f.moderate(t, c, model.ModerationApproved)

	page, err := f.reviews.ListPublicReviews(f.company.ReviewTarget(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Data, 1)
	assert.Equal(t, c.ID, page.Data[0].ID)
	assert.NotNil(t, page.Data[0].Media)
}

func TestListDashboardReviews(t *testing.T) {
	f := setupServiceTest(t)
	f.submit(t, f.authors[0], 5)
	b := f.submit(t, f.authors[1], 2)
	require.NoError(t, f.db.Model(&model.Review{}).Where("id = ?", b.ID).Update("title", "Rude staff").Error)

	_, err := f.reviews.ListDashboardReviews(f.company.ReviewTarget(), f.stranger.ID, ReviewListQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	pending := model.ModerationPending
	page, err := f.reviews.ListDashboardReviews(f.company.ReviewTarget(), f.manager.ID, ReviewListQuery{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.reviews.ListDashboardReviews(f.company.ReviewTarget(), f.manager.ID, ReviewListQuery{Search: "rude"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, b.ID, page.Data[0].ID)
}

func TestListUserReviews(t *testing.T) {
	f := setupServiceTest(t)
	f.submit(t, f.authors[0], 5)

	page, err := f.reviews.ListUserReviews(f.authors[0].ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.reviews.ListUserReviews(f.authors[1].ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestExportDashboardReviews(t *testing.T) {
	f := setupServiceTest(t)
	review := f.submit(t, f.authors[0], 5)
	_, err := f.replies.UpsertReply(context.Background(), review.ID, f.manager.ID, "thank you!")
	require.NoError(t, err)

	var buf bytes.Buffer
	rows, err := f.reviews.ExportDashboardReviews(f.company.ReviewTarget(), f.manager.ID, ReviewListQuery{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	sheet, err := book.GetRows("Reviews")
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	assert.Equal(t, "ID", sheet[0][0])
	assert.Equal(t, "5", sheet[1][3])
	assert.Equal(t, "thank you!", sheet[1][7])

	_, err = f.reviews.ExportDashboardReviews(f.company.ReviewTarget(), f.stranger.ID, ReviewListQuery{}, &buf)
	assert.ErrorIs(t, err, ErrForbidden)
}
