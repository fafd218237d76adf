package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryStorage 테스트용 파일 저장소
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryStorage) URL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memoryStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// recordingNotifier 알림 호출 기록
type recordingNotifier struct {
	mu        sync.Mutex
	moderated []model.ModerationStatus
	replied   int
}

func (n *recordingNotifier) NotifyReviewModerated(_ context.Context, review *model.Review, _ *Target) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moderated = append(n.moderated, review.ModerationStatus)
}

func (n *recordingNotifier) NotifyReviewReplied(_ context.Context, _ *model.Review, _ *model.ReviewReply, _ *Target) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replied++
}

type serviceFixture struct {
	db       *gorm.DB
	targets  *TargetRegistry
	files    *memoryStorage
	notifier *recordingNotifier

	reviews    ReviewService
	moderation ModerationService
	ratings    RatingService
	replies    ReplyService
	media      MediaService
	companies  CompanyService

	company  *model.Company
	manager  *model.User
	staff    *model.User
	stranger *model.User
	authors  []*model.User
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &serviceFixture{
		db:       testDB,
		targets:  DefaultTargetRegistry(),
		files:    newMemoryStorage(),
		notifier: &recordingNotifier{},
	}
	f.reviews = NewReviewService(testDB, f.targets, f.files, nil)
	f.moderation = NewModerationService(testDB, f.targets, f.notifier)
	f.ratings = NewRatingService(testDB, f.targets)
	f.replies = NewReplyService(testDB, f.targets, f.notifier)
	f.media = NewMediaService(testDB, f.files, 1024*1024)
	f.companies = NewCompanyService(testDB, f.files)

	f.manager = f.createUser(t, "manager", model.RoleUser)
	f.staff = f.createUser(t, "staff", model.RoleStaff)
	f.stranger = f.createUser(t, "stranger", model.RoleUser)
	for i := 0; i < 3; i++ {
		f.authors = append(f.authors, f.createUser(t, fmt.Sprintf("author%d", i), model.RoleUser))
	}

	f.company, err = f.companies.CreateCompany(f.manager.ID, CreateCompanyInput{Name: "Acme Coffee", City: "Seoul"})
	require.NoError(t, err)
	return f
}

func (f *serviceFixture) createUser(t *testing.T, name string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{Email: name + "@example.com", Username: name, Name: name, Role: role}
	require.NoError(t, repository.NewUserRepository(f.db).Create(user))
	return user
}

func (f *serviceFixture) submit(t *testing.T, author *model.User, rating int) *model.Review {
	t.Helper()
	review, err := f.reviews.SubmitReview(context.Background(), SubmitReviewInput{
		Target: f.company.ReviewTarget(),
		UserID: author.ID,
		Rating: rating,
		Body:   "good place",
	})
	require.NoError(t, err)
	return review
}

func (f *serviceFixture) moderate(t *testing.T, review *model.Review, decision model.ModerationStatus) *ModerationResult {
	t.Helper()
	result, err := f.moderation.Moderate(context.Background(), review.ID, decision, f.manager.ID)
	require.NoError(t, err)
	return result
}

// companyRating DB에 저장된 평점 캐시
func (f *serviceFixture) companyRating(t *testing.T) model.RatingAggregate {
	t.Helper()
	company, err := repository.NewCompanyRepository(f.db).FindByID(f.company.ID)
	require.NoError(t, err)
	return model.RatingAggregate{Average: company.RatingAverage, Count: company.RatingCount}
}

func (f *serviceFixture) reviewStatus(t *testing.T, id uint) model.ModerationStatus {
	t.Helper()
	review, err := repository.NewReviewRepository(f.db).FindByID(id)
	require.NoError(t, err)
	return review.ModerationStatus
}

func upload(name string) MediaUpload {
	data := []byte("fake-bytes")
	return MediaUpload{Filename: name, ContentType: "image/jpeg", Size: int64(len(data)), Body: bytes.NewReader(data)}
}
