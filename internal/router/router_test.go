package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizreview-backend/config"
	"github.com/ikkim/bizreview-backend/internal/app/controller"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/ikkim/bizreview-backend/internal/db"
	"github.com/ikkim/bizreview-backend/internal/middleware"
	"github.com/ikkim/bizreview-backend/internal/storage"
	ws "github.com/ikkim/bizreview-backend/internal/websocket"
	"github.com/ikkim/bizreview-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type apiFixture struct {
	db      *gorm.DB
	engine  *gin.Engine
	company *model.Company
	manager *model.User
	author  *model.User
	other   *model.User
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: gin.TestMode},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		Storage: config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), LocalBaseURL: "/uploads", MaxFileSize: 1024 * 1024},
	}

	files := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
	targets := service.DefaultTargetRegistry()
	hub := ws.NewHub()

	notifications := service.NewNotificationService(repository.NewNotificationRepository(testDB), nil, nil, "")
	companies := service.NewCompanyService(testDB, files)

	reviewCtrl := controller.NewReviewController(
		targets,
		service.NewReviewService(testDB, targets, files, nil),
		service.NewModerationService(testDB, targets, notifications),
		service.NewReplyService(testDB, targets, notifications),
		service.NewMediaService(testDB, files, cfg.Storage.MaxFileSize),
		service.NewRatingService(testDB, targets),
	)
	r := NewRouter(
		reviewCtrl,
		controller.NewCompanyController(companies),
		controller.NewNotificationController(notifications, hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(testSecret),
		cfg,
	)

	f := &apiFixture{db: testDB, engine: r.Setup()}
	f.manager = f.createUser(t, "manager")
	f.author = f.createUser(t, "author")
	f.other = f.createUser(t, "other")

	f.company, err = companies.CreateCompany(f.manager.ID, service.CreateCompanyInput{Name: "Acme Coffee", City: "Seoul"})
	require.NoError(t, err)
	return f
}

func (f *apiFixture) createUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{Email: name + "@example.com", Username: name, Name: name, Role: model.RoleUser}
	require.NoError(t, repository.NewUserRepository(f.db).Create(user))
	return user
}

func token(t *testing.T, user *model.User) string {
	t.Helper()
	pair, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return pair.AccessToken
}

func (f *apiFixture) do(t *testing.T, method, path string, user *model.User, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func (f *apiFixture) reviewsPath() string {
	return fmt.Sprintf("/api/v1/targets/company/%d/reviews", f.company.ID)
}

func TestHealth(t *testing.T) {
	f := setupAPI(t)

	w, body := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestReviewFlow(t *testing.T) {
	f := setupAPI(t)

	w, _ := f.do(t, http.MethodPost, f.reviewsPath(), nil, map[string]interface{}{"rating": 4, "body": "nice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := f.do(t, http.MethodPost, f.reviewsPath(), f.author, map[string]interface{}{"rating": 4, "body": "nice"})
	require.Equal(t, http.StatusCreated, w.Code)
	review := body["review"].(map[string]interface{})
	assert.Equal(t, "PENDING", review["moderation_status"])
	reviewID := uint(review["id"].(float64))

	w, body = f.do(t, http.MethodPost, f.reviewsPath(), f.author, map[string]interface{}{"rating": 5, "body": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REVIEW_ALREADY_EXISTS", body["error"])

	// 대기 중인 리뷰는 공개 목록에 나오지 않음
	w, body = f.do(t, http.MethodGet, f.reviewsPath(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["total"])

	moderationPath := fmt.Sprintf("/api/v1/reviews/%d/moderation", reviewID)
	w, body = f.do(t, http.MethodPatch, moderationPath, f.other, map[string]interface{}{"decision": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_FORBIDDEN", body["error"])

	w, body = f.do(t, http.MethodPatch, moderationPath, f.manager, map[string]interface{}{"decision": "APPROVED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["changed"])

	w, body = f.do(t, http.MethodPatch, moderationPath, f.manager, map[string]interface{}{"decision": "APPROVED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["changed"])

	w, body = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/targets/company/%d/rating", f.company.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, body["rating_average"])
	assert.Equal(t, float64(1), body["rating_count"])

	w, body = f.do(t, http.MethodGet, f.reviewsPath(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])
}

func TestSubmitReview_InvalidRating(t *testing.T) {
	f := setupAPI(t)

	w, body := f.do(t, http.MethodPost, f.reviewsPath(), f.author, map[string]interface{}{"rating": 6, "body": "too good"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REVIEW_INVALID_RATING", body["error"])
}

func TestUnknownTarget(t *testing.T) {
	f := setupAPI(t)

	w, _ := f.do(t, http.MethodGet, "/api/v1/targets/store/1/rating", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/targets/company/9999/rating", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := f.do(t, http.MethodGet, "/api/v1/targets/company/abc/rating", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_ID", body["error"])
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	f := setupAPI(t)

	w, _ := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/companies/%d", f.company.ID), f.manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
