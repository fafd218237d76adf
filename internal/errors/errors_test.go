package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestResolveServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate review", service.ErrDuplicateReview, http.StatusConflict, ReviewAlreadyExists},
		{"forbidden", fmt.Errorf("moderate: %w", service.ErrForbidden), http.StatusForbidden, AuthzForbidden},
		{"inactive actor", service.ErrUnauthenticated, http.StatusUnauthorized, AuthInactiveUser},
		{"hidden target", service.ErrTargetNotFound, http.StatusNotFound, TargetNotFound},
		{"dangling target", service.ErrInvalidTarget, http.StatusNotFound, TargetNotFound},
		{"unknown kind", fmt.Errorf("%w: %q", service.ErrUnsupportedTargetKind, "store"), http.StatusNotFound, TargetUnsupportedKind},
		{"review", service.ErrReviewNotFound, http.StatusNotFound, ReviewNotFound},
		{"company", service.ErrCompanyNotFound, http.StatusNotFound, CompanyNotFound},
		{"notification", service.ErrNotificationNotFound, http.StatusNotFound, NotificationNotFound},
		{"media limit", service.ErrMediaLimitExceeded, http.StatusUnprocessableEntity, ReviewMediaLimit},
		{"media type", service.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, UploadInvalidFileType},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, ResourceNotFound},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, InternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ResolveServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.Empty(t, body.Fields)
		})
	}
}

func TestResolveServiceError_Validation(t *testing.T) {
	tests := []struct {
		field    string
		wantCode string
	}{
		{"rating", ReviewInvalidRating},
		{"decision", ReviewInvalidDecision},
		{"file", UploadFileTooLarge},
		{"body", ValidationInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := fmt.Errorf("submit: %w", &service.ValidationError{Field: tt.field, Message: "invalid"})

			status, body := ResolveServiceError(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.Equal(t, map[string]string{tt.field: "invalid"}, body.Fields)
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
		wantMsg  string
	}{
		{"nil", nil, "", InternalServerError, "서버 오류가 발생했습니다"},
		{"not found company", gorm.ErrRecordNotFound, "get company", ResourceNotFound, "회사를 찾을 수 없습니다"},
		{"not found review", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "review", ResourceNotFound, "리뷰를 찾을 수 없습니다"},
		{"duplicate", gorm.ErrDuplicatedKey, "", ResourceAlreadyExists, "이미 존재하는 데이터입니다"},
		{"duplicate review", errors.New(`duplicate key value violates unique constraint "idx_review_user_target"`), "", ReviewAlreadyExists, "이미 리뷰를 작성하셨습니다"},
		{"foreign key", gorm.ErrForeignKeyViolated, "", ResourceConflict, "연결된 데이터가 있어 처리할 수 없습니다"},
		{"rating check", errors.New(`new row violates check constraint "chk_reviews_rating"`), "", ReviewInvalidRating, "평점은 1~5 사이의 값이어야 합니다"},
		{"timeout", errors.New("dial tcp: i/o timeout"), "", InternalExternalAPI, "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요"},
		{"delete fallback", errors.New("boom"), "delete review", InternalServerError, "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.Equal(t, tt.wantMsg, info.Message)
		})
	}
}
