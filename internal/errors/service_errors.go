package errors

import (
	"errors"
	"net/http"

	"github.com/ikkim/bizreview-backend/internal/app/service"
)

// serviceError 서비스 에러 -> HTTP 응답 매핑
type serviceError struct {
	target  error
	status  int
	code    string
	message string
}

// 순서가 중요합니다 (더 구체적인 에러 먼저)
var serviceErrors = []serviceError{
	{service.ErrDuplicateReview, http.StatusConflict, ReviewAlreadyExists, "이미 리뷰를 작성하셨습니다"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, AuthInactiveUser, "사용할 수 없는 계정입니다"},
	{service.ErrForbidden, http.StatusForbidden, AuthzForbidden, "접근 권한이 없습니다"},
	{service.ErrReviewNotFound, http.StatusNotFound, ReviewNotFound, "리뷰를 찾을 수 없습니다"},
	{service.ErrCompanyNotFound, http.StatusNotFound, CompanyNotFound, "회사를 찾을 수 없습니다"},
	{service.ErrNotificationNotFound, http.StatusNotFound, NotificationNotFound, "알림을 찾을 수 없습니다"},
	// 비공개 대상은 존재 여부를 드러내지 않음
	{service.ErrInvalidTarget, http.StatusNotFound, TargetNotFound, "리뷰 대상을 찾을 수 없습니다"},
	{service.ErrTargetNotFound, http.StatusNotFound, TargetNotFound, "리뷰 대상을 찾을 수 없습니다"},
	{service.ErrUnsupportedTargetKind, http.StatusNotFound, TargetUnsupportedKind, "리뷰 대상을 찾을 수 없습니다"},
	{service.ErrMediaLimitExceeded, http.StatusUnprocessableEntity, ReviewMediaLimit, "리뷰당 첨부 파일은 최대 5개입니다"},
	{service.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, UploadInvalidFileType, "지원하지 않는 파일 형식입니다 (jpg, png, webp, mp4, mov, webm)"},
}

// ResolveServiceError 서비스 에러의 상태 코드와 응답 본문
func ResolveServiceError(err error) (int, ValidationError) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		code := ValidationInvalidInput
		switch verr.Field {
		case "rating":
			code = ReviewInvalidRating
		case "decision":
			code = ReviewInvalidDecision
		case "file":
			code = UploadFileTooLarge
		}
		return http.StatusBadRequest, ValidationError{
			Error:   code,
			Message: "입력값이 올바르지 않습니다",
			Fields:  map[string]string{verr.Field: verr.Message},
		}
	}

	for _, se := range serviceErrors {
		if errors.Is(err, se.target) {
			return se.status, ValidationError{Error: se.code, Message: se.message}
		}
	}

	info := ParseError(err, "")
	status := http.StatusInternalServerError
	if info.Code == ResourceNotFound {
		status = http.StatusNotFound
	}
	return status, ValidationError{Error: info.Code, Message: info.Message}
}
