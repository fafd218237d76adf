package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 저장소 계층 에러를 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보는 숨기되, 사용자가 문제를 해결할 수 있는 정보 제공
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// 1. GORM 에러 (TranslateError 사용)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: "연결된 데이터가 있어 처리할 수 없습니다"}
	}

	// 2. 드라이버 에러 메시지
	if strings.Contains(errStrLower, "check constraint") {
		return parseCheckConstraintError(errStrLower)
	}
	if strings.Contains(errStrLower, "violates not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "필수 항목이 누락되었습니다"}
	}

	// 3. 네트워크/연결 에러
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "idx_review_user_target") || strings.Contains(errLower, "reviews"):
		return ErrorInfo{Code: ReviewAlreadyExists, Message: "이미 리뷰를 작성하셨습니다"}
	case strings.Contains(errLower, "slug"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 식별자입니다"}
	case strings.Contains(errLower, "email"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 사용 중인 이메일입니다"}
	default:
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "이미 존재하는 데이터입니다"}
	}
}

// parseCheckConstraintError Check constraint 위반 에러 파싱
func parseCheckConstraintError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "rating") {
		return ErrorInfo{Code: ReviewInvalidRating, Message: "평점은 1~5 사이의 값이어야 합니다"}
	}
	return ErrorInfo{Code: ValidationInvalidInput, Message: "입력값이 유효하지 않습니다"}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "company") || strings.Contains(contextLower, "회사"):
		return "회사를 찾을 수 없습니다"
	case strings.Contains(contextLower, "user") || strings.Contains(contextLower, "사용자"):
		return "사용자를 찾을 수 없습니다"
	case strings.Contains(contextLower, "review") || strings.Contains(contextLower, "리뷰"):
		return "리뷰를 찾을 수 없습니다"
	case strings.Contains(contextLower, "notification") || strings.Contains(contextLower, "알림"):
		return "알림을 찾을 수 없습니다"
	default:
		return "요청한 데이터를 찾을 수 없습니다"
	}
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create") || strings.Contains(contextLower, "submit") || strings.Contains(contextLower, "등록"):
		return "등록 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "update") || strings.Contains(contextLower, "edit") || strings.Contains(contextLower, "수정"):
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제"):
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	case strings.Contains(contextLower, "moderat") || strings.Contains(contextLower, "검수"):
		return "검수 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	default:
		return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
}
