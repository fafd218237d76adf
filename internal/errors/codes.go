package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰
	AuthInactiveUser = "AUTH_INACTIVE_USER" // 비활성 계정

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 리뷰 대상 (TARGET_) ====================
	TargetNotFound        = "TARGET_NOT_FOUND"        // 대상 없음 (비공개 포함)
	TargetUnsupportedKind = "TARGET_UNSUPPORTED_KIND" // 지원하지 않는 대상 종류
	CompanyNotFound       = "COMPANY_NOT_FOUND"       // 회사 없음

	// ==================== 리뷰 (REVIEW_) ====================
	ReviewNotFound        = "REVIEW_NOT_FOUND"        // 리뷰 없음
	ReviewInvalidRating   = "REVIEW_INVALID_RATING"   // 잘못된 평점
	ReviewAlreadyExists   = "REVIEW_ALREADY_EXISTS"   // 이미 리뷰 작성함
	ReviewInvalidDecision = "REVIEW_INVALID_DECISION" // 잘못된 검수 결과
	ReviewMediaLimit      = "REVIEW_MEDIA_LIMIT"      // 첨부 개수 초과

	// ==================== 알림 (NOTIFICATION_) ====================
	NotificationNotFound = "NOTIFICATION_NOT_FOUND" // 알림 없음

	// ==================== 업로드 (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE" // 잘못된 파일 형식
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"    // 파일 너무 큼
	UploadFailed          = "UPLOAD_FAILED"            // 업로드 실패

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR" // 서버 오류
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // 외부 API 오류
)
