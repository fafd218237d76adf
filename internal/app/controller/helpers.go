package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	apperrors "github.com/ikkim/bizreview-backend/internal/errors"
	"github.com/ikkim/bizreview-backend/internal/middleware"
	"github.com/ikkim/bizreview-backend/pkg/pagination"
)

// parseIDParam 경로 파라미터를 ID로 변환 (실패 시 400 응답)
func parseIDParam(c *gin.Context, name, label string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid path parameter", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "잘못된 "+label+" ID입니다")
		return 0, false
	}
	return uint(id), true
}

// parseTargetParams /:kind/:id 경로를 리뷰 대상으로 변환
func parseTargetParams(c *gin.Context, targets *service.TargetRegistry) (model.TargetRef, bool) {
	kind, err := targets.ParseTargetKind(c.Param("kind"))
	if err != nil {
		respondError(c, err, "parse target")
		return model.TargetRef{}, false
	}
	id, ok := parseIDParam(c, "id", "대상")
	if !ok {
		return model.TargetRef{}, false
	}
	return model.TargetRef{Kind: kind, ID: id}, true
}

// requireUserID 인증된 사용자 ID (없으면 401 응답)
func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "로그인이 필요합니다")
		return 0, false
	}
	return userID, true
}

// pageParams page, page_size 쿼리 (범위 보정 포함)
func pageParams(c *gin.Context) (int, int) {
	params := pagination.FromRequest(c.Request)
	return params.Page, params.PageSize
}

// respondError 서비스 에러를 로그로 남기고 표준 응답으로 변환
func respondError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)
	status, body := apperrors.ResolveServiceError(err)
	fields := map[string]interface{}{
		"action": action,
		"status": status,
		"code":   body.Error,
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		log.Warn("Request rejected", fields)
	}
	c.JSON(status, body)
}
