package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	apperrors "github.com/ikkim/bizreview-backend/internal/errors"
	"github.com/ikkim/bizreview-backend/internal/middleware"
)

type ReviewController struct {
	targets    *service.TargetRegistry
	reviews    service.ReviewService
	moderation service.ModerationService
	replies    service.ReplyService
	media      service.MediaService
	ratings    service.RatingService
}

func NewReviewController(
	targets *service.TargetRegistry,
	reviews service.ReviewService,
	moderation service.ModerationService,
	replies service.ReplyService,
	media service.MediaService,
	ratings service.RatingService,
) *ReviewController {
	return &ReviewController{
		targets:    targets,
		reviews:    reviews,
		moderation: moderation,
		replies:    replies,
		media:      media,
		ratings:    ratings,
	}
}

type SubmitReviewRequest struct {
	Rating int    `json:"rating"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

type EditReviewRequest struct {
	Rating         int    `json:"rating"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	RemoveMediaIDs []uint `json:"remove_media_ids"`
}

type ModerateReviewRequest struct {
	Decision model.ModerationStatus `json:"decision" binding:"required"`
}

type BulkModerateRequest struct {
	ReviewIDs []uint                 `json:"review_ids" binding:"required"`
	Decision  model.ModerationStatus `json:"decision" binding:"required"`
}

type ReplyRequest struct {
	Body string `json:"body"`
}

// SubmitReview 리뷰 작성
// @Router /api/v1/targets/{kind}/{id}/reviews [post]
func (ctrl *ReviewController) SubmitReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	review, err := ctrl.reviews.SubmitReview(c.Request.Context(), service.SubmitReviewInput{
		Target:    ref,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err, "submit review")
		return
	}

	log.Info("Review submitted", map[string]interface{}{
		"review_id": review.ID,
		"target":    ref.String(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"review": review,
	})
}

// ListTargetReviews 승인된 리뷰 목록 (공개)
// @Router /api/v1/targets/{kind}/{id}/reviews [get]
func (ctrl *ReviewController) ListTargetReviews(c *gin.Context) {
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	result, err := ctrl.reviews.ListPublicReviews(ref, page, pageSize)
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMyReview 대상에 대한 내 리뷰 (상태 무관)
// @Router /api/v1/targets/{kind}/{id}/reviews/me [get]
func (ctrl *ReviewController) GetMyReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}

	review, err := ctrl.reviews.GetMyReview(ref, userID)
	if err != nil {
		respondError(c, err, "get my review")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"review": review,
	})
}

// GetRating 평점 요약 (평균, 개수, 분포)
// @Router /api/v1/targets/{kind}/{id}/rating [get]
func (ctrl *ReviewController) GetRating(c *gin.Context) {
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}

	summary, err := ctrl.ratings.GetRatingSummary(ref)
	if err != nil {
		respondError(c, err, "get rating")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// EditReview 리뷰 수정 (작성자 본인, 수정 시 재검수)
// @Router /api/v1/reviews/{id} [patch]
func (ctrl *ReviewController) EditReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id", "리뷰")
	if !ok {
		return
	}

	var req EditReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	review, err := ctrl.reviews.EditReview(c.Request.Context(), reviewID, userID, service.EditReviewInput{
		Rating:         req.Rating,
		Title:          req.Title,
		Body:           req.Body,
		RemoveMediaIDs: req.RemoveMediaIDs,
	})
	if err != nil {
		respondError(c, err, "edit review")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"review": review,
	})
}

// DeleteReview 리뷰 삭제 (대상 관리자 또는 스태프)
// @Router /api/v1/reviews/{id} [delete]
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id", "리뷰")
	if !ok {
		return
	}

	if err := ctrl.reviews.DeleteReview(c.Request.Context(), reviewID, userID); err != nil {
		respondError(c, err, "delete review")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "리뷰가 삭제되었습니다",
	})
}

// ModerateReview 리뷰 승인/반려
// @Router /api/v1/reviews/{id}/moderation [patch]
func (ctrl *ReviewController) ModerateReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id", "리뷰")
	if !ok {
		return
	}

	var req ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ReviewInvalidDecision, "decision 값이 필요합니다 (APPROVED, REJECTED)")
		return
	}

	result, err := ctrl.moderation.Moderate(c.Request.Context(), reviewID, req.Decision, userID)
	if err != nil {
		respondError(c, err, "moderate review")
		return
	}

	log.Info("Review moderated", map[string]interface{}{
		"review_id": reviewID,
		"decision":  req.Decision,
		"changed":   result.Changed,
	})

	c.JSON(http.StatusOK, result)
}

// BulkModerate 여러 리뷰 일괄 승인/반려
// @Router /api/v1/reviews/moderation/bulk [post]
func (ctrl *ReviewController) BulkModerate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req BulkModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "review_ids와 decision 값이 필요합니다")
		return
	}

	result, err := ctrl.moderation.ModerateBulk(c.Request.Context(), req.ReviewIDs, req.Decision, userID)
	if err != nil {
		respondError(c, err, "bulk moderate")
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpsertReply 리뷰 답글 작성/수정 (대상 관리자)
// @Router /api/v1/reviews/{id}/reply [post]
func (ctrl *ReviewController) UpsertReply(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id", "리뷰")
	if !ok {
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	reply, err := ctrl.replies.UpsertReply(c.Request.Context(), reviewID, userID, req.Body)
	if err != nil {
		respondError(c, err, "upsert reply")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reply": reply,
	})
}

// UploadMedia 리뷰 첨부 파일 업로드 (multipart "file")
// @Router /api/v1/reviews/{id}/media [post]
func (ctrl *ReviewController) UploadMedia(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "id", "리뷰")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "업로드할 파일이 필요합니다")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "파일을 읽을 수 없습니다")
		return
	}
	defer file.Close()

	media, err := ctrl.media.AttachMedia(c.Request.Context(), reviewID, userID, service.MediaUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err, "upload media")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"media": media,
	})
}

// ListMyReviews 내가 작성한 리뷰 목록
// @Router /api/v1/users/me/reviews [get]
func (ctrl *ReviewController) ListMyReviews(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	result, err := ctrl.reviews.ListUserReviews(userID, page, pageSize)
	if err != nil {
		respondError(c, err, "list my reviews")
		return
	}
	c.JSON(http.StatusOK, result)
}

// dashboardQuery status, search, page 쿼리 파싱
func dashboardQuery(c *gin.Context) (service.ReviewListQuery, bool) {
	page, pageSize := pageParams(c)
	query := service.ReviewListQuery{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status := model.ModerationStatus(raw)
		switch status {
		case model.ModerationPending, model.ModerationApproved, model.ModerationRejected:
			query.Status = &status
		default:
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "status는 PENDING, APPROVED, REJECTED 중 하나여야 합니다")
			return query, false
		}
	}
	return query, true
}

// ListDashboardReviews 대상 관리자용 리뷰 목록 (모든 상태)
// @Router /api/v1/dashboard/targets/{kind}/{id}/reviews [get]
func (ctrl *ReviewController) ListDashboardReviews(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}
	query, ok := dashboardQuery(c)
	if !ok {
		return
	}

	result, err := ctrl.reviews.ListDashboardReviews(ref, userID, query)
	if err != nil {
		respondError(c, err, "list dashboard reviews")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportDashboardReviews 리뷰 목록 XLSX 다운로드
// @Router /api/v1/dashboard/targets/{kind}/{id}/reviews/export [get]
func (ctrl *ReviewController) ExportDashboardReviews(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ref, ok := parseTargetParams(c, ctrl.targets)
	if !ok {
		return
	}
	query, ok := dashboardQuery(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("reviews-%s-%d-%s.xlsx", ref.Kind, ref.ID, time.Now().Format("20060102"))
	w := &deferredWriter{c: c, filename: filename}
	rows, err := ctrl.reviews.ExportDashboardReviews(ref, userID, query, w)
	if err != nil && !w.started {
		respondError(c, err, "export reviews")
		return
	}
	if err != nil {
		log.Error("Review export interrupted", err, map[string]interface{}{
			"target": ref.String(),
		})
		return
	}

	log.Info("Reviews exported", map[string]interface{}{
		"target": ref.String(),
		"rows":   rows,
	})
}

// deferredWriter 첫 쓰기 시점에 다운로드 헤더를 설정 (권한 오류는 JSON으로 응답)
type deferredWriter struct {
	c        *gin.Context
	filename string
	started  bool
}

func (w *deferredWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", w.filename))
		w.c.Status(http.StatusOK)
	}
	return w.c.Writer.Write(p)
}
