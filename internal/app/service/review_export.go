package service

import (
	"fmt"
	"io"

	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet   = "Reviews"
	exportMaxRows = 10000
)

var exportHeaders = []string{"ID", "작성일", "작성자", "평점", "제목", "내용", "검수 상태", "답글", "첨부 수"}

// ExportDashboardReviews 대시보드 리뷰 목록을 XLSX로 내보냅니다 (페이지 무시, 최대 1만 건)
func (s *reviewService) ExportDashboardReviews(ref model.TargetRef, actorID uint, query ReviewListQuery, w io.Writer) (int, error) {
	if err := s.authorizeDashboard(ref, actorID); err != nil {
		return 0, err
	}

	filter := repository.ReviewFilter{Status: query.Status, Search: query.Search}
	reviews, _, err := repository.NewReviewRepository(s.db).ListByTarget(ref, filter, 0, exportMaxRows)
	if err != nil {
		return 0, fmt.Errorf("failed to list reviews: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return 0, err
	}

	for i, r := range reviews {
		reply := ""
		if r.Reply != nil {
			reply = r.Reply.Body
		}
		row := []interface{}{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.AuthorName,
			r.Rating,
			r.Title,
			r.Body,
			string(r.ModerationStatus),
			reply,
			len(r.Media),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return 0, err
		}
	}

	if err := f.SetColWidth(exportSheet, "E", "F", 40); err != nil {
		return 0, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info("Dashboard reviews exported", map[string]interface{}{
		"target":   ref.String(),
		"actor_id": actorID,
		"rows":     len(reviews),
	})
	return len(reviews), nil
}
