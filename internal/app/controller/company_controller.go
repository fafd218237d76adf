package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	apperrors "github.com/ikkim/bizreview-backend/internal/errors"
	"github.com/ikkim/bizreview-backend/internal/middleware"
)

type CompanyController struct {
	companyService service.CompanyService
}

func NewCompanyController(companyService service.CompanyService) *CompanyController {
	return &CompanyController{companyService: companyService}
}

type CompanyRequest struct {
	Name        string `json:"name" binding:"required"`
	City        string `json:"city"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID uint                 `json:"user_id" binding:"required"`
	Role   model.MembershipRole `json:"role" binding:"required"`
}

func (ctrl *CompanyController) ListCompanies(c *gin.Context) {
	page, pageSize := pageParams(c)
	result, err := ctrl.companyService.ListCompanies(service.CompanyListOptions{
		City:     c.Query("city"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err, "list companies")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ctrl *CompanyController) GetCompany(c *gin.Context) {
	company, err := ctrl.companyService.GetCompanyBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err, "get company")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"company": company,
	})
}

func (ctrl *CompanyController) CreateCompany(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "회사명을 입력해주세요")
		return
	}

	company, err := ctrl.companyService.CreateCompany(userID, service.CreateCompanyInput{
		Name:        req.Name,
		City:        req.City,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Website:     req.Website,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "create company")
		return
	}

	log.Info("Company created", map[string]interface{}{
		"company_id": company.ID,
		"user_id":    userID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"company": company,
	})
}

// AddMember 회사 소속 추가 (OWNER 또는 스태프)
func (ctrl *CompanyController) AddMember(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "user_id와 role 값이 필요합니다")
		return
	}

	company, err := ctrl.companyService.GetCompanyBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err, "add member")
		return
	}

	membership, err := ctrl.companyService.AddMember(company.ID, userID, req.UserID, req.Role)
	if err != nil {
		respondError(c, err, "add member")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"membership": membership,
	})
}

// DeleteCompany 회사 삭제 (리뷰, 첨부 파일 포함)
func (ctrl *CompanyController) DeleteCompany(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	companyID, ok := parseIDParam(c, "id", "회사")
	if !ok {
		return
	}

	if err := ctrl.companyService.DeleteCompany(c.Request.Context(), companyID); err != nil {
		respondError(c, err, "delete company")
		return
	}

	log.Info("Company deleted", map[string]interface{}{
		"company_id": companyID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "회사가 삭제되었습니다",
	})
}
