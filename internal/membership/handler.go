package membership

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/auth"
)

type Handler struct {
	service   Service
	jwtSecret string
}

func NewHandler(service Service, jwtSecret string) *Handler {
	return &Handler{
		service:   service,
		jwtSecret: jwtSecret,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token  string  `json:"token"`
	Member *Member `json:"member"`
}

type PurchaseRequest struct {
	Method string `json:"method" binding:"required,oneof=cash gateway"`
}

type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required"`
	PriceCents   int64  `json:"price_cents" binding:"required,gte=0"`
	DurationDays int    `json:"duration_days" binding:"required,gte=1"`
	ClassCredits *int   `json:"class_credits,omitempty"`
	WeekdayMask  *int   `json:"weekday_mask,omitempty"`
}

// Login godoc
// @Summary      Member login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	member, err := h.service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "login failed"})
		return
	}

	token, err := auth.GenerateToken(member.ID, member.TenantID, member.Role, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Member: member})
}

// Purchase godoc
// @Summary      Purchase a membership plan
// @Description  Stacks the new period onto the member's latest active period. Cash settles immediately; gateway returns a payment link.
// @Tags         membership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        planID  path int             true "Plan ID"
// @Param        request body PurchaseRequest true "Payment method"
// @Success      201 {object} PurchaseResult
// @Failure      404 {object} api.ErrorResponse
// @Router       /plans/{planID}/purchase [post]
func (h *Handler) Purchase(c *gin.Context) {
	tenantID, memberID, planID, ok := h.purchaseParams(c)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	method, err := methodFromString(req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Purchase(c.Request.Context(), tenantID, memberID, planID, method)
	if err != nil {
		h.respondPurchaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Renew godoc
// @Summary      Renew a membership plan
// @Description  Always creates an inactive period pending gateway payment.
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Param        planID path int true "Plan ID"
// @Success      201 {object} PurchaseResult
// @Failure      404 {object} api.ErrorResponse
// @Router       /plans/{planID}/renew [post]
func (h *Handler) Renew(c *gin.Context) {
	tenantID, memberID, planID, ok := h.purchaseParams(c)
	if !ok {
		return
	}

	result, err := h.service.Renew(c.Request.Context(), tenantID, memberID, planID)
	if err != nil {
		h.respondPurchaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CheckIn godoc
// @Summary      Member gym check-in
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} Period
// @Failure      403 {object} api.ErrorResponse
// @Router       /checkin [post]
func (h *Handler) CheckIn(c *gin.Context) {
	tenantID, memberID, ok := identity(c)
	if !ok {
		return
	}

	period, err := h.service.CheckIn(c.Request.Context(), tenantID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoCurrentPeriod):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "no current membership"})
		case errors.Is(err, ErrNoCredits):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "no class credits remaining"})
		case errors.Is(err, ErrDayNotAllowed):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "plan does not allow access today"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "check-in failed"})
		}
		return
	}

	c.JSON(http.StatusOK, period)
}

// MyPeriods godoc
// @Summary      List own membership periods
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Period
// @Router       /me/periods [get]
func (h *Handler) MyPeriods(c *gin.Context) {
	tenantID, memberID, ok := identity(c)
	if !ok {
		return
	}

	periods, err := h.service.ListPeriods(c.Request.Context(), tenantID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list periods"})
		return
	}

	c.JSON(http.StatusOK, periods)
}

// CreatePlan godoc
// @Summary      Create a membership plan
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePlanRequest true "Plan"
// @Success      201 {object} Plan
// @Router       /admin/plans [post]
func (h *Handler) CreatePlan(c *gin.Context) {
	tenantID, _, ok := identity(c)
	if !ok {
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	plan, err := h.service.CreatePlan(c.Request.Context(), &Plan{
		TenantID:     tenantID,
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		DurationDays: req.DurationDays,
		ClassCredits: req.ClassCredits,
		WeekdayMask:  req.WeekdayMask,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

func (h *Handler) purchaseParams(c *gin.Context) (tenantID string, memberID, planID int, ok bool) {
	tenantID, memberID, ok = identity(c)
	if !ok {
		return "", 0, 0, false
	}

	planID, ok = api.IntParam(c, "planID")
	if !ok {
		return "", 0, 0, false
	}

	return tenantID, memberID, planID, true
}

func (h *Handler) respondPurchaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "plan not found"})
	case errors.Is(err, ErrMemberNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "member not found"})
	case errors.Is(err, ErrTenantSuspended):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "tenant subscription suspended"})
	case errors.Is(err, ErrMemberLimitReached):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "tenant member limit reached"})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "purchase failed"})
	}
}

func identity(c *gin.Context) (string, int, bool) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return "", 0, false
	}

	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "member not resolved"})
		return "", 0, false
	}

	return tenantID, memberID, true
}
