package class

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateSessionRequest struct {
	Name        string    `json:"name" binding:"required"`
	Instructor  string    `json:"instructor" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	DurationMin int       `json:"duration_min" binding:"required,gte=1"`
	Capacity    int       `json:"capacity" binding:"required,gte=1"`
}

// Reserve godoc
// @Summary      Reserve a class slot
// @Tags         class
// @Produce      json
// @Security     BearerAuth
// @Param        sessionID path int true "Class session ID"
// @Success      201 {object} Reservation
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sessions/{sessionID}/reserve [post]
func (h *Handler) Reserve(c *gin.Context) {
	tenantID, memberID, ok := identity(c)
	if !ok {
		return
	}

	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	reservation, err := h.service.Reserve(c.Request.Context(), tenantID, sessionID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "class session not found"})
		case errors.Is(err, ErrSessionInactive):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "class session is inactive"})
		case errors.Is(err, ErrSessionFull):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "class session is full"})
		case errors.Is(err, ErrAlreadyReserved):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "already reserved for this session"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "reservation failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// Cancel godoc
// @Summary      Cancel own reservation
// @Description  Frees the slot and promotes the earliest waitlisted member, if any.
// @Tags         class
// @Produce      json
// @Security     BearerAuth
// @Param        reservationID path int true "Reservation ID"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /reservations/{reservationID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	tenantID, memberID, ok := identity(c)
	if !ok {
		return
	}

	reservationID, ok := api.IntParam(c, "reservationID")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), tenantID, reservationID, memberID); err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "reservation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "cancellation failed"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "reservation cancelled"})
}

// MyReservations godoc
// @Summary      List own reservations
// @Tags         class
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Reservation
// @Router       /me/reservations [get]
func (h *Handler) MyReservations(c *gin.Context) {
	tenantID, memberID, ok := identity(c)
	if !ok {
		return
	}

	reservations, err := h.service.ListMemberReservations(c.Request.Context(), tenantID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// CreateSession godoc
// @Summary      Create a class session
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session"
// @Success      201 {object} Session
// @Router       /admin/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	tenantID, _, ok := identity(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), &Session{
		TenantID:    tenantID,
		Name:        req.Name,
		Instructor:  req.Instructor,
		StartTime:   req.StartTime,
		DurationMin: req.DurationMin,
		Capacity:    req.Capacity,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// Roster godoc
// @Summary      List booked members for a session
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        sessionID path int true "Class session ID"
// @Success      200 {array} RosterEntry
// @Router       /admin/sessions/{sessionID}/roster [get]
func (h *Handler) Roster(c *gin.Context) {
	tenantID, _, ok := identity(c)
	if !ok {
		return
	}

	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	roster, err := h.service.SessionRoster(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load roster"})
		return
	}

	c.JSON(http.StatusOK, roster)
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
