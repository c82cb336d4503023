package waitlist

import (
	"net/http"

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

type JoinResponse struct {
	Message     string `json:"message"`
	QueueLength int    `json:"queue_length"`
}

// Join godoc
// @Summary      Join a class session waitlist
// @Description  Idempotent: joining while already reserved or waitlisted is a silent success.
// @Tags         waitlist
// @Produce      json
// @Security     BearerAuth
// @Param        sessionID path int true "Class session ID"
// @Success      200 {object} JoinResponse
// @Router       /sessions/{sessionID}/waitlist [post]
func (h *Handler) Join(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "tenant not resolved"})
		return
	}

	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "member not resolved"})
		return
	}

	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	length, err := h.service.Join(c.Request.Context(), tenantID, sessionID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to join waitlist"})
		return
	}

	c.JSON(http.StatusOK, JoinResponse{Message: "waitlisted", QueueLength: length})
}
