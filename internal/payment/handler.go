package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/auth"
)

type Handler struct {
	payments Repository
}

func NewHandler(payments Repository) *Handler {
	return &Handler{payments: payments}
}

// MyPayments godoc
// @Summary      List own payment history
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Record
// @Router       /me/payments [get]
func (h *Handler) MyPayments(c *gin.Context) {
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

	records, err := h.payments.ListForMember(c.Request.Context(), tenantID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, records)
}
