package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/logger"
	"gymflow/internal/payment"
)

// PaymentWebhook godoc
// @Summary      Payment gateway callback
// @Description  Accepts topic and id query parameters. Always answers 200: a non-2xx response makes the gateway retry forever, and verification failures are our problem, not theirs.
// @Tags         webhooks
// @Produce      json
// @Param        topic query string true "Callback topic"
// @Param        id    query string true "Payment ID"
// @Success      200 {object} api.MessageResponse
// @Router       /webhooks/payments [post]
func PaymentWebhook(reconciler *payment.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.Query("topic")
		paymentID := c.Query("id")

		if topic != "payment" || paymentID == "" {
			c.JSON(http.StatusOK, api.MessageResponse{Message: "ignored"})
			return
		}

		if err := reconciler.HandleCallback(c.Request.Context(), paymentID); err != nil {
			// Logged and swallowed: the gateway must still get a 200.
			logger.Errorf("Payment reconciliation failed for %s: %v", paymentID, err)
		}

		c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
	}
}

// TriggerRetrySweep godoc
// @Summary      Run the payment retry sweep now
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} gin.H
// @Router       /admin/retry-sweep [post]
func TriggerRetrySweep(retries *payment.RetryScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		processed, err := retries.Sweep(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "sweep failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"processed": processed})
	}
}
