package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/changheecho2/banju/internal/payment"
)

// Stripe retries with the same body, which stays well below this.
const maxWebhookBody = 65536

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	gateway payment.Gateway
}

func NewWebhookHandler(gateway payment.Gateway) *WebhookHandler {
	return &WebhookHandler{gateway: gateway}
}

// HandleStripe handles POST /v1/webhook/stripe. The raw body is passed on
// untouched since the signature covers its exact bytes.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Printf("ERROR: reading webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	result, err := h.gateway.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if payment.IsClientError(err) {
			c.String(http.StatusBadRequest, "Webhook Error: %v", err)
			return
		}
		log.Printf("ERROR: handling stripe webhook: %v", err)
		c.String(http.StatusInternalServerError, "Webhook Error")
		return
	}
	c.JSON(http.StatusOK, result)
}
