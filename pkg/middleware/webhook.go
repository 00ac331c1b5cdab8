package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caretrack/referral-platform/pkg/common"
)

// WebhookSignatureHeader carries the hex-encoded HMAC-SHA256 of the request body
const WebhookSignatureHeader = "X-Webhook-Signature"

// WebhookSignature verifies the HMAC-SHA256 signature of inbound webhook
// requests against the shared secret. Requests without a valid signature
// are rejected before reaching the handler.
func WebhookSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			common.ErrorResponse(c, http.StatusServiceUnavailable, "webhook secret not configured")
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "unable to read request body")
			c.Abort()
			return
		}
		// Restore the body for downstream binding
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		provided := c.GetHeader(WebhookSignatureHeader)
		if provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook signature")
			c.Abort()
			return
		}

		c.Next()
	}
}
