package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/changheecho2/banju/internal/captcha"
	"github.com/changheecho2/banju/internal/config"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"
)

// CaptchaMiddleware handles Cloudflare Turnstile verification (X-C-V) and token (X-C-T) checks.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := captcha.ClientBinding{
			IP:          c.ClientIP(),
			Fingerprint: c.GetHeader("X-BFP"),
			SPASession:  c.GetHeader("X-SPA"),
		}
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := humanToken != "" && verifier.ValidateHumanToken(humanToken, client)

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, client.IP)
			switch {
			case err != nil:
				// Treated as unverified; the rate limiter decides.
				log.Printf("ERROR: verifying Turnstile challenge for %s: %v", client, err)
			case verified:
				isHuman = true
				token, err := verifier.GenerateHumanToken(client, cfg.CaptchaTokenTTL)
				if err != nil {
					log.Printf("ERROR: generating X-C-T token for %s: %v", client, err)
				} else {
					c.Header("X-C-T", token)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
