package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/changheecho2/banju/internal/config"
)

const humanTokenIssuer = "banju-captcha"

// ITurnstileVerifier verifies Cloudflare Turnstile challenges and issues
// short-lived human tokens bound to the client that solved them.
type ITurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	GenerateHumanToken(client ClientBinding, ttl time.Duration) (string, error)
	ValidateHumanToken(tokenString string, client ClientBinding) bool
}

// ClientBinding identifies the browser session a human token belongs to.
type ClientBinding struct {
	IP          string
	Fingerprint string
	SPASession  string
}

func (b ClientBinding) String() string {
	return b.IP + "|" + b.Fingerprint + "|" + b.SPASession
}

// siteverifyResponse is the body returned by the siteverify endpoint.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

type turnstileVerifier struct {
	secretKey  string
	verifyURL  string
	jwtSecret  []byte
	httpClient *http.Client
}

// NewTurnstileVerifier creates a verifier. A nil httpClient uses a 5s timeout client.
func NewTurnstileVerifier(cfg *config.Config, httpClient *http.Client) ITurnstileVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &turnstileVerifier{
		secretKey:  cfg.CloudflareTurnstileSecretKey,
		verifyURL:  cfg.CloudflareSiteVerifyURL,
		jwtSecret:  []byte(cfg.JwtSecret),
		httpClient: httpClient,
	}
}

// Verify calls the siteverify endpoint. Without a secret key every challenge passes.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secretKey == "" {
		log.Println("WARN: Cloudflare Turnstile secret key not configured. Skipping verification.")
		return true, nil
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("contact turnstile service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read turnstile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("parse turnstile response: %w", err)
	}
	if !out.Success {
		log.Printf("DEBUG: Turnstile verification unsuccessful. Error codes: %v", out.ErrorCodes)
	}
	return out.Success, nil
}

// HumanTokenClaims are carried by the X-C-T header.
type HumanTokenClaims struct {
	IP          string `json:"ip"`
	Fingerprint string `json:"bfp"`
	SPASession  string `json:"spa"`
	jwt.RegisteredClaims
}

func (v *turnstileVerifier) GenerateHumanToken(client ClientBinding, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &HumanTokenClaims{
		IP:          client.IP,
		Fingerprint: client.Fingerprint,
		SPASession:  client.SPASession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    humanTokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign human token: %w", err)
	}
	return signed, nil
}

// ValidateHumanToken checks signature, expiry and that the token was issued to client.
func (v *turnstileVerifier) ValidateHumanToken(tokenString string, client ClientBinding) bool {
	claims := &HumanTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(humanTokenIssuer))
	if err != nil || !token.Valid {
		log.Printf("DEBUG: invalid X-C-T token: %v", err)
		return false
	}

	issued := ClientBinding{IP: claims.IP, Fingerprint: claims.Fingerprint, SPASession: claims.SPASession}
	if issued != client {
		log.Printf("DEBUG: X-C-T token mismatch: issued to %s, presented by %s", issued, client)
		return false
	}
	return true
}
