package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockEmailTTL is how long a captured message stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key a captured message for recipient and
// template is stored under.
func MockEmailKey(recipient, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", recipient, templateID)
}

// RedisSender captures messages in Redis so end-to-end tests can read them
// back through the service API.
type RedisSender struct {
	client redis.UniversalClient
}

func NewRedisSender(client redis.UniversalClient) *RedisSender {
	return &RedisSender{client: client}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := "unknown"
	body := string(rawMessage)
	from := ""
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if id := msg.Header.Get(TemplateHeader); id != "" {
			templateID = id
		}
		from = msg.Header.Get("From")
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(msg.Body); err == nil {
			body = buf.String()
		}
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	data, err := json.Marshal(map[string]any{
		"to":         strings.Join(to, ", "),
		"from":       from,
		"subject":    subject,
		"body":       body,
		"templateId": templateID,
		"sent_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, templateID)
	if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	log.Printf("Mock email stored in Redis key '%s' (To: %s, Subject: %s)", key, primaryTo, subject)
	return nil
}
