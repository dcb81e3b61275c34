package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// Used by end-to-end tests to assert on outbound mail without an SMTP server.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

// Send stores a representation of the email in Redis instead of sending it.
// The key carries the lifecycle event the subject maps to, so tests can fetch
// the exact mail they expect.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	eventType := "unknown"
	switch {
	case strings.Contains(subject, "nowe zapytanie"):
		eventType = string(models.LogNew)
	case strings.Contains(subject, "zaakceptował"):
		eventType = string(models.LogAccepted)
	case strings.Contains(subject, "odrzucił"):
		eventType = string(models.LogRejected)
	case strings.Contains(subject, "Zwiększamy Twoją pulę"):
		eventType = string(models.LogOutdated)
	case strings.Contains(subject, "czekające na decyzję"):
		eventType = string(models.LogOutdatedReminder)
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":        strings.Join(to, ", "),
		"from":      s.cfg.SmtpFromAddress,
		"subject":   subject,
		"body":      string(rawMessage),
		"sent_at":   time.Now().UTC().Format(time.RFC3339Nano),
		"eventType": eventType,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, eventType)
	ttl := 5 * time.Minute

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}
