package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// ErrForbiddenLogAction is returned when a time-windowed escalation is
// attempted outside its window or past its allowed repeats.
var ErrForbiddenLogAction = errors.New("forbidden escalation for this inquiry")

// IEscalationService handles inquiries the recipient never answered: the
// sender gets their quota unit back after a week, the recipient gets up to two
// reminder nudges before that. The unique index on inquiry_id/log_type/seq
// makes both idempotent across concurrent and repeated runs.
type IEscalationService interface {
	CanBeRewarded(ctx context.Context, inquiry *models.Inquiry) (bool, error)
	RewardSender(ctx context.Context, inquiry *models.Inquiry) error
	CanBeReminded(ctx context.Context, inquiry *models.Inquiry) (bool, int, error)
	RemindRecipient(ctx context.Context, inquiry *models.Inquiry) error
	RewardOutdated(ctx context.Context) (int, error)
	RemindOutdated(ctx context.Context) (int, error)
}

type escalationService struct {
	db            *mongo.Database
	cfg           *config.Config
	quota         IQuotaService
	logs          ILogService
	notifications INotificationService
}

// NewEscalationService creates a new EscalationService.
func NewEscalationService(database *mongo.Database, cfg *config.Config, quota IQuotaService, logs ILogService, notifications INotificationService) IEscalationService {
	return &escalationService{
		db:            database,
		cfg:           cfg,
		quota:         quota,
		logs:          logs,
		notifications: notifications,
	}
}

// CanBeRewarded reports whether the sender is owed a refund: the inquiry is
// still unread past the reward window and has not been refunded before.
func (s *escalationService) CanBeRewarded(ctx context.Context, inquiry *models.Inquiry) (bool, error) {
	if inquiry.Status != models.StatusSent {
		return false, nil
	}
	if inquiry.CreatedAt.After(time.Now().UTC().Add(-s.cfg.RewardAfter)) {
		return false, nil
	}
	rewarded, err := s.logs.HasEntry(ctx, inquiry.ID, models.LogOutdated)
	if err != nil {
		return false, err
	}
	return !rewarded, nil
}

// RewardSender refunds one unit to the sender of an outdated inquiry. The log
// entry is appended before the counter moves; if two runs race, only the one
// that actually appended performs the refund, the loser reports
// ErrForbiddenLogAction like any other already-rewarded inquiry.
func (s *escalationService) RewardSender(ctx context.Context, inquiry *models.Inquiry) error {
	ok, err := s.CanBeRewarded(ctx, inquiry)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbiddenLogAction
	}

	inserted, err := s.logs.Record(ctx, inquiry, models.LogOutdated, inquiry.SenderID, inquiry.RecipientID, 0)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrForbiddenLogAction
	}

	if err := s.quota.Decrement(ctx, inquiry.SenderID); err != nil {
		return fmt.Errorf("failed to refund sender of inquiry %s: %w", inquiry.ID, err)
	}
	if err := s.notifications.InquiryRestored(ctx, inquiry); err != nil {
		log.Printf("Failed to notify sender about refund for inquiry %s: %v", inquiry.ID, err)
	}
	return nil
}

// CanBeReminded reports whether the recipient is due a nudge, and how many
// reminders were already sent. The first reminder is due three days in, the
// second after six; there is never a third.
func (s *escalationService) CanBeReminded(ctx context.Context, inquiry *models.Inquiry) (bool, int, error) {
	if inquiry.Status != models.StatusSent {
		return false, 0, nil
	}
	count, err := s.logs.CountEntries(ctx, inquiry.ID, models.LogOutdatedReminder)
	if err != nil {
		return false, 0, err
	}
	sent := int(count)

	now := time.Now().UTC()
	switch sent {
	case 0:
		return !inquiry.CreatedAt.After(now.Add(-s.cfg.FirstReminderAfter)), sent, nil
	case 1:
		return !inquiry.CreatedAt.After(now.Add(-s.cfg.SecondReminderAfter)), sent, nil
	default:
		return false, sent, nil
	}
}

// RemindRecipient appends the next reminder entry. Seq numbers the reminders
// 1 and 2, so a racing duplicate of the same nudge hits the unique index and
// is dropped.
func (s *escalationService) RemindRecipient(ctx context.Context, inquiry *models.Inquiry) error {
	ok, sent, err := s.CanBeReminded(ctx, inquiry)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbiddenLogAction
	}

	inserted, err := s.logs.Record(ctx, inquiry, models.LogOutdatedReminder, inquiry.RecipientID, inquiry.SenderID, sent+1)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrForbiddenLogAction
	}

	if err := s.notifications.InquiryReminder(ctx, inquiry); err != nil {
		log.Printf("Failed to notify recipient with reminder for inquiry %s: %v", inquiry.ID, err)
	}
	return nil
}

// RewardOutdated sweeps all unread inquiries past the reward window and
// refunds their senders. Per-inquiry failures are logged and skipped so one
// bad document cannot stall the batch.
func (s *escalationService) RewardOutdated(ctx context.Context) (int, error) {
	candidates, err := s.sentOlderThan(ctx, s.cfg.RewardAfter)
	if err != nil {
		return 0, err
	}

	rewarded := 0
	for i := range candidates {
		inquiry := &candidates[i]
		if err := s.RewardSender(ctx, inquiry); err != nil {
			if !errors.Is(err, ErrForbiddenLogAction) {
				log.Printf("Failed to reward sender of inquiry %s: %v", inquiry.ID, err)
			}
			continue
		}
		rewarded++
	}
	return rewarded, nil
}

// RemindOutdated sweeps unread inquiries past the first reminder window and
// nudges their recipients.
func (s *escalationService) RemindOutdated(ctx context.Context) (int, error) {
	candidates, err := s.sentOlderThan(ctx, s.cfg.FirstReminderAfter)
	if err != nil {
		return 0, err
	}

	reminded := 0
	for i := range candidates {
		inquiry := &candidates[i]
		if err := s.RemindRecipient(ctx, inquiry); err != nil {
			if !errors.Is(err, ErrForbiddenLogAction) {
				log.Printf("Failed to remind recipient of inquiry %s: %v", inquiry.ID, err)
			}
			continue
		}
		reminded++
	}
	return reminded, nil
}

func (s *escalationService) sentOlderThan(ctx context.Context, age time.Duration) ([]models.Inquiry, error) {
	cutoff := time.Now().UTC().Add(-age)
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, bson.M{
		"status":     models.StatusSent,
		"created_at": bson.M{"$lte": cutoff},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list outdated inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	inquiries := []models.Inquiry{}
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("failed to decode outdated inquiries: %w", err)
	}
	return inquiries, nil
}
