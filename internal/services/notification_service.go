package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// INotificationService publishes lifecycle events to the in-app notification
// feed. Delivery is at-least-once and never blocks or rolls back the state
// change that triggered it; callers log failures and move on.
type INotificationService interface {
	InquirySent(ctx context.Context, inquiry *models.Inquiry) error
	InquiryAccepted(ctx context.Context, inquiry *models.Inquiry) error
	InquiryRejected(ctx context.Context, inquiry *models.Inquiry) error
	InquiryRestored(ctx context.Context, inquiry *models.Inquiry) error
	InquiryReminder(ctx context.Context, inquiry *models.Inquiry) error
	LimitReached(ctx context.Context, userID string) error
	MarkInquiryNotificationsRead(ctx context.Context, userID, inquiryID string) error
}

const notificationsCollection = "notifications"

type notificationService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database, cfg *config.Config) INotificationService {
	return &notificationService{db: db, cfg: cfg}
}

func (s *notificationService) create(ctx context.Context, n models.Notification) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if _, err := s.db.Collection(notificationsCollection).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to create %s notification for user %s: %w", n.EventType, n.UserID, err)
	}
	return nil
}

func (s *notificationService) InquirySent(ctx context.Context, inquiry *models.Inquiry) error {
	return s.create(ctx, models.Notification{
		UserID:        inquiry.RecipientID,
		EventType:     models.EventReceiveInquiry,
		RelatedUserID: inquiry.SenderID,
		InquiryID:     inquiry.ID,
	})
}

func (s *notificationService) InquiryAccepted(ctx context.Context, inquiry *models.Inquiry) error {
	// The recipient acted on the inquiry; their pending entries are done with.
	if err := s.MarkInquiryNotificationsRead(ctx, inquiry.RecipientID, inquiry.ID); err != nil {
		return err
	}
	return s.create(ctx, models.Notification{
		UserID:        inquiry.SenderID,
		EventType:     models.EventAcceptInquiry,
		RelatedUserID: inquiry.RecipientID,
		InquiryID:     inquiry.ID,
	})
}

func (s *notificationService) InquiryRejected(ctx context.Context, inquiry *models.Inquiry) error {
	if err := s.MarkInquiryNotificationsRead(ctx, inquiry.RecipientID, inquiry.ID); err != nil {
		return err
	}
	return s.create(ctx, models.Notification{
		UserID:        inquiry.SenderID,
		EventType:     models.EventRejectInquiry,
		RelatedUserID: inquiry.RecipientID,
		InquiryID:     inquiry.ID,
	})
}

func (s *notificationService) InquiryRestored(ctx context.Context, inquiry *models.Inquiry) error {
	return s.create(ctx, models.Notification{
		UserID:    inquiry.SenderID,
		EventType: models.EventInquiryRestored,
		InquiryID: inquiry.ID,
	})
}

func (s *notificationService) InquiryReminder(ctx context.Context, inquiry *models.Inquiry) error {
	return s.create(ctx, models.Notification{
		UserID:        inquiry.RecipientID,
		EventType:     models.EventPendingInquiryDecision,
		RelatedUserID: inquiry.SenderID,
		InquiryID:     inquiry.ID,
	})
}

// LimitReached tells the user their pool is exhausted, at most once per mute
// window. Quota accounting publishes at-least-once; the window check here is
// what keeps repeats out of the feed.
func (s *notificationService) LimitReached(ctx context.Context, userID string) error {
	cutoff := time.Now().UTC().Add(-s.cfg.LimitReachedMuteWindow)
	count, err := s.db.Collection(notificationsCollection).CountDocuments(ctx, bson.M{
		"user_id":    userID,
		"event_type": models.EventQueryPoolExhausted,
		"created_at": bson.M{"$gte": cutoff},
	})
	if err != nil {
		return fmt.Errorf("failed to check recent pool-exhausted notifications for user %s: %w", userID, err)
	}
	if count > 0 {
		return nil
	}
	return s.create(ctx, models.Notification{
		UserID:    userID,
		EventType: models.EventQueryPoolExhausted,
	})
}

func (s *notificationService) MarkInquiryNotificationsRead(ctx context.Context, userID, inquiryID string) error {
	_, err := s.db.Collection(notificationsCollection).UpdateMany(ctx,
		bson.M{"user_id": userID, "inquiry_id": inquiryID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark inquiry %s notifications read: %w", inquiryID, err)
	}
	return nil
}
