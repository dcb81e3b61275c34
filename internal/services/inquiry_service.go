package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/playmaker-pro/backend-sub001/internal/config"
	"github.com/playmaker-pro/backend-sub001/internal/db"
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

var (
	// ErrQuotaExceeded is returned when the sender has no inquiry units left.
	ErrQuotaExceeded = errors.New("inquiry quota exceeded")
	// ErrDuplicateActiveInquiry is returned when an unresolved inquiry to the
	// same recipient already exists.
	ErrDuplicateActiveInquiry = errors.New("active inquiry to this recipient already exists")
	// ErrSelfInquiry is returned when a user tries to inquire about themselves.
	ErrSelfInquiry = errors.New("cannot send an inquiry to yourself")
	// ErrAlreadyReplied is returned when the would-be recipient already
	// resolved an inquiry towards the would-be sender.
	ErrAlreadyReplied = errors.New("counterparty already replied to your inquiry")
	// ErrInquiryNotFound is returned when an inquiry id resolves to nothing.
	ErrInquiryNotFound = errors.New("inquiry not found")
	// ErrNotParticipant is returned when the acting user is on neither side of
	// the inquiry.
	ErrNotParticipant = errors.New("user is not a participant of this inquiry")
)

// IInquiryService owns the inquiry lifecycle: creation with quota admission,
// the recipient-side decisions, read receipts and the participant queries.
type IInquiryService interface {
	Create(ctx context.Context, senderID, recipientID string, anonymousRequested bool) (*models.Inquiry, error)
	GetByID(ctx context.Context, inquiryID string) (*models.Inquiry, error)
	MarkRead(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error)
	Accept(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error)
	Reject(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error)
	SentBy(ctx context.Context, senderID string) ([]models.Inquiry, error)
	ReceivedBy(ctx context.Context, recipientID string) ([]models.Inquiry, error)
	Contacts(ctx context.Context, userID string) ([]models.Inquiry, error)
}

const inquiriesCollection = "inquiries"

type inquiryService struct {
	db            *mongo.Database
	cfg           *config.Config
	quota         IQuotaService
	anonymity     IAnonymityService
	logs          ILogService
	notifications INotificationService
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(database *mongo.Database, cfg *config.Config, quota IQuotaService, anonymity IAnonymityService, logs ILogService, notifications INotificationService) IInquiryService {
	return &inquiryService{
		db:            database,
		cfg:           cfg,
		quota:         quota,
		anonymity:     anonymity,
		logs:          logs,
		notifications: notifications,
	}
}

// Create opens a new inquiry from sender to recipient. The quota check is
// advisory; the partial unique index on {sender_id, recipient_id} for
// unresolved inquiries is what actually guarantees at most one active inquiry
// per ordered pair under concurrency. anonymousRequested keeps the recipient
// hidden even when their transfer marker says otherwise.
func (s *inquiryService) Create(ctx context.Context, senderID, recipientID string, anonymousRequested bool) (*models.Inquiry, error) {
	if senderID == recipientID {
		return nil, ErrSelfInquiry
	}

	admitted, err := s.quota.CanAdmit(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		return nil, ErrQuotaExceeded
	}

	coll := s.db.Collection(inquiriesCollection)

	count, err := coll.CountDocuments(ctx, bson.M{
		"sender_id":    senderID,
		"recipient_id": recipientID,
		"resolved":     false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check for active inquiry from %s to %s: %w", senderID, recipientID, err)
	}
	if count > 0 {
		return nil, ErrDuplicateActiveInquiry
	}

	// An inquiry already travelling the opposite direction short-circuits this
	// one. If it is still open, both sides want the contact, so accept it
	// instead of opening a mirror inquiry; if it is resolved, the counterparty
	// has already given their answer.
	var cross models.Inquiry
	err = coll.FindOne(ctx,
		bson.M{"sender_id": recipientID, "recipient_id": senderID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&cross)
	if err == nil {
		if cross.IsResolved() {
			return nil, ErrAlreadyReplied
		}
		return s.Accept(ctx, cross.ID, senderID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check for cross inquiry between %s and %s: %w", senderID, recipientID, err)
	}

	anonymous, snapshot, err := s.anonymity.SnapshotUUID(ctx, recipientID, anonymousRequested)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inquiry := models.Inquiry{
		ID:                     uuid.NewString(),
		SenderID:               senderID,
		RecipientID:            recipientID,
		Status:                 models.StatusNew,
		AnonymousRecipient:     anonymous,
		RecipientAnonymousUUID: snapshot,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := inquiry.Send(); err != nil {
		return nil, err
	}

	if _, err := coll.InsertOne(ctx, inquiry); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrDuplicateActiveInquiry
		}
		return nil, fmt.Errorf("failed to create inquiry from %s to %s: %w", senderID, recipientID, err)
	}

	if err := s.quota.Increment(ctx, senderID); err != nil {
		log.Printf("Failed to charge quota for inquiry %s: %v", inquiry.ID, err)
	}

	if _, err := s.logs.Record(ctx, &inquiry, models.LogNew, inquiry.RecipientID, inquiry.SenderID, 0); err != nil {
		log.Printf("Failed to log creation of inquiry %s: %v", inquiry.ID, err)
	}
	if err := s.notifications.InquirySent(ctx, &inquiry); err != nil {
		log.Printf("Failed to notify recipient of inquiry %s: %v", inquiry.ID, err)
	}

	return &inquiry, nil
}

func (s *inquiryService) GetByID(ctx context.Context, inquiryID string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": inquiryID}).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInquiryNotFound
		}
		return nil, fmt.Errorf("failed to load inquiry %s: %w", inquiryID, err)
	}
	return &inquiry, nil
}

// MarkRead moves a SENT inquiry to RECEIVED and clears the sender's unread
// flag. Calling it from any other state is a forbidden transition.
func (s *inquiryService) MarkRead(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	inquiry, err := s.transition(ctx, inquiryID, recipientID,
		bson.M{"status": models.StatusSent},
		bson.M{"status": models.StatusReceived, "sender_has_update": false},
	)
	if err != nil {
		return nil, err
	}
	return inquiry, nil
}

// Accept resolves the inquiry in the sender's favour, lifting recipient
// anonymity for that sender.
func (s *inquiryService) Accept(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	inquiry, err := s.transition(ctx, inquiryID, recipientID,
		bson.M{"status": bson.M{"$in": openStates()}},
		bson.M{"status": models.StatusAccepted, "resolved": true, "sender_has_update": true},
	)
	if err != nil {
		return nil, err
	}

	if _, err := s.logs.Record(ctx, inquiry, models.LogAccepted, inquiry.SenderID, inquiry.RecipientID, 0); err != nil {
		log.Printf("Failed to log acceptance of inquiry %s: %v", inquiry.ID, err)
	}
	if err := s.notifications.InquiryAccepted(ctx, inquiry); err != nil {
		log.Printf("Failed to notify sender about acceptance of inquiry %s: %v", inquiry.ID, err)
	}
	return inquiry, nil
}

// Reject resolves the inquiry against the sender. The recipient stays
// anonymous forever if they were anonymous when the inquiry was opened.
func (s *inquiryService) Reject(ctx context.Context, inquiryID, recipientID string) (*models.Inquiry, error) {
	inquiry, err := s.transition(ctx, inquiryID, recipientID,
		bson.M{"status": bson.M{"$in": openStates()}},
		bson.M{"status": models.StatusRejected, "resolved": true, "sender_has_update": true},
	)
	if err != nil {
		return nil, err
	}

	if _, err := s.logs.Record(ctx, inquiry, models.LogRejected, inquiry.SenderID, inquiry.RecipientID, 0); err != nil {
		log.Printf("Failed to log rejection of inquiry %s: %v", inquiry.ID, err)
	}
	if err := s.notifications.InquiryRejected(ctx, inquiry); err != nil {
		log.Printf("Failed to notify sender about rejection of inquiry %s: %v", inquiry.ID, err)
	}
	return inquiry, nil
}

func openStates() []models.InquiryStatus {
	return []models.InquiryStatus{models.StatusSent, models.StatusReceived}
}

// transition performs a compare-and-set status update: the filter carries the
// allowed source states, so a lost race or a terminal inquiry simply fails to
// match and surfaces as ErrForbiddenTransition.
func (s *inquiryService) transition(ctx context.Context, inquiryID, actorID string, statusFilter, changes bson.M) (*models.Inquiry, error) {
	inquiry, err := s.GetByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.RecipientID != actorID {
		return nil, ErrNotParticipant
	}

	filter := bson.M{"_id": inquiryID, "recipient_id": actorID}
	for k, v := range statusFilter {
		filter[k] = v
	}
	changes["updated_at"] = time.Now().UTC()

	var updated models.Inquiry
	err = s.db.Collection(inquiriesCollection).FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": changes},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrForbiddenTransition
		}
		return nil, fmt.Errorf("failed to update inquiry %s: %w", inquiryID, err)
	}
	return &updated, nil
}

func (s *inquiryService) SentBy(ctx context.Context, senderID string) ([]models.Inquiry, error) {
	return s.list(ctx, bson.M{"sender_id": senderID})
}

func (s *inquiryService) ReceivedBy(ctx context.Context, recipientID string) ([]models.Inquiry, error) {
	return s.list(ctx, bson.M{"recipient_id": recipientID})
}

// Contacts lists accepted inquiries on either side; these are the pairs whose
// contact data is mutually visible.
func (s *inquiryService) Contacts(ctx context.Context, userID string) ([]models.Inquiry, error) {
	return s.list(ctx, bson.M{
		"status": models.StatusAccepted,
		"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"recipient_id": userID},
		},
	})
}

func (s *inquiryService) list(ctx context.Context, filter bson.M) ([]models.Inquiry, error) {
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	inquiries := []models.Inquiry{}
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("failed to decode inquiries: %w", err)
	}
	return inquiries, nil
}
