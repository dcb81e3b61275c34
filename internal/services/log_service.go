package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/db"
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// IMailDispatcher hands a fully rendered email to the mailing collaborator.
// Implemented by the tasks package on top of asynq so dispatch survives
// process restarts and can be retried independently of the state change.
type IMailDispatcher interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// ILogService owns the append-only lifecycle log stream. Record is the single
// write path: it appends with insert-or-skip semantics (the unique index on
// inquiry_id/log_type/seq absorbs duplicates) and, when the entry was actually
// written, renders and enqueues the matching email.
type ILogService interface {
	// Record appends a log entry and reports whether it was newly written.
	Record(ctx context.Context, inquiry *models.Inquiry, logType models.InquiryLogType, ownerID, relatedID string, seq int) (bool, error)
	HasEntry(ctx context.Context, inquiryID string, logType models.InquiryLogType) (bool, error)
	CountEntries(ctx context.Context, inquiryID string, logType models.InquiryLogType) (int64, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.InquiryLog, error)
}

const (
	inquiryLogsCollection  = "inquiry_logs"
	logTemplatesCollection = "log_templates"
)

type logService struct {
	db             *mongo.Database
	profileService IProfileService
	mailer         IMailDispatcher
}

// NewLogService creates a new LogService. mailer may be nil in worker setups
// that only read the log.
func NewLogService(database *mongo.Database, profileService IProfileService, mailer IMailDispatcher) ILogService {
	return &logService{db: database, profileService: profileService, mailer: mailer}
}

func (s *logService) Record(ctx context.Context, inquiry *models.Inquiry, logType models.InquiryLogType, ownerID, relatedID string, seq int) (bool, error) {
	entry := models.InquiryLog{
		ID:        uuid.NewString(),
		InquiryID: inquiry.ID,
		OwnerID:   ownerID,
		RelatedID: relatedID,
		LogType:   logType,
		Seq:       seq,
		CreatedAt: time.Now().UTC(),
	}

	inserted, err := db.InsertIgnoreDuplicate(ctx, s.db.Collection(inquiryLogsCollection), entry)
	if err != nil {
		return false, fmt.Errorf("failed to append %s log for inquiry %s: %w", logType, inquiry.ID, err)
	}
	if !inserted {
		return false, nil
	}

	// Mail dispatch must never roll back the log append; failures are logged
	// and left to the mailing collaborator's retry.
	if err := s.dispatchMail(ctx, inquiry, logType, ownerID, relatedID); err != nil {
		log.Printf("Mail dispatch for %s log on inquiry %s failed: %v", logType, inquiry.ID, err)
	}
	return true, nil
}

func (s *logService) dispatchMail(ctx context.Context, inquiry *models.Inquiry, logType models.InquiryLogType, ownerID, relatedID string) error {
	if s.mailer == nil {
		return nil
	}
	tmpl, err := s.template(ctx, logType)
	if err != nil {
		return err
	}
	if !tmpl.SendMail {
		return nil
	}

	owner, err := s.profileService.FindByUserID(ctx, ownerID)
	if err != nil {
		return err
	}
	related, err := s.profileService.FindByUserID(ctx, relatedID)
	if err != nil {
		return err
	}

	// A hidden recipient must stay hidden in outbound mail too.
	if relatedID == inquiry.RecipientID && inquiry.AnonymousRecipient && inquiry.Status != models.StatusAccepted {
		related = &models.Profile{FirstName: "Anonimowy", LastName: "profil"}
	}

	subject, body := tmpl.Render(related)
	return s.mailer.EnqueueEmail(ctx, owner.Email, subject, body)
}

// template looks the type's template up in Mongo, falling back to the
// built-in copy when the collection has not been seeded.
func (s *logService) template(ctx context.Context, logType models.InquiryLogType) (*models.LogTemplate, error) {
	var tmpl models.LogTemplate
	err := s.db.Collection(logTemplatesCollection).FindOne(ctx, bson.M{"_id": logType}).Decode(&tmpl)
	if err == nil {
		return &tmpl, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to load template for %s: %w", logType, err)
	}
	for _, fallback := range models.DefaultLogTemplates() {
		if fallback.LogType == logType {
			return &fallback, nil
		}
	}
	return nil, fmt.Errorf("no template registered for log type %s", logType)
}

func (s *logService) HasEntry(ctx context.Context, inquiryID string, logType models.InquiryLogType) (bool, error) {
	count, err := s.CountEntries(ctx, inquiryID, logType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *logService) CountEntries(ctx context.Context, inquiryID string, logType models.InquiryLogType) (int64, error) {
	count, err := s.db.Collection(inquiryLogsCollection).CountDocuments(ctx, bson.M{
		"inquiry_id": inquiryID,
		"log_type":   logType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s logs for inquiry %s: %w", logType, inquiryID, err)
	}
	return count, nil
}

func (s *logService) ListForOwner(ctx context.Context, ownerID string) ([]models.InquiryLog, error) {
	cursor, err := s.db.Collection(inquiryLogsCollection).Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for owner %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	var entries []models.InquiryLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode logs for owner %s: %w", ownerID, err)
	}
	return entries, nil
}
