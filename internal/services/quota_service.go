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
	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// IOverlayProvider resolves a user's premium overlay pool. A (nil, nil)
// result means the user has no overlay at all.
type IOverlayProvider interface {
	OverlayFor(ctx context.Context, userID string) (models.PremiumOverlay, error)
}

// IQuotaService is the quota ledger: per-user counters across the base pool
// and the premium overlay. Admission is advisory; the creation flow checks
// CanAdmit, the ledger itself never blocks anything.
type IQuotaService interface {
	GetOrCreateAccount(ctx context.Context, userID string) (*models.QuotaAccount, error)
	CanAdmit(ctx context.Context, userID string) (bool, error)
	Increment(ctx context.Context, userID string) error
	Decrement(ctx context.Context, userID string) error
	SetPlan(ctx context.Context, userID, planRef string) error
	Metadata(ctx context.Context, userID string) (*QuotaMetadata, error)
}

// QuotaMetadata is the API view of a user's quota state.
type QuotaMetadata struct {
	PlanRef   string `json:"plan_ref"`
	Counter   int    `json:"counter"`
	Limit     int    `json:"limit"`
	Available int    `json:"available"`
}

const (
	quotaAccountsCollection = "quota_accounts"
	inquiryPlansCollection  = "inquiry_plans"
)

type quotaService struct {
	db            *mongo.Database
	cfg           *config.Config
	overlays      IOverlayProvider
	notifications INotificationService
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(db *mongo.Database, cfg *config.Config, overlays IOverlayProvider, notifications INotificationService) IQuotaService {
	return &quotaService{db: db, cfg: cfg, overlays: overlays, notifications: notifications}
}

// GetOrCreateAccount returns the user's quota account, provisioning one on
// the default plan for first-time senders.
func (s *quotaService) GetOrCreateAccount(ctx context.Context, userID string) (*models.QuotaAccount, error) {
	coll := s.db.Collection(quotaAccountsCollection)

	var account models.QuotaAccount
	err := coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&account)
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to load quota account for user %s: %w", userID, err)
	}

	plan, err := s.defaultPlan(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	account = models.QuotaAccount{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanRef:   plan.TypeRef,
		BaseLimit: plan.Limit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := coll.InsertOne(ctx, account); err != nil {
		// Lost a provisioning race; the other writer's account wins.
		var existing models.QuotaAccount
		if findErr := coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&existing); findErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create quota account for user %s: %w", userID, err)
	}
	return &account, nil
}

func (s *quotaService) defaultPlan(ctx context.Context) (*models.InquiryPlan, error) {
	var plan models.InquiryPlan
	err := s.db.Collection(inquiryPlansCollection).FindOne(ctx, bson.M{"default": true}).Decode(&plan)
	if err != nil {
		return nil, fmt.Errorf("failed to load default inquiry plan: %w", err)
	}
	return &plan, nil
}

func (s *quotaService) overlayFor(ctx context.Context, userID string) models.PremiumOverlay {
	if s.overlays == nil {
		return nil
	}
	overlay, err := s.overlays.OverlayFor(ctx, userID)
	if err != nil {
		// Overlay trouble must not break base-pool accounting.
		log.Printf("Failed to resolve premium overlay for user %s: %v", userID, err)
		return nil
	}
	return overlay
}

func (s *quotaService) CanAdmit(ctx context.Context, userID string) (bool, error) {
	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.CanAdmit(s.overlayFor(ctx, userID)), nil
}

// Increment consumes one unit: from the overlay when it is usable, otherwise
// from the base pool. The base branch is a conditional $inc so concurrent
// sends from the same user cannot push the counter past the limit.
func (s *quotaService) Increment(ctx context.Context, userID string) error {
	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return err
	}
	overlay := s.overlayFor(ctx, userID)

	if overlay != nil && overlay.Usable() {
		if err := overlay.Increment(ctx); err != nil {
			return fmt.Errorf("failed to increment premium overlay for user %s: %w", userID, err)
		}
	} else {
		res := s.db.Collection(quotaAccountsCollection).FindOneAndUpdate(ctx,
			bson.M{"user_id": userID, "$expr": bson.M{"$lt": bson.A{"$base_counter", "$base_limit"}}},
			bson.M{"$inc": bson.M{"base_counter": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		)
		if err := res.Decode(account); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// Base pool already full; nothing consumed.
				return nil
			}
			return fmt.Errorf("failed to increment base counter for user %s: %w", userID, err)
		}
	}

	// Refresh the overlay view and announce exhaustion when the whole pool is
	// used up. At-least-once: the notification service owns de-duplication.
	if overlay != nil && overlay.Usable() {
		account, err = s.GetOrCreateAccount(ctx, userID)
		if err != nil {
			return err
		}
	}
	if account.EffectiveCounter(overlay) >= account.EffectiveLimit(overlay) {
		if err := s.notifications.LimitReached(ctx, userID); err != nil {
			log.Printf("Failed to publish limit-reached notification for user %s: %v", userID, err)
		}
	}
	return nil
}

// Decrement refunds one unit to the base pool. Refunds always target the base
// pool even when the original consumption came from the overlay; decrementing
// past zero is a no-op, not an error.
func (s *quotaService) Decrement(ctx context.Context, userID string) error {
	_, err := s.db.Collection(quotaAccountsCollection).UpdateOne(ctx,
		bson.M{"user_id": userID, "base_counter": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"base_counter": -1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to decrement base counter for user %s: %w", userID, err)
	}
	return nil
}

// SetPlan raises the base limit by the plan's allowance and repoints the
// account at it. The counter is deliberately left alone: used inquiries stay
// used across upgrades.
func (s *quotaService) SetPlan(ctx context.Context, userID, planRef string) error {
	var plan models.InquiryPlan
	err := s.db.Collection(inquiryPlansCollection).FindOne(ctx, bson.M{"type_ref": planRef}).Decode(&plan)
	if err != nil {
		return fmt.Errorf("failed to load inquiry plan %s: %w", planRef, err)
	}

	if _, err := s.GetOrCreateAccount(ctx, userID); err != nil {
		return err
	}
	_, err = s.db.Collection(quotaAccountsCollection).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{"base_limit": plan.Limit},
			"$set": bson.M{"plan_ref": plan.TypeRef, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to switch user %s to plan %s: %w", userID, planRef, err)
	}
	return nil
}

func (s *quotaService) Metadata(ctx context.Context, userID string) (*QuotaMetadata, error) {
	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	overlay := s.overlayFor(ctx, userID)
	return &QuotaMetadata{
		PlanRef:   account.PlanRef,
		Counter:   account.EffectiveCounter(overlay),
		Limit:     account.EffectiveLimit(overlay),
		Available: account.Available(overlay),
	}, nil
}

// EnsurePlans seeds the plan tiers. Existing plans are left untouched so
// limits tweaked in production survive restarts.
func EnsurePlans(ctx context.Context, database *mongo.Database) error {
	coll := database.Collection(inquiryPlansCollection)
	for _, plan := range models.DefaultPlans() {
		plan.ID = uuid.NewString()
		filter := bson.M{"type_ref": plan.TypeRef}
		update := bson.M{"$setOnInsert": plan}
		if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to seed inquiry plan %s: %w", plan.TypeRef, err)
		}
	}
	return nil
}

// EnsureLogTemplates seeds the lifecycle log templates the same way.
func EnsureLogTemplates(ctx context.Context, database *mongo.Database) error {
	coll := database.Collection(logTemplatesCollection)
	for _, tmpl := range models.DefaultLogTemplates() {
		filter := bson.M{"_id": tmpl.LogType}
		update := bson.M{"$setOnInsert": tmpl}
		if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to seed log template %s: %w", tmpl.LogType, err)
		}
	}
	return nil
}
