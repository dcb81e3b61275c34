package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/models"
)

const premiumInquiriesCollection = "premium_inquiries"

const premiumValidityWindow = 30 * 24 * time.Hour

// premiumOverlayDoc mirrors the premium shop's pool document. The shop owns
// refills and purchases; this subsystem reads validity and spends units.
type premiumOverlayDoc struct {
	ID             string    `bson:"_id"`
	UserID         string    `bson:"user_id"`
	CurrentCounter int       `bson:"current_counter"`
	PoolLimit      int       `bson:"limit"`
	ValidUntil     time.Time `bson:"valid_until"`
}

type mongoOverlay struct {
	coll *mongo.Collection
	doc  premiumOverlayDoc
}

func (o *mongoOverlay) Counter() int { return o.doc.CurrentCounter }
func (o *mongoOverlay) Limit() int   { return o.doc.PoolLimit }

func (o *mongoOverlay) Usable() bool {
	return o.doc.ValidUntil.After(time.Now().UTC())
}

// Refresh extends the pool's validity window from now.
func (o *mongoOverlay) Refresh(ctx context.Context) error {
	validUntil := time.Now().UTC().Add(premiumValidityWindow)
	_, err := o.coll.UpdateOne(ctx,
		bson.M{"_id": o.doc.ID},
		bson.M{"$set": bson.M{"valid_until": validUntil}},
	)
	if err != nil {
		return fmt.Errorf("failed to refresh premium pool for user %s: %w", o.doc.UserID, err)
	}
	o.doc.ValidUntil = validUntil
	return nil
}

func (o *mongoOverlay) Increment(ctx context.Context) error {
	_, err := o.coll.UpdateOne(ctx,
		bson.M{"_id": o.doc.ID},
		bson.M{"$inc": bson.M{"current_counter": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment premium pool for user %s: %w", o.doc.UserID, err)
	}
	o.doc.CurrentCounter++
	return nil
}

type premiumOverlayProvider struct {
	db *mongo.Database
}

// NewPremiumOverlayProvider creates an overlay provider backed by the premium
// shop's pool collection.
func NewPremiumOverlayProvider(db *mongo.Database) IOverlayProvider {
	return &premiumOverlayProvider{db: db}
}

func (p *premiumOverlayProvider) OverlayFor(ctx context.Context, userID string) (models.PremiumOverlay, error) {
	coll := p.db.Collection(premiumInquiriesCollection)
	var doc premiumOverlayDoc
	err := coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load premium pool for user %s: %w", userID, err)
	}
	return &mongoOverlay{coll: coll, doc: doc}, nil
}
