package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// IProfileService is the read-only boundary to the profile/identity
// collaborator. Profile CRUD lives elsewhere; this subsystem only looks
// identities up.
type IProfileService interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	FindByUUID(ctx context.Context, profileUUID string) (*models.Profile, error)
	FindByAnonymousUUID(ctx context.Context, anonymousUUID string) (*models.Profile, error)
}

const profilesCollection = "profiles"

type profileService struct {
	db *mongo.Database
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db *mongo.Database) IProfileService {
	return &profileService{db: db}
}

func (s *profileService) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.Collection(profilesCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *profileService) FindByUUID(ctx context.Context, profileUUID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.Collection(profilesCollection).FindOne(ctx, bson.M{"uuid": profileUUID}).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile %s: %w", profileUUID, err)
	}
	return &profile, nil
}

// FindByAnonymousUUID resolves a profile by the anonymous handle on its
// transfer marker. This is how senders address a profile whose real identity
// is hidden from them.
func (s *profileService) FindByAnonymousUUID(ctx context.Context, anonymousUUID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.Collection(profilesCollection).FindOne(ctx, bson.M{
		"transfer_status.anonymous_uuid": anonymousUUID,
		"transfer_status.is_anonymous":   true,
	}).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("failed to find anonymous profile %s: %w", anonymousUUID, err)
	}
	return &profile, nil
}
