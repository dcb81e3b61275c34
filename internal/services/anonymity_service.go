package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/playmaker-pro/backend-sub001/internal/models"
)

// anonymousUnknownUUID labels recipients whose anonymity marker vanished
// between snapshot attempts. Still anonymous, just without a stable handle.
const anonymousUnknownUUID = "unknown"

// IAnonymityService decides what identity an inquiry exposes for its
// recipient and snapshots anonymity state at creation time.
type IAnonymityService interface {
	SnapshotUUID(ctx context.Context, recipientUserID string, requested bool) (anonymous bool, snapshotUUID *string, err error)
	ResolveRecipient(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error)
	ResolveSender(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error)
}

type anonymityService struct {
	profiles IProfileService
}

// NewAnonymityService creates a new AnonymityService.
func NewAnonymityService(profiles IProfileService) IAnonymityService {
	return &anonymityService{profiles: profiles}
}

// SnapshotUUID captures the recipient's anonymity state for the lifetime of
// an inquiry. The live transfer marker can be edited or deleted later; the
// snapshot keeps already-sent inquiries anonymous under the same handle.
// Anonymity holds when the recipient's marker says so or the sender asked for
// it; a requested-only inquiry has no handle to snapshot and later resolves
// to the unknown placeholder.
func (s *anonymityService) SnapshotUUID(ctx context.Context, recipientUserID string, requested bool) (bool, *string, error) {
	profile, err := s.profiles.FindByUserID(ctx, recipientUserID)
	if err != nil {
		return false, nil, err
	}
	ts := profile.TransferStatus
	if ts == nil || !ts.IsAnonymous {
		return requested, nil, nil
	}
	snapshot := ts.AnonymousUUID
	if snapshot == "" {
		// Marker flagged anonymous without a handle; mint one for the snapshot
		// so the placeholder slug stays stable.
		snapshot = uuid.NewString()
	}
	return true, &snapshot, nil
}

// ResolveRecipient returns the identity the sender may see. Acceptance lifts
// anonymity; otherwise a hidden recipient resolves through the snapshot, then
// the live transfer marker, then the unknown placeholder.
func (s *anonymityService) ResolveRecipient(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error) {
	if inquiry.Status == models.StatusAccepted || !inquiry.AnonymousRecipient {
		profile, err := s.profiles.FindByUserID(ctx, inquiry.RecipientID)
		if err != nil {
			return models.PublicIdentity{}, fmt.Errorf("failed to resolve recipient of inquiry %s: %w", inquiry.ID, err)
		}
		return models.PublicIdentityOf(profile), nil
	}

	if inquiry.RecipientAnonymousUUID != nil && *inquiry.RecipientAnonymousUUID != "" {
		return models.AnonymousIdentity(*inquiry.RecipientAnonymousUUID), nil
	}
	if profile, err := s.profiles.FindByUserID(ctx, inquiry.RecipientID); err == nil {
		if ts := profile.TransferStatus; ts != nil && ts.AnonymousUUID != "" {
			return models.AnonymousIdentity(ts.AnonymousUUID), nil
		}
	}
	return models.AnonymousIdentity(anonymousUnknownUUID), nil
}

// ResolveSender always exposes the real sender; anonymity only ever protects
// the recipient side.
func (s *anonymityService) ResolveSender(ctx context.Context, inquiry *models.Inquiry) (models.PublicIdentity, error) {
	profile, err := s.profiles.FindByUserID(ctx, inquiry.SenderID)
	if err != nil {
		return models.PublicIdentity{}, fmt.Errorf("failed to resolve sender of inquiry %s: %w", inquiry.ID, err)
	}
	return models.PublicIdentityOf(profile), nil
}
