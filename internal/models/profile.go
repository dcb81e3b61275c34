package models

import "strings"

// Gender markers used across profiles and preferences.
const (
	GenderMale   = "M"
	GenderFemale = "K"
)

// TransferStatus is the live anonymity marker owned by the transfers
// collaborator. It can be edited or deleted at any time; inquiries that need
// anonymity to survive such changes keep their own UUID snapshot.
type TransferStatus struct {
	AnonymousUUID string `bson:"anonymous_uuid" json:"anonymous_uuid"`
	IsAnonymous   bool   `bson:"is_anonymous" json:"is_anonymous"`
}

// Profile is the read-only identity shape exposed by the profile collaborator.
// LegacyID is the numeric public id; 0 is reserved for the anonymous
// placeholder.
type Profile struct {
	UserID         string          `bson:"user_id" json:"user_id"`
	UUID           string          `bson:"uuid" json:"uuid"`
	LegacyID       int64           `bson:"legacy_id" json:"id"`
	FirstName      string          `bson:"first_name" json:"first_name"`
	LastName       string          `bson:"last_name" json:"last_name"`
	Role           string          `bson:"role" json:"role"`
	Gender         string          `bson:"gender" json:"gender"`
	Slug           string          `bson:"slug" json:"slug"`
	Email          string          `bson:"email" json:"-"`
	TransferStatus *TransferStatus `bson:"transfer_status,omitempty" json:"-"`
}

func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PublicIdentity is what the API exposes for either side of an inquiry. For a
// hidden recipient it carries the anonymous placeholder instead of real data.
type PublicIdentity struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Slug      string `json:"slug"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// AnonymousIdentity builds the placeholder identity for a hidden recipient.
// The uuid is whatever the three-tier fallback resolved to.
func AnonymousIdentity(uuid string) PublicIdentity {
	return PublicIdentity{
		ID:        0,
		UUID:      uuid,
		Slug:      "anonymous-" + uuid,
		FirstName: "Anonimowy",
		LastName:  "profil",
	}
}

// PublicIdentityOf exposes the real profile data.
func PublicIdentityOf(p *Profile) PublicIdentity {
	return PublicIdentity{
		ID:        p.LegacyID,
		UUID:      p.UUID,
		Slug:      p.Slug,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
	}
}
