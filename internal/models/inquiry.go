package models

import (
	"errors"
	"time"
)

// InquiryStatus is the lifecycle state of an inquiry request.
type InquiryStatus string

const (
	StatusNew      InquiryStatus = "NEW"
	StatusSent     InquiryStatus = "SENT"
	StatusReceived InquiryStatus = "RECEIVED"
	StatusAccepted InquiryStatus = "ACCEPTED"
	StatusRejected InquiryStatus = "REJECTED"
)

// ErrForbiddenTransition is returned when a lifecycle transition is attempted
// from a state that does not allow it (terminal states in particular).
var ErrForbiddenTransition = errors.New("forbidden inquiry status transition")

// Inquiry is a single contact request from one user to another.
//
// Resolved mirrors "status is terminal" so that a partial unique index on
// {sender_id, recipient_id} where {resolved: false} can enforce at most one
// active inquiry per ordered pair at the storage level.
type Inquiry struct {
	ID          string        `bson:"_id" json:"id"`
	SenderID    string        `bson:"sender_id" json:"sender_id"`
	RecipientID string        `bson:"recipient_id" json:"recipient_id"`
	Status      InquiryStatus `bson:"status" json:"status"`
	Resolved    bool          `bson:"resolved" json:"-"`

	// AnonymousRecipient stays true forever once set; whether the recipient is
	// actually hidden at read time is decided by the anonymity resolver.
	AnonymousRecipient     bool    `bson:"anonymous_recipient" json:"anonymous_recipient"`
	RecipientAnonymousUUID *string `bson:"recipient_anonymous_uuid,omitempty" json:"recipient_anonymous_uuid,omitempty"`

	// SenderHasUpdate flags an unseen accept/reject for the sender's UI badge.
	SenderHasUpdate bool `bson:"sender_has_update" json:"sender_has_update"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ResolvedStates are the terminal states; no transition leaves them.
var ResolvedStates = []InquiryStatus{StatusAccepted, StatusRejected}

func (i *Inquiry) IsResolved() bool {
	return i.Status == StatusAccepted || i.Status == StatusRejected
}

// Send advances a freshly constructed inquiry to SENT. NEW is never observable
// outside the creation flow.
func (i *Inquiry) Send() error {
	if i.Status != StatusNew {
		return ErrForbiddenTransition
	}
	i.Status = StatusSent
	return nil
}

// Read marks the inquiry as seen by the recipient and clears the sender's
// unread-update flag.
func (i *Inquiry) Read() error {
	if i.Status != StatusSent {
		return ErrForbiddenTransition
	}
	i.Status = StatusReceived
	i.SenderHasUpdate = false
	return nil
}

// Accept resolves the inquiry in the sender's favour.
func (i *Inquiry) Accept() error {
	if i.IsResolved() {
		return ErrForbiddenTransition
	}
	i.Status = StatusAccepted
	i.Resolved = true
	i.SenderHasUpdate = true
	return nil
}

// Reject resolves the inquiry against the sender.
func (i *Inquiry) Reject() error {
	if i.IsResolved() {
		return ErrForbiddenTransition
	}
	i.Status = StatusRejected
	i.Resolved = true
	i.SenderHasUpdate = true
	return nil
}

// StatusDisplayFor renders the status from the given user's point of view, the
// way the product copy expects ("WYSŁANO" for the sender of a SENT inquiry,
// "OTRZYMANO" for its recipient).
func (i *Inquiry) StatusDisplayFor(userID string) string {
	switch i.Status {
	case StatusSent:
		if userID == i.SenderID {
			return "WYSŁANO"
		}
		return "OTRZYMANO"
	case StatusReceived:
		return "ODCZYTANO"
	case StatusAccepted:
		return "ZAAKCEPTOWANO"
	case StatusRejected:
		return "ODRZUCONO"
	default:
		return string(i.Status)
	}
}
