package models

import "time"

// Notification event types published to the in-app feed.
const (
	EventReceiveInquiry         = "receive_inquiry"
	EventAcceptInquiry          = "accept_inquiry"
	EventRejectInquiry          = "reject_inquiry"
	EventInquiryRestored        = "inquiry_request_restored"
	EventPendingInquiryDecision = "pending_inquiry_decision"
	EventQueryPoolExhausted     = "query_pool_exhausted"
)

// Notification is a feed entry for the notification collaborator. Delivery is
// fire-and-forget from this subsystem's point of view.
type Notification struct {
	ID            string    `bson:"_id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	EventType     string    `bson:"event_type" json:"event_type"`
	RelatedUserID string    `bson:"related_user_id,omitempty" json:"related_user_id,omitempty"`
	InquiryID     string    `bson:"inquiry_id,omitempty" json:"inquiry_id,omitempty"`
	Read          bool      `bson:"read" json:"read"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
