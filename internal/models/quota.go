package models

import (
	"context"
	"time"
)

// PremiumOverlay is the externally owned premium inquiry pool layered on top
// of a user's base quota. This subsystem only reads it and increments its
// counter; refill and expiry are managed by the premium collaborator.
type PremiumOverlay interface {
	Counter() int
	Limit() int
	Usable() bool
	Refresh(ctx context.Context) error
	Increment(ctx context.Context) error
}

// QuotaAccount holds one user's base inquiry quota. The premium overlay is not
// embedded; callers pass the overlay (or nil) into the derived getters.
type QuotaAccount struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	PlanRef     string    `bson:"plan_ref" json:"plan_ref"`
	BaseCounter int       `bson:"base_counter" json:"base_counter"`
	BaseLimit   int       `bson:"base_limit" json:"base_limit"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

func overlayUsable(overlay PremiumOverlay) bool {
	return overlay != nil && overlay.Usable()
}

// EffectiveLimit is the base limit plus the overlay limit when usable.
func (a *QuotaAccount) EffectiveLimit(overlay PremiumOverlay) int {
	limit := a.BaseLimit
	if overlayUsable(overlay) {
		limit += overlay.Limit()
	}
	return limit
}

// EffectiveCounter is the base counter plus the overlay counter when usable.
func (a *QuotaAccount) EffectiveCounter(overlay PremiumOverlay) int {
	counter := a.BaseCounter
	if overlayUsable(overlay) {
		counter += overlay.Counter()
	}
	return counter
}

// Available never goes negative, even if a reward pushed the base counter
// below what the current limit would allow.
func (a *QuotaAccount) Available(overlay PremiumOverlay) int {
	left := a.EffectiveLimit(overlay) - a.EffectiveCounter(overlay)
	if left < 0 {
		return 0
	}
	return left
}

// CanAdmit reports whether the account may open one more inquiry. Advisory
// only: the creation flow checks it, the ledger itself never blocks.
func (a *QuotaAccount) CanAdmit(overlay PremiumOverlay) bool {
	return a.Available(overlay) > 0
}

// InquiryPlan is a named quota tier referenced by quota accounts.
type InquiryPlan struct {
	ID      string `bson:"_id" json:"id"`
	Name    string `bson:"name" json:"name"`
	TypeRef string `bson:"type_ref" json:"type_ref"`
	Limit   int    `bson:"limit" json:"limit"`
	Sort    int    `bson:"sort" json:"-"`
	Default bool   `bson:"default" json:"default"`
}

// Plan tier refs, mirroring the premium shop products.
const (
	PlanBasic            = "BASIC"
	PlanFreemiumStandard = "FREEMIUM_STANDARD"
	PlanFreemiumPlayer   = "FREEMIUM_PLAYER"
	PlanPremiumStandard  = "PREMIUM_STANDARD"
	PlanPremiumPlayer    = "PREMIUM_PLAYER"
	PlanPremiumL         = "PREMIUM_INQUIRIES_L"
	PlanPremiumXL        = "PREMIUM_INQUIRIES_XL"
	PlanPremiumXXL       = "PREMIUM_INQUIRIES_XXL"
)

// DefaultPlans is the bootstrap tier set. Exactly one plan is the default.
func DefaultPlans() []InquiryPlan {
	return []InquiryPlan{
		{Name: "Basic", TypeRef: PlanBasic, Limit: 2, Sort: 0, Default: true},
		{Name: "Freemium", TypeRef: PlanFreemiumStandard, Limit: 5, Sort: 1},
		{Name: "Freemium Piłkarz", TypeRef: PlanFreemiumPlayer, Limit: 10, Sort: 2},
		{Name: "Premium", TypeRef: PlanPremiumStandard, Limit: 30, Sort: 3},
		{Name: "Premium Piłkarz", TypeRef: PlanPremiumPlayer, Limit: 30, Sort: 4},
		{Name: "Zapytania L", TypeRef: PlanPremiumL, Limit: 3, Sort: 5},
		{Name: "Zapytania XL", TypeRef: PlanPremiumXL, Limit: 5, Sort: 6},
		{Name: "Zapytania XXL", TypeRef: PlanPremiumXXL, Limit: 10, Sort: 7},
	}
}
