package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeOverlay is a test stand-in for the premium collaborator.
type fakeOverlay struct {
	counter int
	limit   int
	usable  bool
}

func (f *fakeOverlay) Counter() int                        { return f.counter }
func (f *fakeOverlay) Limit() int                          { return f.limit }
func (f *fakeOverlay) Usable() bool                        { return f.usable }
func (f *fakeOverlay) Refresh(ctx context.Context) error   { return nil }
func (f *fakeOverlay) Increment(ctx context.Context) error { f.counter++; return nil }

func TestQuotaAccount_EffectiveValuesWithoutOverlay(t *testing.T) {
	acct := &QuotaAccount{BaseCounter: 1, BaseLimit: 5}

	assert.Equal(t, 5, acct.EffectiveLimit(nil))
	assert.Equal(t, 1, acct.EffectiveCounter(nil))
	assert.Equal(t, 4, acct.Available(nil))
	assert.True(t, acct.CanAdmit(nil))
}

func TestQuotaAccount_OverlayAddsToBothSides(t *testing.T) {
	acct := &QuotaAccount{BaseCounter: 5, BaseLimit: 5}
	overlay := &fakeOverlay{counter: 20, limit: 30, usable: true}

	assert.Equal(t, 35, acct.EffectiveLimit(overlay))
	assert.Equal(t, 25, acct.EffectiveCounter(overlay))
	assert.Equal(t, 10, acct.Available(overlay))
	assert.True(t, acct.CanAdmit(overlay))
}

func TestQuotaAccount_UnusableOverlayIsIgnored(t *testing.T) {
	acct := &QuotaAccount{BaseCounter: 2, BaseLimit: 2}
	overlay := &fakeOverlay{counter: 0, limit: 30, usable: false}

	assert.Equal(t, 2, acct.EffectiveLimit(overlay))
	assert.Equal(t, 0, acct.Available(overlay))
	assert.False(t, acct.CanAdmit(overlay))
}

func TestQuotaAccount_AvailableNeverNegative(t *testing.T) {
	// A plan downgrade or exhausted overlay can leave counter > limit.
	acct := &QuotaAccount{BaseCounter: 7, BaseLimit: 5}
	assert.Equal(t, 0, acct.Available(nil))
	assert.False(t, acct.CanAdmit(nil))
}

func TestDefaultPlans_ExactlyOneDefault(t *testing.T) {
	defaults := 0
	for _, plan := range DefaultPlans() {
		if plan.Default {
			defaults++
			assert.Equal(t, PlanBasic, plan.TypeRef)
		}
		assert.Greater(t, plan.Limit, 0)
	}
	assert.Equal(t, 1, defaults)
}
