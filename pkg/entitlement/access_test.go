package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apexmind_backend/pkg/subscription"
)

func TestAccessLevel_ReadWrite(t *testing.T) {
	cases := []struct {
		level     AccessLevel
		read      bool
		write     bool
		planKnown bool
	}{
		{trialActive(5), true, true, true},
		{paidActive(subscription.StarterPlan), true, true, true},
		{paidPastDue(subscription.BusinessProPlan), true, false, true},
		{AccessLevel{Kind: TrialExpired}, false, false, false},
		{noAccess(), false, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.read, tc.level.CanRead(), string(tc.level.Kind))
		assert.Equal(t, tc.write, tc.level.CanWrite(), string(tc.level.Kind))
		_, ok := tc.level.EffectivePlan()
		assert.Equal(t, tc.planKnown, ok, string(tc.level.Kind))
	}
}

func TestAccessLevel_TrialGetsFullAccess(t *testing.T) {
	level := trialActive(3)
	assert.True(t, level.Allows(subscription.AIContent))
	assert.True(t, level.Allows(subscription.Export))
	assert.False(t, level.Allows(subscription.DedicatedManager))
}

func TestAccessLevel_PastDueLosesWriteFeatures(t *testing.T) {
	level := paidPastDue(subscription.BusinessProPlan)
	assert.False(t, level.Allows(subscription.Export))
	assert.False(t, level.Allows(subscription.AIContent))
	assert.True(t, level.Allows(subscription.PrioritySupport))
	assert.NotContains(t, level.Features(), subscription.Export)
}

func TestAccessLevel_NoAccessFeatures(t *testing.T) {
	assert.Empty(t, noAccess().Features())
	assert.False(t, noAccess().Allows(subscription.DocumentAnalysis))
}
