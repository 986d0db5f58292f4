package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanUseFeature(t *testing.T) {
	assert.True(t, CanUseFeature(StarterPlan, DocumentAnalysis))
	assert.False(t, CanUseFeature(StarterPlan, AIContent))
	assert.True(t, CanUseFeature(BusinessProPlan, Export))
	assert.False(t, CanUseFeature(BusinessProPlan, DedicatedManager))
	assert.True(t, CanUseFeature(EnterprisePlan, DedicatedManager))
	assert.False(t, CanUseFeature(PlanType("GOLD"), DocumentAnalysis))
}

func TestFeatureList_StableOrder(t *testing.T) {
	assert.Equal(t, []Feature{DocumentAnalysis}, FeatureList(StarterPlan))
	assert.Equal(t, []Feature{
		DocumentAnalysis, AIContent, AllIntegrations, Export,
		TaskAutomation, TeamCollaboration, PrioritySupport,
	}, FeatureList(BusinessProPlan))
	assert.Len(t, FeatureList(EnterprisePlan), 8)
}

func TestFromStripeStatus(t *testing.T) {
	cases := map[string]Status{
		"active":             StatusActive,
		"trialing":           StatusActive,
		"past_due":           StatusPastDue,
		"unpaid":             StatusPastDue,
		"canceled":           StatusCanceled,
		"incomplete_expired": StatusCanceled,
		"incomplete":         StatusNone,
		"":                   StatusNone,
	}
	for in, want := range cases {
		assert.Equal(t, want, FromStripeStatus(in), in)
	}
}

func TestValidity(t *testing.T) {
	assert.True(t, EnterprisePlan.IsValid())
	assert.False(t, PlanType("").IsValid())
	assert.True(t, StatusNone.IsValid())
	assert.False(t, Status("TRIALING").IsValid())
}

func TestIsWriteFeature(t *testing.T) {
	assert.True(t, IsWriteFeature(Export))
	assert.False(t, IsWriteFeature(PrioritySupport))
}
