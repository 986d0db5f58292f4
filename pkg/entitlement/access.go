package entitlement

import "apexmind_backend/pkg/subscription"

type Kind string

const (
	TrialActive  Kind = "TRIAL_ACTIVE"
	TrialExpired Kind = "TRIAL_EXPIRED"
	PaidActive   Kind = "PAID_ACTIVE"
	PaidPastDue  Kind = "PAID_PAST_DUE"
	NoAccess     Kind = "NO_ACCESS"
)

// AccessLevel is the resolved access tier of an account at one instant.
// It is computed per request and must not be cached.
type AccessLevel struct {
	Kind          Kind
	DaysRemaining int                   // TrialActive only
	Plan          subscription.PlanType // PaidActive and PaidPastDue only
}

func trialActive(days int) AccessLevel {
	return AccessLevel{Kind: TrialActive, DaysRemaining: days}
}

func paidActive(plan subscription.PlanType) AccessLevel {
	return AccessLevel{Kind: PaidActive, Plan: plan}
}

func paidPastDue(plan subscription.PlanType) AccessLevel {
	return AccessLevel{Kind: PaidPastDue, Plan: plan}
}

func noAccess() AccessLevel {
	return AccessLevel{Kind: NoAccess}
}

// EffectivePlan is the plan whose feature table applies.
func (a AccessLevel) EffectivePlan() (subscription.PlanType, bool) {
	switch a.Kind {
	case TrialActive:
		return subscription.TrialPlan, true
	case PaidActive, PaidPastDue:
		return a.Plan, true
	}
	return "", false
}

func (a AccessLevel) CanRead() bool {
	switch a.Kind {
	case TrialActive, PaidActive, PaidPastDue:
		return true
	}
	return false
}

// CanWrite is false for past-due accounts, which keep read-only access
// during the grace period.
func (a AccessLevel) CanWrite() bool {
	return a.Kind == TrialActive || a.Kind == PaidActive
}

func (a AccessLevel) Allows(feature subscription.Feature) bool {
	plan, ok := a.EffectivePlan()
	if !ok || !subscription.CanUseFeature(plan, feature) {
		return false
	}
	if a.Kind == PaidPastDue && subscription.IsWriteFeature(feature) {
		return false
	}
	return true
}

// Features lists what the level unlocks, for the client's feature gates.
func (a AccessLevel) Features() []subscription.Feature {
	plan, ok := a.EffectivePlan()
	if !ok {
		return []subscription.Feature{}
	}
	out := make([]subscription.Feature, 0)
	for _, f := range subscription.FeatureList(plan) {
		if a.Allows(f) {
			out = append(out, f)
		}
	}
	return out
}
