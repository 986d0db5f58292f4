package subscription

type PlanType string
type Status string
type Feature string

const (
	StarterPlan     PlanType = "STARTER"
	BusinessProPlan PlanType = "BUSINESS_PRO"
	EnterprisePlan  PlanType = "ENTERPRISE"
)

const (
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
	StatusNone     Status = "NONE"
)

const (
	DocumentAnalysis  Feature = "document_analysis"
	AIContent         Feature = "ai_content"
	AllIntegrations   Feature = "all_integrations"
	Export            Feature = "export"
	TaskAutomation    Feature = "task_automation"
	TeamCollaboration Feature = "team_collaboration"
	PrioritySupport   Feature = "priority_support"
	DedicatedManager  Feature = "dedicated_manager"
)

// Unlimited marks a limit without a ceiling.
const Unlimited = -1

// TrialPlan is what an account gets while its trial is running: full access.
const TrialPlan = BusinessProPlan

type PlanLimits struct {
	MaxDocumentsPerMonth int
	MaxIntegrations      int
	MaxTeamMembers       int
	MaxCustomFolders     int
	AllowedFeatures      map[Feature]bool
}

var PlanFeatures = map[PlanType]PlanLimits{
	StarterPlan: {
		MaxDocumentsPerMonth: 5,
		MaxIntegrations:      1,
		MaxTeamMembers:       1,
		MaxCustomFolders:     3,
		AllowedFeatures: map[Feature]bool{
			DocumentAnalysis: true,
		},
	},
	BusinessProPlan: {
		MaxDocumentsPerMonth: Unlimited,
		MaxIntegrations:      Unlimited,
		MaxTeamMembers:       5,
		MaxCustomFolders:     Unlimited,
		AllowedFeatures: map[Feature]bool{
			DocumentAnalysis:  true,
			AIContent:         true,
			AllIntegrations:   true,
			Export:            true,
			TaskAutomation:    true,
			TeamCollaboration: true,
			PrioritySupport:   true,
		},
	},
	EnterprisePlan: {
		MaxDocumentsPerMonth: Unlimited,
		MaxIntegrations:      Unlimited,
		MaxTeamMembers:       Unlimited,
		MaxCustomFolders:     Unlimited,
		AllowedFeatures: map[Feature]bool{
			DocumentAnalysis:  true,
			AIContent:         true,
			AllIntegrations:   true,
			Export:            true,
			TaskAutomation:    true,
			TeamCollaboration: true,
			PrioritySupport:   true,
			DedicatedManager:  true,
		},
	},
}

// writeFeatures produce or export data and are withheld from past-due accounts.
var writeFeatures = map[Feature]bool{
	DocumentAnalysis: true,
	AIContent:        true,
	Export:           true,
	TaskAutomation:   true,
}

func CanUseFeature(plan PlanType, feature Feature) bool {
	limits, exists := PlanFeatures[plan]
	if !exists {
		return false
	}
	return limits.AllowedFeatures[feature]
}

func IsWriteFeature(feature Feature) bool {
	return writeFeatures[feature]
}

func GetPlanLimits(plan PlanType) PlanLimits {
	return PlanFeatures[plan]
}

// FeatureList returns the plan's enabled features in a stable order.
func FeatureList(plan PlanType) []Feature {
	ordered := []Feature{
		DocumentAnalysis, AIContent, AllIntegrations, Export,
		TaskAutomation, TeamCollaboration, PrioritySupport, DedicatedManager,
	}
	out := make([]Feature, 0, len(ordered))
	for _, f := range ordered {
		if CanUseFeature(plan, f) {
			out = append(out, f)
		}
	}
	return out
}

func (p PlanType) IsValid() bool {
	_, ok := PlanFeatures[p]
	return ok
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusCanceled, StatusNone:
		return true
	}
	return false
}

// FromStripeStatus maps a Stripe subscription status onto the record status.
func FromStripeStatus(stripeStatus string) Status {
	switch stripeStatus {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled", "incomplete_expired":
		return StatusCanceled
	default:
		return StatusNone
	}
}
