// Package intent classifies employee queries into the categories the
// behavioral instructions recognize, and gates them against the session's
// clearance before any context is assembled. The gate is structural: an
// over-clearance or mutating query never reaches generation, so the fixed
// responses are deterministic rather than a model promise.
package intent

import (
	"strings"

	"axisconnect/internal/domain"
)

// Intent is the category a query is answered from.
type Intent int

const (
	General Intent = iota
	SelfService
	Policy
	Onboarding
	ITAsset
	Payroll
	Compliance
	Mutation
)

func (i Intent) String() string {
	switch i {
	case SelfService:
		return "self-service"
	case Policy:
		return "policy"
	case Onboarding:
		return "onboarding"
	case ITAsset:
		return "it-asset"
	case Payroll:
		return "payroll"
	case Compliance:
		return "compliance"
	case Mutation:
		return "mutation"
	default:
		return "general"
	}
}

var mutationMarkers = []string{
	"update my", "change my", "modify my", "correct my", "set my",
	"edit my", "remove my",
}

var categoryMarkers = []struct {
	intent  Intent
	markers []string
}{
	{Compliance, []string{"compliance", "audit", "security incident", "incident report", "clearance record", "confidential operation", "investigation"}},
	{Payroll, []string{"salary", "payslip", "payroll", "ctc", "tax", "provident fund", "pf ", "esi"}},
	{ITAsset, []string{"asset", "laptop", "it ticket", "facility ticket", "access card", "it support", "hardware"}},
	{Onboarding, []string{"onboarding", "onboard", "joining formalities", "orientation", "first day", "induction"}},
	{SelfService, []string{"my leave", "leave balance", "who am i", "my goals", "my performance", "my manager", "my profile", "my details", "my hrbp", "my shift", "apply for leave"}},
	{Policy, []string{"policy", "policies", "holiday list", "leave rules", "guideline", "procedure", "protocol", "code of conduct"}},
}

// Classify maps a query to its intent category. Mutation requests win over
// everything else; among the rest, the first matching category applies.
func Classify(query string) Intent {
	q := strings.ToLower(query)
	for _, m := range mutationMarkers {
		if strings.Contains(q, m) {
			return Mutation
		}
	}
	for _, c := range categoryMarkers {
		for _, m := range c.markers {
			if strings.Contains(q, m) {
				return c.intent
			}
		}
	}
	return General
}

// RequiredClearance returns the minimum clearance for an intent category.
// Employees always read their own self-service and payroll records;
// compliance material needs elevated clearance.
func RequiredClearance(i Intent) domain.Clearance {
	if i == Compliance {
		return domain.ClearanceElevated
	}
	return domain.ClearanceStandard
}

// Allowed reports whether a clearance level may receive answers for the
// intent category.
func Allowed(i Intent, c domain.Clearance) bool {
	return c >= RequiredClearance(i)
}
