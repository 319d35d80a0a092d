package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"axisconnect/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"Show my leave balance", SelfService},
		{"Who am I?", SelfService},
		{"Show my salary details.", Payroll},
		{"Show all IT assets assigned to me.", ITAsset},
		{"Show me all HR policies.", Policy},
		{"What are the joining formalities?", Onboarding},
		{"Show me the compliance audit findings", Compliance},
		{"Update my phone number to 555-0100", Mutation},
		{"change my emergency contact", Mutation},
		{"Hello there", General},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.query), "query: %s", tc.query)
	}
}

func TestMutationWinsOverCategory(t *testing.T) {
	// A mutating request mentioning payroll is still a mutation.
	assert.Equal(t, Mutation, Classify("update my salary account number"))
}

func TestClearanceGate(t *testing.T) {
	assert.True(t, Allowed(SelfService, domain.ClearanceStandard))
	assert.True(t, Allowed(Payroll, domain.ClearanceStandard))
	assert.True(t, Allowed(Policy, domain.ClearanceStandard))
	assert.False(t, Allowed(Compliance, domain.ClearanceStandard))
	assert.True(t, Allowed(Compliance, domain.ClearanceElevated))
	assert.True(t, Allowed(Compliance, domain.ClearanceRestricted))
}
