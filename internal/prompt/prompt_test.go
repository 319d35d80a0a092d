package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemFillsBothSlots(t *testing.T) {
	out := System("**Name**: Priya Sharma", "[Excerpt 1] leave policy text")

	assert.Contains(t, out, "**Name**: Priya Sharma")
	assert.Contains(t, out, "[Excerpt 1] leave policy text")
	assert.NotContains(t, out, "{{employee_information}}")
	assert.NotContains(t, out, "{{retrieved_policy_information}}")
}

func TestSystemRendersAbsenceMarkers(t *testing.T) {
	out := System("", "  ")

	assert.Contains(t, out, "(no employee record available)")
	assert.Contains(t, out, "(no policy excerpts retrieved for this query)")
}

func TestSystemEmbedsFixedResponsesVerbatim(t *testing.T) {
	out := System("p", "x")

	assert.Contains(t, out, RefusalMessage)
	assert.Contains(t, out, ReadOnlyMessage)
	assert.Contains(t, out, EscalationNotice)
}

func TestFixedResponseWording(t *testing.T) {
	assert.Equal(t, "This is a demo environment with read-only access. Your update request has been noted, but cannot be applied here.", ReadOnlyMessage)
	assert.Equal(t, "Please ensure complete compliance with internal protocols. Unauthorized actions may trigger a security escalation.", EscalationNotice)
}

func TestProfileSectionPrecedesPolicySection(t *testing.T) {
	out := System("PROFILE-SENTINEL", "POLICY-SENTINEL")

	assert.Less(t, strings.Index(out, "PROFILE-SENTINEL"), strings.Index(out, "POLICY-SENTINEL"))
}
