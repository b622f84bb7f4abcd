package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	require.True(t, changed)
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		require.Contains(t, out, marker)
	}
}

func TestRedactPIIMedicalIdentifiers(t *testing.T) {
	out, changed := RedactPII("My MRN: 20-448812 and I was born 04/12/1986.")
	require.True(t, changed)
	require.Contains(t, out, "[REDACTED_MRN]")
	require.Contains(t, out, "[REDACTED_DATE]")
	require.NotContains(t, out, "448812")
	require.NotContains(t, out, "1986")
}

func TestRedactLeavesSymptomsAlone(t *testing.T) {
	in := "I have had a headache for 3 days and feel dizzy."
	out, changed := RedactPII(in)
	require.False(t, changed)
	require.Equal(t, in, out)
	require.Equal(t, in, Redact(in))
}
