package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// "MRN 1234567", "medical record number: 00-12345".
	mrnPattern = regexp.MustCompile(`(?i)\b(?:mrn|medical record(?: number)?)\s*[:#]?\s*[0-9][0-9\-]{4,}\b`)
	// Numeric dates such as 04/12/1986 or 1986-04-12.
	dobPattern = regexp.MustCompile(`\b(?:\d{1,2}[/.\-]\d{1,2}[/.\-](?:19|20)\d{2}|(?:19|20)\d{2}-\d{2}-\d{2})\b`)
)

type rule struct {
	pattern *regexp.Regexp
	marker  string
}

// Order matters: record numbers and dates before cards and phones so that
// their digits are not claimed by the broader patterns.
var rules = []rule{
	{emailPattern, "[REDACTED_EMAIL]"},
	{mrnPattern, "[REDACTED_MRN]"},
	{dobPattern, "[REDACTED_DATE]"},
	{cardPattern, "[REDACTED_CARD]"},
	{phonePattern, "[REDACTED_PHONE]"},
}

// RedactPII masks common high-risk PII patterns in patient speech.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range rules {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// Redact is RedactPII without the change flag.
func Redact(input string) string {
	out, _ := RedactPII(input)
	return out
}
