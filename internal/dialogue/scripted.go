package dialogue

import (
	"context"
	"fmt"
	"strings"
)

// Scripted replays canned utterances in order. It backs the mock kiosk mode
// so the whole flow can run without a model endpoint. It keeps no cursor of
// its own, so one instance serves any number of sessions.
type Scripted struct {
	utterances []string
	Closing    string
}

func NewScripted(closing string, utterances ...string) *Scripted {
	return &Scripted{utterances: append([]string(nil), utterances...), Closing: closing}
}

// NextUtterance picks the line for the turn p describes, then the closing
// line once the script runs out.
func (s *Scripted) NextUtterance(_ context.Context, p Prompt) (string, error) {
	if i := turnIndex(p); i < len(s.utterances) {
		return s.utterances[i], nil
	}
	return s.Closing, nil
}

// turnIndex is the number of questions already asked after the greeting.
// Without a budget it falls back to the responder lines in history, which
// undercounts once the memory window starts evicting.
func turnIndex(p Prompt) int {
	var i int
	if p.Budget > 0 {
		i = p.Budget - p.Remaining - 1
	} else {
		i = strings.Count("\n"+p.History, "\nResponder: ") - 1
	}
	if i < 0 {
		return 0
	}
	return i
}

// Summarize condenses the patient lines of history into one sentence.
func (s *Scripted) Summarize(_ context.Context, history string) (string, error) {
	var said []string
	for _, line := range strings.Split(history, "\n") {
		if rest, ok := strings.CutPrefix(line, "Patient: "); ok && strings.TrimSpace(rest) != "" {
			said = append(said, strings.TrimSpace(rest))
		}
	}
	if len(said) == 0 {
		return "", nil
	}
	return fmt.Sprintf("Patient reported: %s.", strings.Join(said, "; ")), nil
}
