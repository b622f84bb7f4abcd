package dialogue

import (
	"fmt"
	"strings"
)

// Prompt is everything the model sees when choosing the next responder utterance.
type Prompt struct {
	History   string
	Reply     string
	Subject   string
	Budget    int
	Remaining int
}

// Render lays p out under the system instructions. The remaining budget is
// stated explicitly so the model can spend its last questions on what matters most.
func Render(system string, p Prompt) string {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		subject = "Patient"
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(system))
	fmt.Fprintf(&b, "\n\nYou are speaking with %s.\n\nCurrent conversation:\n", subject)
	if p.History != "" {
		b.WriteString(p.History)
		b.WriteByte('\n')
	}
	// History already ends with the reply when the controller built it.
	if !strings.HasSuffix(p.History, "Patient: "+p.Reply) {
		fmt.Fprintf(&b, "Patient: %s\n", p.Reply)
	}
	fmt.Fprintf(&b, "Important: You have %d questions left. Ask the most important ones first.\n", p.Remaining)
	b.WriteString("Responder:")
	return b.String()
}

// RenderSummary builds the end-of-session summary request.
func RenderSummary(instruction, history string) string {
	return strings.TrimSpace(instruction) + "\n\n" + history + "\n\nSummary:"
}
