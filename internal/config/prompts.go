package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the conversational wording a kiosk operator may override.
type Prompts struct {
	System        string `yaml:"system"`
	Greeting      string `yaml:"greeting"`
	Farewell      string `yaml:"farewell"`
	ClosingPhrase string `yaml:"closing_phrase"`
	QuitMarker    string `yaml:"quit_marker"`
	Summary       string `yaml:"summary"`
	Reask         string `yaml:"reask"`
}

// DefaultPrompts returns the built-in wording.
func DefaultPrompts() Prompts {
	return Prompts{
		System: strings.Join([]string{
			"You are a first responder at a hospital reception kiosk speaking with a patient.",
			"Stay calm and clear. Ask exactly one short question per reply.",
			"Focus on the patient's symptoms, relevant medical history and anything urgent.",
			"Never repeat a question that was already answered and adapt to what the patient said.",
			"If an answer is unclear, ask the patient to clarify it.",
			"When you have enough information, end your reply with \"Thank you for your time\" and stop asking questions.",
		}, "\n"),
		// %s is the subject label.
		Greeting:      "Hi %s!, How can I help you today?",
		Farewell:      "Thank you for your time, I will report your symptoms to the doctor.",
		ClosingPhrase: "Thank you for your time",
		QuitMarker:    "quit",
		Summary:       "Summarize the following patient and responder conversation for the attending doctor, highlighting the key symptoms and concerns:",
		// Spoken when the dialogue model comes back empty.
		Reask:         "Could you tell me a little more about that?",
	}
}

// LoadPrompts reads a YAML prompts file over the defaults. An empty path
// returns the defaults unchanged.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("PROMPTS_FILE read error: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Prompts{}, fmt.Errorf("PROMPTS_FILE parse error: %w", err)
	}
	p.merge(override)
	if !strings.Contains(p.Greeting, "%s") {
		return Prompts{}, fmt.Errorf("PROMPTS_FILE greeting must contain %%s for the subject")
	}
	if !strings.Contains(p.Farewell, p.ClosingPhrase) {
		return Prompts{}, fmt.Errorf("PROMPTS_FILE farewell must contain the closing phrase")
	}
	return p, nil
}

func (p *Prompts) merge(o Prompts) {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&p.System, o.System)
	set(&p.Greeting, o.Greeting)
	set(&p.Farewell, o.Farewell)
	set(&p.ClosingPhrase, o.ClosingPhrase)
	set(&p.QuitMarker, o.QuitMarker)
	set(&p.Summary, o.Summary)
	set(&p.Reask, o.Reask)
}
