package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type identifies event and websocket payload variants.
type Type string

const (
	TypeSessionStarted   Type = "session.started"
	TypeSessionState     Type = "session.state"
	TypeTranscriptLine   Type = "transcript.line"
	TypeSessionFinalized Type = "session.finalized"
	TypeRecordFiled      Type = "record.filed"
	TypeError            Type = "error"

	TypeClientControl Type = "client_control"
)

// Client control actions accepted on the kiosk websocket.
const (
	ActionStart = "start"
	ActionPing  = "ping"
)

var ErrUnsupportedType = errors.New("unsupported message type")

// Event is one observable change of a patient session. Patient text is
// redacted before an Event is built.
type Event struct {
	Type        Type      `json:"type"`
	SessionID   string    `json:"session_id"`
	At          time.Time `json:"at"`
	Subject     string    `json:"subject,omitempty"`
	State       string    `json:"state,omitempty"`
	Remaining   *int      `json:"remaining,omitempty"`
	Seq         int       `json:"seq,omitempty"`
	Speaker     string    `json:"speaker,omitempty"`
	Text        string    `json:"text,omitempty"`
	Termination string    `json:"termination,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	Code        string    `json:"code,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

type envelope struct {
	Type Type `json:"type"`
}

// ClientControl is sent by the kiosk screen to start a session or keep the socket alive.
type ClientControl struct {
	Type   Type   `json:"type"`
	Action string `json:"action"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionStart, ActionPing:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}

// IntPtr is a helper for Event.Remaining, which must distinguish zero from unset.
func IntPtr(v int) *int { return &v }
