package dialogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/responder/internal/observability"
)

func TestRenderIncludesBudgetAndSubject(t *testing.T) {
	out := Render("Be calm.", Prompt{
		History:   "Responder: Hi!\nPatient: Hello",
		Reply:     "I have a headache",
		Subject:   "Alice",
		Remaining: 3,
	})
	require.Contains(t, out, "Be calm.")
	require.Contains(t, out, "speaking with Alice")
	require.Contains(t, out, "Responder: Hi!\nPatient: Hello\nPatient: I have a headache")
	require.Contains(t, out, "You have 3 questions left")
	require.Regexp(t, `Responder:$`, out)
}

func TestRenderDoesNotRepeatReplyAlreadyInHistory(t *testing.T) {
	out := Render("", Prompt{
		History:   "Responder: Hi!\nPatient: I feel dizzy",
		Reply:     "I feel dizzy",
		Remaining: 1,
	})
	require.Equal(t, 1, strings.Count(out, "I feel dizzy"))
}

func TestRenderDefaultsSubject(t *testing.T) {
	require.Contains(t, Render("", Prompt{Reply: "hi"}), "speaking with Patient")
}

func TestScriptedFallsBackToClosing(t *testing.T) {
	s := NewScripted("Thank you for your time.", "Since when?")
	ctx := context.Background()

	u, err := s.NextUtterance(ctx, Prompt{Budget: 7, Remaining: 6})
	require.NoError(t, err)
	require.Equal(t, "Since when?", u)

	u, err = s.NextUtterance(ctx, Prompt{Budget: 7, Remaining: 5})
	require.NoError(t, err)
	require.Equal(t, "Thank you for your time.", u)
}

func TestScriptedFollowsEachSessionsOwnTurn(t *testing.T) {
	s := NewScripted("bye", "Since when?", "Any allergies?")
	ctx := context.Background()

	for session := 0; session < 2; session++ {
		u, err := s.NextUtterance(ctx, Prompt{Budget: 3, Remaining: 2})
		require.NoError(t, err)
		require.Equal(t, "Since when?", u, "session %d", session)
		u, err = s.NextUtterance(ctx, Prompt{Budget: 3, Remaining: 1})
		require.NoError(t, err)
		require.Equal(t, "Any allergies?", u, "session %d", session)
	}

	// Without a budget the responder lines in history give the turn.
	u, err := s.NextUtterance(ctx, Prompt{History: "Responder: Hi\nPatient: headache\nResponder: Since when?\nPatient: monday"})
	require.NoError(t, err)
	require.Equal(t, "Any allergies?", u)
}

func TestScriptedSummarize(t *testing.T) {
	s := NewScripted("bye")
	sum, err := s.Summarize(context.Background(), "Responder: Hi\nPatient: I have a headache\nResponder: Since?\nPatient: Two days")
	require.NoError(t, err)
	require.Equal(t, "Patient reported: I have a headache; Two days.", sum)

	sum, err = s.Summarize(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, sum)
}

func newFakeCompletions(t *testing.T, reply string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}},
		})
	}))
}

func TestClientNextUtterance(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newFakeCompletions(t, "  How long have you had it?  ", &seen)
	defer srv.Close()

	c, err := NewClient(Options{
		APIKey:       "test",
		BaseURL:      srv.URL,
		Model:        "llama-3.3-70b-versatile",
		Temperature:  0.3,
		SystemPrompt: "Be calm.",
	}, observability.NewMetricsWith(prometheus.NewRegistry(), "test"))
	require.NoError(t, err)

	out, err := c.NextUtterance(context.Background(), Prompt{Reply: "headache", Subject: "Alice", Remaining: 6})
	require.NoError(t, err)
	require.Equal(t, "How long have you had it?", out)
	require.Equal(t, "llama-3.3-70b-versatile", seen.Model)
	require.InDelta(t, 0.3, seen.Temperature, 1e-6)
	require.Len(t, seen.Messages, 1)
	require.Contains(t, seen.Messages[0].Content, "You have 6 questions left")
}

func TestClientSendsZeroTemperature(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newFakeCompletions(t, "Where does it hurt?", &seen)
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "test", BaseURL: srv.URL, Model: "m", Temperature: 0}, nil)
	require.NoError(t, err)

	_, err = c.NextUtterance(context.Background(), Prompt{Reply: "my arm", Remaining: 2})
	require.NoError(t, err)
	require.Greater(t, seen.Temperature, float32(0), "zero must not be dropped from the request")
	require.Less(t, seen.Temperature, float32(1e-6))
}

func TestClientEmptyCompletionIsError(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newFakeCompletions(t, "   ", &seen)
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "test", BaseURL: srv.URL, Model: "m"}, nil)
	require.NoError(t, err)

	_, err = c.Summarize(context.Background(), "Patient: hi")
	require.ErrorIs(t, err, ErrEmptyCompletion)
	require.Contains(t, seen.Messages[0].Content, "Summary:")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Options{Model: "m"}, nil)
	require.Error(t, err)
}
