package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/responder/internal/audio"
)

type stubEngine struct {
	name  string
	err   error
	calls int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Render(context.Context, string) ([]byte, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	return []byte{1, 0, 2, 0}, 16000, nil
}

type stubRecorder struct {
	err      error
	recorded time.Duration
	path     string
}

func (r *stubRecorder) Record(_ context.Context, d time.Duration, path string) error {
	r.recorded = d
	r.path = path
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(path, []byte("RIFF"), 0o644)
}

type stubRecognizer struct {
	text string
	err  error
	seen string
}

func (r *stubRecognizer) Name() string { return "stub" }

func (r *stubRecognizer) Transcribe(_ context.Context, wavPath string) (string, error) {
	r.seen = wavPath
	return r.text, r.err
}

type recordingPlayer struct {
	played []string
	err    error
}

func (p *recordingPlayer) Play(_ context.Context, path string) error {
	p.played = append(p.played, path)
	return p.err
}

func TestFailoverEngineSwitchesToFallbackAndSticks(t *testing.T) {
	primary := &stubEngine{name: "deepgram", err: errors.New("primary unavailable")}
	fallback := &stubEngine{name: "mock"}
	f := NewFailoverEngine(primary, fallback)

	_, _, err := f.Render(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "mock", f.Name())

	_, _, err = f.Render(context.Background(), "again")
	require.NoError(t, err)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 2, fallback.calls)
}

func TestFailoverEngineRestoresPrimaryWhenFallbackFails(t *testing.T) {
	primary := &stubEngine{name: "deepgram", err: errors.New("down")}
	fallback := &stubEngine{name: "elevenlabs"}
	f := NewFailoverEngine(primary, fallback)

	_, _, err := f.Render(context.Background(), "one")
	require.NoError(t, err)

	primary.err = nil
	fallback.err = errors.New("quota")
	_, _, err = f.Render(context.Background(), "two")
	require.NoError(t, err)
	require.Equal(t, "deepgram", f.Name())
}

func TestFailoverEngineReportsBothFailures(t *testing.T) {
	f := NewFailoverEngine(&stubEngine{name: "a", err: errors.New("a down")}, &stubEngine{name: "b", err: errors.New("b down")})
	_, _, err := f.Render(context.Background(), "x")
	require.ErrorContains(t, err, "a down")
	require.ErrorContains(t, err, "b down")
}

func TestSpeakerWritesWAV(t *testing.T) {
	player := &recordingPlayer{}
	s := NewSpeaker(&stubEngine{name: "stub"}, player, nil)
	path := filepath.Join(t.TempDir(), "response.wav")

	h, err := s.Synthesize(context.Background(), "**Where** does it hurt?", path)
	require.NoError(t, err)
	require.Equal(t, path, h.Path)
	require.Equal(t, 16000, h.SampleRate)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rate, size, err := audio.ReadWAVInfo(f)
	require.NoError(t, err)
	require.Equal(t, 16000, rate)
	require.Equal(t, 4, size)

	require.NoError(t, s.Play(context.Background(), h))
	require.Equal(t, []string{path}, player.played)
}

func TestSpeakerRejectsUnspeakableText(t *testing.T) {
	engine := &stubEngine{name: "stub"}
	s := NewSpeaker(engine, &recordingPlayer{}, nil)
	_, err := s.Synthesize(context.Background(), "``` ```", filepath.Join(t.TempDir(), "x.wav"))
	require.Error(t, err)
	require.Zero(t, engine.calls)
}

func TestSpeakerWrapsEngineError(t *testing.T) {
	s := NewSpeaker(&stubEngine{name: "deepgram", err: errors.New("boom")}, &recordingPlayer{}, nil)
	path := filepath.Join(t.TempDir(), "x.wav")
	_, err := s.Synthesize(context.Background(), "hello", path)
	require.ErrorContains(t, err, "deepgram synthesize")
	require.NoFileExists(t, path)
}

func TestListenerCapturesAndCleansUp(t *testing.T) {
	rec := &stubRecorder{}
	stt := &stubRecognizer{text: "  my head hurts \n"}
	l := NewListener(rec, stt, nil)

	got, err := l.Capture(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, "my head hurts", got)
	require.Equal(t, 5*time.Second, rec.recorded)
	require.Equal(t, rec.path, stt.seen)
	require.NoFileExists(t, rec.path)
}

func TestListenerPropagatesFaults(t *testing.T) {
	l := NewListener(&stubRecorder{err: errors.New("no device")}, &stubRecognizer{}, nil)
	_, err := l.Capture(context.Background(), time.Second)
	require.ErrorContains(t, err, "record reply")

	l = NewListener(&stubRecorder{}, &stubRecognizer{err: errors.New("model missing")}, nil)
	_, err = l.Capture(context.Background(), time.Second)
	require.ErrorContains(t, err, "stub transcribe")
}

func TestMockEngineRendersSilence(t *testing.T) {
	pcm, rate, err := NewMockEngine().Render(context.Background(), "one two three")
	require.NoError(t, err)
	require.Equal(t, audio.DefaultSampleRate, rate)
	require.NotEmpty(t, pcm)
	require.Zero(t, len(pcm)%2)
	for _, b := range pcm {
		require.Zero(t, b)
	}
}

func TestScriptedTranscriberRepeatsLastReply(t *testing.T) {
	s := NewScriptedTranscriber("headache", "since yesterday")
	ctx := context.Background()
	for _, want := range []string{"headache", "since yesterday", "since yesterday"} {
		got, err := s.Capture(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	empty, err := NewScriptedTranscriber().Capture(ctx, time.Second)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSpeakable(t *testing.T) {
	cases := map[string]string{
		"**Sure.** Where does it hurt? 🙂":          "Sure. Where does it hurt?",
		"See [the guide](https://example.com) now": "See the guide now",
		"Try `code` here\n\nplease":                "Try here please",
		"Visit https://example.com/x for more":     "Visit for more",
		"How long have you had the fever?":         "How long have you had the fever?",
	}
	for in, want := range cases {
		require.Equal(t, want, Speakable(in), in)
	}
}

func TestPCMSampleRate(t *testing.T) {
	rate, err := pcmSampleRate("pcm_22050")
	require.NoError(t, err)
	require.Equal(t, 22050, rate)

	_, err = pcmSampleRate("mp3_44100_128")
	require.Error(t, err)
	_, err = pcmSampleRate("pcm_x")
	require.Error(t, err)
}

func TestWhisperThreads(t *testing.T) {
	require.Equal(t, 3, whisperThreads(3))
	auto := whisperThreads(0)
	require.GreaterOrEqual(t, auto, 2)
	require.LessOrEqual(t, auto, 8)
}

func TestElevenLabsEngineCollectsAudio(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotKey, gotPath string
	var sent []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 3; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			sent = append(sent, msg)
		}
		chunk := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
		_ = conn.WriteJSON(map[string]any{"audio": chunk})
		_ = conn.WriteJSON(map[string]any{"audio": chunk, "isFinal": true})
	}))
	defer srv.Close()

	e := NewElevenLabsEngine(ElevenLabsConfig{
		APIKey:    "secret",
		WSBaseURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		VoiceID:   "voice-1",
		Timeout:   5 * time.Second,
	})
	pcm, rate, err := e.Render(context.Background(), "hello there")
	require.NoError(t, err)
	require.Equal(t, 16000, rate)
	require.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4}, pcm)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "/v1/text-to-speech/voice-1/stream-input", gotPath)
	require.Len(t, sent, 3)
	require.Equal(t, "hello there ", sent[1]["text"])
	require.Equal(t, "", sent[2]["text"])
}

func TestElevenLabsEngineRequiresVoice(t *testing.T) {
	_, _, err := NewElevenLabsEngine(ElevenLabsConfig{APIKey: "k"}).Render(context.Background(), "hi")
	require.ErrorContains(t, err, "voice_id")
}

func TestDeepgramEngineRequiresKey(t *testing.T) {
	_, _, err := NewDeepgramEngine(DeepgramConfig{}).Render(context.Background(), "hi")
	require.ErrorContains(t, err, "API key")
}

func TestOpenAIRecognizerRequiresKey(t *testing.T) {
	_, err := NewOpenAIRecognizer(OpenAISTTConfig{})
	require.Error(t, err)
}
