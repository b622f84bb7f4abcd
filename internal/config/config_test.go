package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 7, cfg.QuestionBudget)
	require.Equal(t, 5*time.Second, cfg.CaptureDuration)
	require.Equal(t, 5, cfg.MemoryWindow)
	require.Equal(t, 5*time.Second, cfg.IdentityWindow)
	require.Equal(t, "llama-3.3-70b-versatile", cfg.DialogueModel)
	require.InDelta(t, 0.3, cfg.DialogueTemperature, 1e-9)
	require.Equal(t, "aura-asteria-en", cfg.DeepgramTTSModel)
	require.Equal(t, "auto", cfg.RecordStore)
	require.Equal(t, DefaultPrompts(), cfg.Prompts)
}

func TestLoadRejectsZeroBudget(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SESSION_QUESTION_BUDGET", "0")

	_, err := Load()
	require.ErrorContains(t, err, "SESSION_QUESTION_BUDGET")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SESSION_CAPTURE_DURATION", "five seconds")

	_, err := Load()
	require.ErrorContains(t, err, "SESSION_CAPTURE_DURATION parse error")
}

func TestLoadRejectsTemperatureOutOfRange(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DIALOGUE_TEMPERATURE", "2.5")

	_, err := Load()
	require.ErrorContains(t, err, "DIALOGUE_TEMPERATURE")
}

func TestLoadReadsOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SESSION_QUESTION_BUDGET", "3")
	t.Setenv("SESSION_MEMORY_WINDOW", "2")
	t.Setenv("RECORD_STORE", "sqlite")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.QuestionBudget)
	require.Equal(t, 2, cfg.MemoryWindow)
	require.Equal(t, "sqlite", cfg.RecordStore)
	require.True(t, cfg.AllowAnyOrigin)
}

func TestLoadPromptsMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("greeting: \"Hello %s, what brings you in?\"\nquit_marker: stop\n"), 0o600))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	require.Equal(t, "Hello %s, what brings you in?", p.Greeting)
	require.Equal(t, "stop", p.QuitMarker)
	require.Equal(t, DefaultPrompts().Farewell, p.Farewell)
}

func TestLoadPromptsRejectsFarewellWithoutClosingPhrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("farewell: Goodbye.\n"), 0o600))

	_, err := LoadPrompts(path)
	require.ErrorContains(t, err, "closing phrase")
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	// Keep a developer's .env out of the test.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"SESSION_QUESTION_BUDGET",
		"SESSION_CAPTURE_DURATION",
		"SESSION_MEMORY_WINDOW",
		"SESSION_FINALIZE_TIMEOUT",
		"SESSION_TTL",
		"IDENTITY_PROVIDER",
		"IDENTITY_URL",
		"IDENTITY_STATIC_LABEL",
		"IDENTITY_WINDOW",
		"IDENTITY_FRAME_INTERVAL",
		"CAMERA_COMMAND",
		"AUDIO_DIR",
		"AUDIO_RECORD_COMMAND",
		"AUDIO_PLAY_COMMAND",
		"AUDIO_SAMPLE_RATE",
		"VOICE_PROVIDER",
		"DEEPGRAM_API_KEY",
		"DEEPGRAM_TTS_MODEL",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_WS_BASE_URL",
		"ELEVENLABS_TTS_VOICE_ID",
		"ELEVENLABS_TTS_MODEL_ID",
		"ELEVENLABS_TTS_OUTPUT_FORMAT",
		"STT_PROVIDER",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_STT_MODEL",
		"LOCAL_WHISPER_CLI",
		"LOCAL_WHISPER_MODEL_PATH",
		"LOCAL_WHISPER_LANGUAGE",
		"LOCAL_WHISPER_THREADS",
		"DIALOGUE_API_KEY",
		"DIALOGUE_BASE_URL",
		"DIALOGUE_MODEL",
		"DIALOGUE_TEMPERATURE",
		"DIALOGUE_TIMEOUT",
		"RECORD_STORE",
		"DATABASE_URL",
		"RECORD_TABLE",
		"RECORD_NOTIFY_CHANNEL",
		"SUPABASE_URL",
		"SUPABASE_SERVICE_ROLE_KEY",
		"SQLITE_PATH",
		"REDIS_URL",
		"EVENTS_STREAM",
		"PROMPTS_FILE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
