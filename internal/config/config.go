package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config contains all runtime settings for the responder kiosk.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogFormat string

	QuestionBudget  int
	CaptureDuration time.Duration
	MemoryWindow    int
	FinalizeTimeout time.Duration
	SessionTTL      time.Duration

	IdentityProvider      string
	IdentityURL           string
	IdentityStaticLabel   string
	IdentityWindow        time.Duration
	IdentityFrameInterval time.Duration
	CameraCommand         string

	AudioDir           string
	AudioRecordCommand string
	AudioPlayCommand   string
	AudioSampleRate    int

	VoiceProvider string

	DeepgramAPIKey   string
	DeepgramTTSModel string

	ElevenLabsAPIKey          string
	ElevenLabsWSBaseURL       string
	ElevenLabsTTSVoice        string
	ElevenLabsTTSModel        string
	ElevenLabsTTSOutputFormat string

	STTProvider    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAISTTModel string

	LocalWhisperCLI       string
	LocalWhisperModelPath string
	LocalWhisperLanguage  string
	LocalWhisperThreads   int

	DialogueAPIKey      string
	DialogueBaseURL     string
	DialogueModel       string
	DialogueTemperature float64
	DialogueTimeout     time.Duration

	RecordStore         string
	DatabaseURL         string
	RecordTable         string
	RecordNotifyChannel string
	SupabaseURL         string
	SupabaseKey         string
	SQLitePath          string

	RedisURL     string
	EventsStream string

	PromptsFile string
	Prompts     Prompts
}

// Load reads an optional .env file and environment variables and applies safe defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "responder"),
		ShutdownTimeout:  15 * time.Second,
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "console"),

		QuestionBudget:  7,
		CaptureDuration: 5 * time.Second,
		MemoryWindow:    5,
		FinalizeTimeout: 30 * time.Second,
		SessionTTL:      30 * time.Minute,

		IdentityProvider:      envOrDefault("IDENTITY_PROVIDER", "http"),
		IdentityURL:           stringsTrimSpace("IDENTITY_URL"),
		IdentityStaticLabel:   envOrDefault("IDENTITY_STATIC_LABEL", "Unknown"),
		IdentityWindow:        5 * time.Second,
		IdentityFrameInterval: 500 * time.Millisecond,
		// One JPEG frame on stdout per invocation.
		CameraCommand: envOrDefault("CAMERA_COMMAND", "ffmpeg -loglevel error -f v4l2 -i /dev/video0 -frames:v 1 -f image2pipe -vcodec mjpeg -"),

		AudioDir:           envOrDefault("AUDIO_DIR", "audio"),
		AudioRecordCommand: envOrDefault("AUDIO_RECORD_COMMAND", "arecord"),
		AudioPlayCommand:   envOrDefault("AUDIO_PLAY_COMMAND", "aplay"),
		AudioSampleRate:    16000,

		VoiceProvider:    envOrDefault("VOICE_PROVIDER", "auto"),
		DeepgramAPIKey:   stringsTrimSpace("DEEPGRAM_API_KEY"),
		DeepgramTTSModel: envOrDefault("DEEPGRAM_TTS_MODEL", "aura-asteria-en"),

		ElevenLabsAPIKey:    stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsWSBaseURL: envOrDefault("ELEVENLABS_WS_BASE_URL", "wss://api.elevenlabs.io"),
		// Calm premade voice suited to a clinical waiting room.
		ElevenLabsTTSVoice:        envOrDefault("ELEVENLABS_TTS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		ElevenLabsTTSModel:        envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_flash_v2_5"),
		ElevenLabsTTSOutputFormat: envOrDefault("ELEVENLABS_TTS_OUTPUT_FORMAT", "pcm_16000"),

		STTProvider:    envOrDefault("STT_PROVIDER", "auto"),
		OpenAIAPIKey:   stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:  stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAISTTModel: envOrDefault("OPENAI_STT_MODEL", "whisper-1"),

		LocalWhisperCLI:       envOrDefault("LOCAL_WHISPER_CLI", "whisper-cli"),
		LocalWhisperModelPath: envOrDefault("LOCAL_WHISPER_MODEL_PATH", ".models/whisper/ggml-base.en.bin"),
		LocalWhisperLanguage:  envOrDefault("LOCAL_WHISPER_LANGUAGE", "en"),
		// 0 means "auto" (picked based on CPU count).
		LocalWhisperThreads: 0,

		DialogueAPIKey:      stringsTrimSpace("DIALOGUE_API_KEY"),
		DialogueBaseURL:     envOrDefault("DIALOGUE_BASE_URL", "https://api.groq.com/openai/v1"),
		DialogueModel:       envOrDefault("DIALOGUE_MODEL", "llama-3.3-70b-versatile"),
		DialogueTemperature: 0.3,
		DialogueTimeout:     30 * time.Second,

		RecordStore:         envOrDefault("RECORD_STORE", "auto"),
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		RecordTable:         envOrDefault("RECORD_TABLE", "patient_records"),
		RecordNotifyChannel: stringsTrimSpace("RECORD_NOTIFY_CHANNEL"),
		SupabaseURL:         stringsTrimSpace("SUPABASE_URL"),
		SupabaseKey:         stringsTrimSpace("SUPABASE_SERVICE_ROLE_KEY"),
		SQLitePath:          envOrDefault("SQLITE_PATH", "responder.db"),

		RedisURL:     stringsTrimSpace("REDIS_URL"),
		EventsStream: envOrDefault("EVENTS_STREAM", "responder.events"),

		PromptsFile: stringsTrimSpace("PROMPTS_FILE"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.QuestionBudget, err = intFromEnv("SESSION_QUESTION_BUDGET", cfg.QuestionBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureDuration, err = durationFromEnv("SESSION_CAPTURE_DURATION", cfg.CaptureDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryWindow, err = intFromEnv("SESSION_MEMORY_WINDOW", cfg.MemoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.FinalizeTimeout, err = durationFromEnv("SESSION_FINALIZE_TIMEOUT", cfg.FinalizeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.IdentityWindow, err = durationFromEnv("IDENTITY_WINDOW", cfg.IdentityWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.IdentityFrameInterval, err = durationFromEnv("IDENTITY_FRAME_INTERVAL", cfg.IdentityFrameInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AudioSampleRate, err = intFromEnv("AUDIO_SAMPLE_RATE", cfg.AudioSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.LocalWhisperThreads, err = intFromEnv("LOCAL_WHISPER_THREADS", cfg.LocalWhisperThreads)
	if err != nil {
		return Config{}, err
	}
	cfg.DialogueTemperature, err = floatFromEnv("DIALOGUE_TEMPERATURE", cfg.DialogueTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.DialogueTimeout, err = durationFromEnv("DIALOGUE_TIMEOUT", cfg.DialogueTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.QuestionBudget < 1 {
		return Config{}, fmt.Errorf("SESSION_QUESTION_BUDGET must be at least 1")
	}
	if cfg.MemoryWindow < 1 {
		return Config{}, fmt.Errorf("SESSION_MEMORY_WINDOW must be at least 1")
	}
	if cfg.CaptureDuration < time.Second {
		return Config{}, fmt.Errorf("SESSION_CAPTURE_DURATION must be at least 1s")
	}
	if cfg.IdentityWindow < time.Second {
		return Config{}, fmt.Errorf("IDENTITY_WINDOW must be at least 1s")
	}
	if cfg.IdentityFrameInterval <= 0 {
		return Config{}, fmt.Errorf("IDENTITY_FRAME_INTERVAL must be positive")
	}
	if cfg.AudioSampleRate <= 0 {
		return Config{}, fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
	}
	if cfg.LocalWhisperThreads < 0 {
		return Config{}, fmt.Errorf("LOCAL_WHISPER_THREADS must be >= 0")
	}
	if cfg.DialogueTemperature < 0 || cfg.DialogueTemperature > 2 {
		return Config{}, fmt.Errorf("DIALOGUE_TEMPERATURE must be within [0, 2]")
	}

	cfg.Prompts, err = LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
