package app

import (
	"fmt"
	"strings"

	"github.com/ent0n29/responder/internal/config"
	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/responder"
	"github.com/ent0n29/responder/internal/voice"
)

type voiceSetup struct {
	speaker  *voice.Speaker
	provider string
	detail   string
}

// resolveVoice picks the TTS engine. In auto mode Deepgram is primary and
// ElevenLabs its fallback when both keys are present.
func resolveVoice(cfg config.Config, metrics *observability.Metrics) (voiceSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))
	if mode == "" {
		mode = "auto"
	}

	var player voice.Player = voice.CommandPlayer{Command: cfg.AudioPlayCommand}
	deepgram := func() voice.Engine {
		if cfg.DeepgramAPIKey == "" {
			return nil
		}
		return voice.NewDeepgramEngine(voice.DeepgramConfig{
			APIKey:     cfg.DeepgramAPIKey,
			Model:      cfg.DeepgramTTSModel,
			SampleRate: cfg.AudioSampleRate,
		})
	}
	elevenlabs := func() voice.Engine {
		if cfg.ElevenLabsAPIKey == "" {
			return nil
		}
		return voice.NewElevenLabsEngine(voice.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			WSBaseURL:    cfg.ElevenLabsWSBaseURL,
			VoiceID:      cfg.ElevenLabsTTSVoice,
			ModelID:      cfg.ElevenLabsTTSModel,
			OutputFormat: cfg.ElevenLabsTTSOutputFormat,
		})
	}
	setup := func(engine voice.Engine, p voice.Player, provider, detail string) voiceSetup {
		return voiceSetup{speaker: voice.NewSpeaker(engine, p, metrics), provider: provider, detail: detail}
	}

	switch mode {
	case "deepgram":
		if e := deepgram(); e != nil {
			return setup(e, player, "deepgram", "deepgram aura"), nil
		}
		return voiceSetup{}, fmt.Errorf("VOICE_PROVIDER=deepgram but DEEPGRAM_API_KEY is not set")
	case "elevenlabs":
		if e := elevenlabs(); e != nil {
			return setup(e, player, "elevenlabs", "elevenlabs stream-input"), nil
		}
		return voiceSetup{}, fmt.Errorf("VOICE_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
	case "mock":
		return setup(voice.NewMockEngine(), voice.NullPlayer{}, "mock", "mock (silent)"), nil
	case "auto":
		dg, el := deepgram(), elevenlabs()
		switch {
		case dg != nil && el != nil:
			return setup(voice.NewFailoverEngine(dg, el), player, "deepgram", "deepgram aura (automatic elevenlabs fallback)"), nil
		case dg != nil:
			return setup(dg, player, "deepgram", "deepgram aura"), nil
		case el != nil:
			return setup(el, player, "elevenlabs", "elevenlabs stream-input"), nil
		}
		return setup(voice.NewMockEngine(), voice.NullPlayer{}, "mock", "mock (no deepgram or elevenlabs key)"), nil
	default:
		return voiceSetup{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected auto|deepgram|elevenlabs|mock)", cfg.VoiceProvider)
	}
}

type sttSetup struct {
	ears     responder.Transcriber
	provider string
	detail   string
}

// mockReplies drive STT_PROVIDER=mock through a short plausible intake.
var mockReplies = []string{
	"I have had a headache since yesterday",
	"It gets worse when I stand up and I feel a bit dizzy",
	"No, I am not taking any medication",
}

// resolveSTT picks the transcription backend. Auto prefers the hosted
// Whisper API, then a local whisper.cpp install.
func resolveSTT(cfg config.Config, metrics *observability.Metrics) (sttSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.STTProvider))
	if mode == "" {
		mode = "auto"
	}
	recorder := voice.CommandRecorder{Command: cfg.AudioRecordCommand, SampleRate: cfg.AudioSampleRate}
	listen := func(r voice.Recognizer, provider, detail string) sttSetup {
		return sttSetup{ears: voice.NewListener(recorder, r, metrics), provider: provider, detail: detail}
	}
	openai := func() (voice.Recognizer, error) {
		return voice.NewOpenAIRecognizer(voice.OpenAISTTConfig{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAISTTModel,
			Language: cfg.LocalWhisperLanguage,
		})
	}
	local := func() (voice.Recognizer, error) {
		return voice.NewWhisperCPP(voice.WhisperCPPConfig{
			CLI:       cfg.LocalWhisperCLI,
			ModelPath: cfg.LocalWhisperModelPath,
			Language:  cfg.LocalWhisperLanguage,
			Threads:   cfg.LocalWhisperThreads,
		})
	}

	switch mode {
	case "openai":
		r, err := openai()
		if err != nil {
			return sttSetup{}, err
		}
		return listen(r, "openai", "openai whisper"), nil
	case "local":
		r, err := local()
		if err != nil {
			return sttSetup{}, fmt.Errorf("local transcription init failed: %w", err)
		}
		return listen(r, "local", "whisper.cpp"), nil
	case "mock":
		return sttSetup{ears: voice.NewScriptedTranscriber(mockReplies...), provider: "mock", detail: "scripted replies"}, nil
	case "auto":
		if r, err := openai(); err == nil {
			return listen(r, "openai", "openai whisper"), nil
		}
		if r, err := local(); err == nil {
			return listen(r, "local", "whisper.cpp"), nil
		}
		return sttSetup{ears: voice.NewScriptedTranscriber(mockReplies...), provider: "mock", detail: "scripted replies (no OPENAI_API_KEY and whisper.cpp unavailable)"}, nil
	default:
		return sttSetup{}, fmt.Errorf("invalid STT_PROVIDER: %q (expected auto|openai|local|mock)", cfg.STTProvider)
	}
}
