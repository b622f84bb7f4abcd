package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ent0n29/responder/internal/audio"
	"github.com/ent0n29/responder/internal/config"
	"github.com/ent0n29/responder/internal/dialogue"
	"github.com/ent0n29/responder/internal/events"
	"github.com/ent0n29/responder/internal/httpapi"
	"github.com/ent0n29/responder/internal/identity"
	"github.com/ent0n29/responder/internal/memory"
	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/records"
	"github.com/ent0n29/responder/internal/responder"
	"github.com/ent0n29/responder/internal/session"
)

// Providers names the backend chosen for each collaborator.
type Providers struct {
	Identity string
	Voice    string
	STT      string
	Dialogue string
}

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.Manager
	Controller *responder.Controller
	Kiosk      *Kiosk
	Hub        *events.Hub
	Records    records.Store
	Metrics    *observability.Metrics
	Providers  Providers

	// Cleanup releases external resources (DB pools, Redis) on shutdown.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BuildResult, error) {
		if cerr := cleanup(); cerr != nil {
			log.Warn().Err(cerr).Msg("cleanup after failed build")
		}
		return nil, err
	}

	scratch, err := audio.NewScratch(cfg.AudioDir)
	if err != nil {
		return nil, fmt.Errorf("audio scratch dir: %w", err)
	}

	ident, identName, err := resolveIdentity(cfg)
	if err != nil {
		return nil, err
	}
	vs, err := resolveVoice(cfg, metrics)
	if err != nil {
		return nil, err
	}
	stt, err := resolveSTT(cfg, metrics)
	if err != nil {
		return nil, err
	}
	model, dialogueName, err := resolveDialogue(cfg, metrics)
	if err != nil {
		return nil, err
	}

	recordStore, err := records.NewStore(ctx, records.Options{
		Backend:       cfg.RecordStore,
		DatabaseURL:   cfg.DatabaseURL,
		Table:         cfg.RecordTable,
		NotifyChannel: cfg.RecordNotifyChannel,
		SupabaseURL:   cfg.SupabaseURL,
		SupabaseKey:   cfg.SupabaseKey,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("record store init failed: %w", err)
	}
	closers = append(closers, recordStore.Close)

	audit, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(fmt.Errorf("audit transcript store init failed: %w", err))
	}
	closers = append(closers, audit.Close)

	hub := events.NewHub(64)
	publishers := events.Multi{hub}
	if cfg.RedisURL != "" {
		rp, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.EventsStream)
		if err != nil {
			return fail(fmt.Errorf("redis events init failed: %w", err))
		}
		closers = append(closers, rp.Close)
		publishers = append(publishers, rp)
	}

	sessions := session.NewManager(cfg.SessionTTL)
	sessions.SetExpireHook(func(_ responder.Session) {
		metrics.SessionEvent("expired")
	})

	controller, err := responder.New(responder.Deps{
		Identity: ident,
		Ears:     stt.ears,
		Voice:    vs.speaker,
		Model:    model,
		Records:  recordStore,
		Scratch:  scratch,
		Observer: &kioskObserver{sessions: sessions, publisher: publishers, audit: audit},
		Metrics:  metrics,
	}, responder.SettingsFromConfig(cfg))
	if err != nil {
		return fail(err)
	}

	kiosk := NewKiosk(ctx, controller, sessions)
	api := httpapi.New(cfg, sessions, kiosk, hub, recordStore, audit, metrics)

	providers := Providers{Identity: identName, Voice: vs.detail, STT: stt.detail, Dialogue: dialogueName}
	log.Info().
		Str("identity", providers.Identity).
		Str("voice", providers.Voice).
		Str("stt", providers.STT).
		Str("dialogue", providers.Dialogue).
		Int("budget", cfg.QuestionBudget).
		Msg("kiosk collaborators resolved")

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		Controller: controller,
		Kiosk:      kiosk,
		Hub:        hub,
		Records:    recordStore,
		Metrics:    metrics,
		Providers:  providers,
		Cleanup:    cleanup,
	}, nil
}

func resolveIdentity(cfg config.Config) (responder.Identifier, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.IdentityProvider))
	switch mode {
	case "", "http":
		if cfg.IdentityURL == "" {
			log.Warn().Msg("IDENTITY_URL not set, every patient will be Unknown")
			return identity.Static{Label: identity.Unknown}, "static (no IDENTITY_URL)", nil
		}
		sampler := identity.NewSampler(
			identity.CommandCamera{Command: cfg.CameraCommand},
			identity.NewHTTPMatcher(cfg.IdentityURL),
			cfg.IdentityWindow,
			cfg.IdentityFrameInterval,
		)
		return sampler, "camera + " + cfg.IdentityURL, nil
	case "static":
		return identity.Static{Label: cfg.IdentityStaticLabel}, "static", nil
	case "mock":
		return identity.Static{Label: "Test Patient"}, "mock", nil
	default:
		return nil, "", fmt.Errorf("invalid IDENTITY_PROVIDER: %q (expected http|static|mock)", cfg.IdentityProvider)
	}
}

// resolveDialogue uses the OpenAI-compatible endpoint when a key is set and
// falls back to a scripted intake otherwise.
func resolveDialogue(cfg config.Config, metrics *observability.Metrics) (responder.DialogueModel, string, error) {
	if cfg.DialogueAPIKey == "" {
		log.Warn().Msg("DIALOGUE_API_KEY not set, using scripted questions")
		return dialogue.NewScripted(cfg.Prompts.Farewell,
			"How long have you had these symptoms?",
			"On a scale from one to ten, how bad is it right now?",
			"Are you taking any medication or do you have allergies?",
		), "scripted", nil
	}
	client, err := dialogue.NewClient(dialogue.Options{
		APIKey:        cfg.DialogueAPIKey,
		BaseURL:       cfg.DialogueBaseURL,
		Model:         cfg.DialogueModel,
		Temperature:   cfg.DialogueTemperature,
		Timeout:       cfg.DialogueTimeout,
		SystemPrompt:  cfg.Prompts.System,
		SummaryPrompt: cfg.Prompts.Summary,
	}, metrics)
	if err != nil {
		return nil, "", fmt.Errorf("dialogue model init failed: %w", err)
	}
	return client, cfg.DialogueModel + " @ " + cfg.DialogueBaseURL, nil
}
