package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/phantomx-ai/phantomx/internal/config"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/events"
	"github.com/phantomx-ai/phantomx/internal/logger"
	"github.com/phantomx-ai/phantomx/internal/nlp"
	"github.com/phantomx-ai/phantomx/internal/pipeline"
	"github.com/phantomx-ai/phantomx/internal/speech"
	"github.com/phantomx-ai/phantomx/internal/store"
	"github.com/phantomx-ai/phantomx/internal/telemetry"
	"github.com/phantomx-ai/phantomx/internal/version"
)

// app holds everything serve builds, so it can be torn down in order.
type app struct {
	pipeline  *pipeline.Pipeline
	store     store.Store
	emitter   *events.Emitter
	telemetry *telemetry.Provider
	model     *deepfake.Model
}

func (a *app) close(ctx context.Context, log *logger.Logger) {
	a.emitter.Close(ctx)
	a.telemetry.Shutdown(ctx)
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			log.WithError(err).Warn("close deepfake model")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
}

// buildApp wires every component from cfg. On error, whatever was already
// opened is closed before returning.
func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *app, err error) {
	a := &app{telemetry: telemetry.Noop()}
	defer func() {
		if err != nil {
			a.close(context.Background(), log)
		}
	}()

	if cfg.Telemetry.Enabled {
		tel, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:  true,
			Endpoint: cfg.Telemetry.Endpoint,
			Protocol: cfg.Telemetry.Protocol,
			Service:  "phantomx",
			Version:  version.Version,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		a.telemetry = tel
	}

	st, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = st

	transcriber, err := buildTranscriber(cfg.Speech, log)
	if err != nil {
		return nil, err
	}

	nlpClient, err := buildNLP(cfg.NLP, log)
	if err != nil {
		return nil, err
	}

	var scorer deepfake.Scorer
	if cfg.Deepfake.Enabled {
		model, err := deepfake.LoadModel(cfg.Deepfake.BundleDir)
		if err != nil {
			return nil, fmt.Errorf("load deepfake model: %w", err)
		}
		a.model = model
		extractor, err := deepfake.NewHTTPExtractor(deepfake.HTTPExtractorConfig{
			URL:     cfg.Deepfake.FeaturesURL,
			Timeout: cfg.Deepfake.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("deepfake features: %w", err)
		}
		scorer = deepfake.NewModelScorer(extractor, model)
		if cfg.Deepfake.WarmupOnBoot {
			if _, err := model.Predict(deepfake.Features{}); err != nil {
				log.WithError(err).Warn("deepfake warmup failed")
			}
		}
		log.Info("deepfake model loaded", logger.Fields("version", model.Version(), "model", model.ModelFile()))
	} else {
		log.Warn("deepfake detection disabled; deepfake signal will be degraded")
	}

	a.emitter = buildEmitter(cfg.Events, log)

	a.pipeline = pipeline.New(pipeline.Options{
		Transcriber:              transcriber,
		NLP:                      nlpClient,
		Scorer:                   scorer,
		Store:                    st,
		Emitter:                  a.emitter,
		Telemetry:                a.telemetry,
		Logger:                   log,
		IncludeTranscriptPreview: cfg.Events.TranscriptPreview,
	})
	return a, nil
}

func buildStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	if cfg.Backend != "redis" {
		return store.NewMemory(), nil
	}
	r := store.NewRedis(store.RedisOptions{
		Address:   cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeyPrefix: cfg.KeyPrefix,
	})
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return r, nil
}

func buildTranscriber(cfg config.SpeechConfig, log *logger.Logger) (speech.Transcriber, error) {
	switch cfg.Provider {
	case "google":
		g, err := speech.NewGoogle(speech.GoogleConfig{
			BaseURL:              cfg.BaseURL,
			APIKey:               config.APIKey(cfg.APIKeyEnv),
			Language:             cfg.Language,
			AlternativeLanguages: cfg.AlternativeLanguages,
			Timeout:              cfg.Timeout,
		})
		if err != nil {
			log.WithError(err).Warn("speech-to-text disabled", logger.Fields("api_key_env", cfg.APIKeyEnv))
			return nil, nil
		}
		return g, nil
	case "whisper":
		w := speech.NewWhisper(speech.WhisperConfig{
			URL:      cfg.WhisperURL,
			Model:    cfg.WhisperModel,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		})
		return w, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}

func buildNLP(cfg config.NLPConfig, log *logger.Logger) (nlp.Client, error) {
	switch cfg.Provider {
	case "google":
		g, err := nlp.NewGoogle(nlp.GoogleConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  config.APIKey(cfg.APIKeyEnv),
			Timeout: cfg.Timeout,
		})
		if err != nil {
			log.WithError(err).Warn("nlp disabled; intent uses keywords only", logger.Fields("api_key_env", cfg.APIKeyEnv))
			return nil, nil
		}
		return g, nil
	case "none":
		return nil, nil
	default:
		return nil, errors.New("unknown nlp provider " + cfg.Provider)
	}
}

func buildEmitter(cfg config.EventsConfig, log *logger.Logger) *events.Emitter {
	if !cfg.Enabled {
		return nil
	}

	var sinks []events.Sink
	if cfg.FilePath != "" {
		fs, err := events.NewFileSink(cfg.FilePath)
		if err != nil {
			log.WithError(err).Warn("event file sink disabled", logger.Fields("path", cfg.FilePath))
		} else {
			sinks = append(sinks, fs)
		}
	}
	if cfg.WebhookURL != "" {
		ws, err := events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookHeaders, cfg.WebhookTimeout)
		if err != nil {
			log.WithError(err).Warn("event webhook sink disabled")
		} else {
			sinks = append(sinks, ws)
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	return events.NewEmitter(events.EmitterConfig{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
	}, sinks, log)
}
