package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the loaded config for required fields and consistent values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if err := validateAuthConfig(cfg.Auth); err != nil {
		return err
	}
	if err := validateSpeechConfig(cfg.Speech); err != nil {
		return err
	}
	if err := validateDeepfakeConfig(cfg.Deepfake); err != nil {
		return err
	}
	if cfg.Storage.Backend == "redis" && strings.TrimSpace(cfg.Storage.RedisAddr) == "" {
		return errors.New("storage.redis_addr must be set when storage.backend is redis")
	}
	if cfg.Events.Enabled && cfg.Events.FilePath == "" && cfg.Events.WebhookURL == "" {
		return errors.New("events enabled but neither events.file_path nor events.webhook_url is set")
	}
	if cfg.Telemetry.Enabled && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return errors.New("telemetry.endpoint must be set when telemetry is enabled")
	}
	return nil
}

func validateAuthConfig(a AuthConfig) error {
	seen := make(map[string]string)
	ids := make(map[string]bool)
	for _, c := range a.Clients {
		if ids[c.ID] {
			return fmt.Errorf("auth client %q defined twice", c.ID)
		}
		ids[c.ID] = true
		for _, key := range c.APIKeys {
			if owner, ok := seen[key]; ok {
				return fmt.Errorf("api key assigned to both %q and %q", owner, c.ID)
			}
			seen[key] = c.ID
		}
	}
	return nil
}

func validateSpeechConfig(s SpeechConfig) error {
	switch s.Provider {
	case "google":
		if strings.TrimSpace(s.APIKeyEnv) == "" {
			return errors.New("speech.api_key_env must be set for the google provider")
		}
	case "whisper":
		if strings.TrimSpace(s.WhisperURL) == "" {
			return errors.New("speech.whisper_url must be set for the whisper provider")
		}
	}
	return nil
}

func validateDeepfakeConfig(d DeepfakeConfig) error {
	if !d.Enabled {
		return nil
	}
	if strings.TrimSpace(d.BundleDir) == "" {
		return errors.New("deepfake.bundle_dir must be set when deepfake is enabled")
	}
	if strings.TrimSpace(d.FeaturesURL) == "" {
		return errors.New("deepfake.features_url must be set when deepfake is enabled")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a valid url"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
}
