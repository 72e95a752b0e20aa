package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/phantomx-ai/phantomx/internal/config"
)

// Client is the runtime identity behind an API key.
type Client struct {
	ID string
}

// Auth holds mappings from API keys to clients.
type Auth struct {
	apiKeyToClient map[string]Client
}

// NewFromConfig builds an Auth instance from the loaded config.
func NewFromConfig(cfg config.AuthConfig) (*Auth, error) {
	m := make(map[string]Client)

	for _, c := range cfg.Clients {
		if c.ID == "" {
			return nil, fmt.Errorf("client with empty id in config")
		}
		client := Client{ID: c.ID}
		for _, key := range c.APIKeys {
			if key == "" {
				continue
			}
			if _, exists := m[key]; exists {
				return nil, fmt.Errorf("api key for client %q is assigned to multiple clients", c.ID)
			}
			m[key] = client
		}
	}

	return &Auth{
		apiKeyToClient: m,
	}, nil
}

// Enabled reports whether any key is configured.
func (a *Auth) Enabled() bool {
	return a != nil && len(a.apiKeyToClient) > 0
}

// Lookup returns the client for a given API key, if any.
func (a *Auth) Lookup(apiKey string) (Client, bool) {
	if a == nil || apiKey == "" {
		return Client{}, false
	}
	for key, c := range a.apiKeyToClient {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return c, true
		}
	}
	return Client{}, false
}
