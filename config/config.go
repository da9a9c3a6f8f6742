package config

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the client needs to reach a ComfyUI server. It is
// built once at process start and handed to the client constructor; nothing
// deeper in the call tree reads the environment.
type Config struct {
	// ServerAddress must include the protocol, e.g. https://comfy.local:8188
	ServerAddress string `envconfig:"COMFYUI_SERVER_ADDRESS" default:"http://127.0.0.1:8188"`
	APIKey        string `envconfig:"COMFYUI_API_KEY"`
	SSLVerify     bool   `envconfig:"COMFYUI_SSL_VERIFY" default:"false"`
	// Prompt is an optional default edit prompt, overridable per run.
	Prompt string `envconfig:"COMFYUI_PROMPT"`
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the server address is a usable http(s) URL.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerAddress)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.ServerAddress, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server address %q must include protocol (http:// or https://)", c.ServerAddress)
	}
	if u.Host == "" {
		return fmt.Errorf("server address %q has no host", c.ServerAddress)
	}
	return nil
}
