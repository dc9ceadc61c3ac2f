package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitwarden/sm-action/api"
	"github.com/bitwarden/sm-action/cliconfig"
	"github.com/bitwarden/sm-action/internal/secrets"
	"github.com/bitwarden/sm-action/logger"
)

const (
	RegionUS = "us"
	RegionEU = "eu"

	euAPIURL      = "https://api.bitwarden.eu"
	euIdentityURL = "https://identity.bitwarden.eu"
)

// Config holds the action inputs.
type Config struct {
	AccessToken   string   `input:"access_token" validate:"required"`
	Secrets       []string `input:"secrets" normalize:"lines" validate:"required"`
	CloudRegion   string   `input:"cloud_region" normalize:"trim|lower"`
	BaseURL       string   `input:"base_url" normalize:"trim" validate:"url"`
	APIURL        string   `input:"api_url" normalize:"trim" validate:"url"`
	IdentityURL   string   `input:"identity_url" normalize:"trim" validate:"url"`
	SetEnv        bool     `input:"set_env" default:"true"`
	ParseJSON     bool     `input:"parse_json"`
	ParseYAML     bool     `input:"parse_yaml"`
	TransformKeys bool     `input:"transform_keys" default:"true"`
}

// LoadConfig reads and validates the inputs. Every error wraps
// ErrInvalidConfig.
func LoadConfig(inputs cliconfig.InputSource) (*Config, error) {
	cfg := &Config{}
	if err := (&cliconfig.Loader{Inputs: inputs, Config: cfg}).Load(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.ParseJSON && cfg.ParseYAML {
		return nil, fmt.Errorf("%w: parse_yaml and parse_json cannot both be set to true", ErrInvalidConfig)
	}
	return cfg, nil
}

// Structure returns how secret values should be expanded.
func (c *Config) Structure() secrets.Structure {
	switch {
	case c.ParseJSON:
		return secrets.StructureJSON
	case c.ParseYAML:
		return secrets.StructureYAML
	default:
		return secrets.StructureNone
	}
}

// Endpoints are the Bitwarden services a run talks to.
type Endpoints struct {
	APIURL      string
	IdentityURL string
}

var errOnlyOneURL = errors.New("both api_url and identity_url must be provided if one is specified")

// InferURLs picks the endpoints. A cloud region wins over any URLs; then
// explicit API and identity URLs; then the base URL; and finally the US
// cloud. A region other than us or eu means a self-hosted server, which
// needs URLs.
func InferURLs(l logger.Logger, cfg *Config) (Endpoints, error) {
	region := strings.ToLower(strings.TrimSpace(cfg.CloudRegion))

	switch region {
	case RegionEU:
		l.Debug("Using EU cloud region URLs")
		return Endpoints{APIURL: euAPIURL, IdentityURL: euIdentityURL}, nil
	case RegionUS:
		l.Debug("Using US cloud region URLs")
		return Endpoints{APIURL: api.DefaultAPIURL, IdentityURL: api.DefaultIdentityURL}, nil
	}

	switch {
	case cfg.APIURL != "" && cfg.IdentityURL != "":
		if cfg.BaseURL != "" {
			l.Warn("Ignoring base_url because api_url and identity_url are set")
		}
		l.Debug("Using provided API and Identity URLs")
		return Endpoints{APIURL: cfg.APIURL, IdentityURL: cfg.IdentityURL}, nil

	case cfg.APIURL != "" || cfg.IdentityURL != "":
		return Endpoints{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errOnlyOneURL)

	case cfg.BaseURL != "":
		l.Debug("Using provided Base URL")
		base := strings.TrimRight(cfg.BaseURL, "/")
		return Endpoints{APIURL: base + "/api", IdentityURL: base + "/identity"}, nil

	case region == "":
		l.Debug("Using default URLs")
		return Endpoints{APIURL: api.DefaultAPIURL, IdentityURL: api.DefaultIdentityURL}, nil

	default:
		return Endpoints{}, fmt.Errorf("%w: cloud region %q is not %q or %q, and no base_url or api_url and identity_url were provided",
			ErrInvalidConfig, cfg.CloudRegion, RegionUS, RegionEU)
	}
}
