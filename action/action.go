// Package action runs the secrets step: it parses the requested secrets,
// logs in to Bitwarden, fetches them, and publishes each one to the job.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitwarden/sm-action/api"
	"github.com/bitwarden/sm-action/ci"
	"github.com/bitwarden/sm-action/internal/secrets"
	"github.com/bitwarden/sm-action/logger"
	"github.com/bitwarden/sm-action/tracetools"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAuthentication = errors.New("authentication with Bitwarden failed")
	ErrRetrieval      = errors.New("secrets could not be retrieved")
)

// Hint returns the sentence shown to workflow authors for err, or "" when
// the error message speaks for itself.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "Authentication with Bitwarden failed."
	case errors.Is(err, ErrRetrieval):
		return "The secrets provided could not be found. Please check the machine account has access to the secret UUIDs provided."
	default:
		return ""
	}
}

// Client is the Bitwarden client a run needs.
type Client interface {
	AccessTokenLogin(ctx context.Context, accessToken string) (*api.Response, error)
	secrets.APIClient
}

// Run publishes the secrets cfg asks for. Requests are parsed before any
// network call, so a malformed secrets input never reaches Bitwarden.
func Run(ctx context.Context, l logger.Logger, c ci.CI, cfg *Config, client Client) error {
	l.Info("Parsing secrets input...")
	requests, err := secrets.ParseRequests(l, cfg.Secrets)
	if err != nil {
		return err
	}
	// Structured secrets are published under their own keys.
	if cfg.Structure() == secrets.StructureNone {
		if err := requests.CheckNames(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	l.Info("Authenticating with Bitwarden...")
	if err := login(ctx, client, cfg.AccessToken); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	l.Info("Setting secrets...")
	manager := secrets.NewManager(l, client, secrets.WithStructure(cfg.Structure(), cfg.TransformKeys))
	if err := fetchAndProcess(ctx, manager, requests, secrets.Pipeline(c, cfg.SetEnv)); err != nil {
		if errors.Is(err, secrets.ErrFetch) || errors.Is(err, secrets.ErrNoSecrets) {
			return fmt.Errorf("%w: %w", ErrRetrieval, err)
		}
		return err
	}

	l.Info("Completed setting secrets")
	return nil
}

func login(ctx context.Context, client Client, accessToken string) (err error) {
	ctx, span := tracetools.StartSpan(ctx, "bitwarden.login")
	defer func() { tracetools.FinishWithError(span, err) }()

	_, err = client.AccessTokenLogin(ctx, accessToken)
	return err
}

func fetchAndProcess(ctx context.Context, m *secrets.Manager, requests secrets.RequestMap, processors []secrets.Processor) (err error) {
	ctx, span := tracetools.StartSpan(ctx, "bitwarden.secrets.get",
		attribute.Int("secrets.requested", len(requests)),
	)
	defer func() { tracetools.FinishWithError(span, err) }()

	return m.FetchAndProcess(ctx, requests, processors)
}
