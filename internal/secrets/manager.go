package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitwarden/sm-action/api"
	"github.com/bitwarden/sm-action/logger"
	"github.com/google/uuid"
)

var (
	// ErrFetch wraps any failure of the batched retrieval call.
	ErrFetch = errors.New("fetching secrets failed")

	// ErrNoSecrets is returned when the retrieval succeeds but none of the
	// requested secrets are visible to the machine account.
	ErrNoSecrets = errors.New("none of the requested secrets were returned")
)

// APIClient is the part of api.Client the manager needs.
type APIClient interface {
	GetSecretsByIDs(ctx context.Context, ids []uuid.UUID) ([]api.Secret, *api.Response, error)
}

// Manager fetches requested secrets and hands each one to its processors.
type Manager struct {
	logger        logger.Logger
	client        APIClient
	structure     Structure
	transformKeys bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStructure makes the manager expand each secret value into one secret
// per top-level key before processing. The keys become the secret names,
// upper-cased when transformKeys is set.
func WithStructure(s Structure, transformKeys bool) ManagerOption {
	return func(m *Manager) {
		m.structure = s
		m.transformKeys = transformKeys
	}
}

// NewManager creates a new Manager with the provided API client.
func NewManager(l logger.Logger, client APIClient, opts ...ManagerOption) *Manager {
	m := &Manager{logger: l, client: client}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FetchAndProcess retrieves every requested secret with a single call, then
// runs the processors over each secret in the order the backend returned
// them. Secrets that were requested but not returned are only logged at
// debug level. Processing stops at the first processor error.
func (m *Manager) FetchAndProcess(ctx context.Context, requests RequestMap, processors []Processor) error {
	if len(requests) == 0 {
		return nil
	}

	fetched, _, err := m.client.GetSecretsByIDs(ctx, requests.IDs())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(fetched) == 0 {
		return ErrNoSecrets
	}

	seen := make(map[uuid.UUID]bool, len(fetched))
	for _, secret := range fetched {
		name, ok := requests[secret.ID]
		if !ok {
			continue
		}
		seen[secret.ID] = true

		if err := m.process(ctx, secret.ID, name, secret.Value, processors); err != nil {
			return err
		}
	}

	for _, id := range requests.IDs() {
		if !seen[id] {
			m.logger.Debug("Secret %s was requested but not returned", id)
		}
	}

	return nil
}

func (m *Manager) process(ctx context.Context, id uuid.UUID, name, value string, processors []Processor) error {
	if m.structure == StructureNone {
		return run(ctx, name, value, processors)
	}

	pairs, err := m.structure.Expand(value)
	if err != nil {
		return fmt.Errorf("secret %s: %w", id, err)
	}
	for _, p := range pairs {
		if m.transformKeys {
			p.Name = strings.ToUpper(p.Name)
		}
		if err := run(ctx, p.Name, p.Value, processors); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, name, value string, processors []Processor) error {
	for _, processor := range processors {
		if err := processor.ProcessSecret(ctx, name, value); err != nil {
			return fmt.Errorf("secret %q: %w", name, err)
		}
	}
	return nil
}
