package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/utils"
	"github.com/zalando/go-keyring"
)

var ErrSecretNotFound = errors.New("secret not found")

// Provider is an opaque credential source.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvProvider resolves a secret from the environment variable derived from its name,
// e.g. "icebreaker-db-key" is read from ICEBREAKER_DB_KEY (or PREFIX_ICEBREAKER_DB_KEY).
type EnvProvider struct {
	Prefix string
}

func (p EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envName := p.EnvVarName(name)
	if envName == "" {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	value, ok := os.LookupEnv(envName)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, envName)
	}
	return value, nil
}

func (p EnvProvider) EnvVarName(name string) string {
	normalized := utils.GenerateEnvVarName(name)
	if normalized == "" || p.Prefix == "" {
		return normalized
	}
	return utils.GenerateEnvVarName(p.Prefix) + "_" + normalized
}

// KeyringProvider reads secrets from the OS keyring, stored under the given service name.
type KeyringProvider struct {
	Service string
}

func (p KeyringProvider) GetSecret(_ context.Context, name string) (string, error) {
	if p.Service == "" {
		return "", errors.New("keyring service must not be empty")
	}
	value, err := keyring.Get(p.Service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s/%s", ErrSecretNotFound, p.Service, name)
		}
		return "", fmt.Errorf("reading secret %s/%s from keyring: %w", p.Service, name, err)
	}
	return value, nil
}

type chain []Provider

// Chain asks each provider in order and returns the first secret found. Errors other than
// ErrSecretNotFound stop the lookup.
func Chain(providers ...Provider) Provider {
	return chain(providers)
}

func (c chain) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range c {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Static serves fixed values, used for local runs and tests.
type Static map[string]string

func (s Static) GetSecret(_ context.Context, name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}
