package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrSecretNotFound = errors.New("secret not found")

// Manager resolves API credentials and channel identifiers by symbolic name.
type Manager interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvManager resolves secrets from the process environment. The symbolic
// name "perspective-api-key" maps to the variable PERSPECTIVE_API_KEY.
type EnvManager struct{}

func NewEnvManager() *EnvManager {
	return &EnvManager{}
}

func (m *EnvManager) GetSecret(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s (env %s)", ErrSecretNotFound, name, key)
	}

	return value, nil
}
