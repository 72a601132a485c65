package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecretMapsNameToEnvVar(t *testing.T) {
	t.Setenv("PERSPECTIVE_API_KEY", "api-key-value")

	value, err := NewEnvManager().GetSecret(context.Background(), "perspective-api-key")

	require.NoError(t, err)
	assert.Equal(t, "api-key-value", value)
}

func TestGetSecretMissing(t *testing.T) {
	_, err := NewEnvManager().GetSecret(context.Background(), "no-such-secret")

	require.ErrorIs(t, err, ErrSecretNotFound)
	assert.Contains(t, err.Error(), "NO_SUCH_SECRET")
}

func TestGetSecretEmptyValueIsMissing(t *testing.T) {
	t.Setenv("DISCORD_BOT_KEY", "")

	_, err := NewEnvManager().GetSecret(context.Background(), "discord-bot-key")

	assert.ErrorIs(t, err, ErrSecretNotFound)
}
