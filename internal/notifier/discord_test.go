package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordClientSendMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody createMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewDiscordClient("bot-token")
	client.baseURL = server.URL

	embed := &Embed{Title: "Malicious edit detected", Color: colorAlert}
	err := client.SendMessage(context.Background(), "channel-123", "alert text", embed)

	require.NoError(t, err)
	assert.Equal(t, "/channels/channel-123/messages", gotPath)
	assert.Equal(t, "Bot bot-token", gotAuth)
	assert.Equal(t, "alert text", gotBody.Content)
	require.Len(t, gotBody.Embeds, 1)
	assert.Equal(t, "Malicious edit detected", gotBody.Embeds[0].Title)
}

func TestDiscordClientOmitsNilEmbed(t *testing.T) {
	var gotBody createMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer server.Close()

	client := NewDiscordClient("bot-token")
	client.baseURL = server.URL

	require.NoError(t, client.SendMessage(context.Background(), "channel-123", "plain text", nil))
	assert.Empty(t, gotBody.Embeds)
}

func TestDiscordClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Missing Access", "code": 50001}`))
	}))
	defer server.Close()

	client := NewDiscordClient("bot-token")
	client.baseURL = server.URL

	err := client.SendMessage(context.Background(), "channel-123", "alert", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "Missing Access")
}
