package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herdlog/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.WhatsAppConfig{BaseURL: srv.URL, APIVersion: "v20.0", AccessToken: "tok", PhoneNumberID: "555"})
}

func TestSendTextMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/555/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text", body["type"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	resp, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "224600000000", Body: "Bonjour"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
}

func TestSendListMessageTruncates(t *testing.T) {
	var body struct {
		Interactive struct {
			Action struct {
				Button   string `json:"button"`
				Sections []struct {
					Rows []struct {
						ID    string `json:"id"`
						Title string `json:"title"`
					} `json:"rows"`
				} `json:"sections"`
			} `json:"action"`
		} `json:"interactive"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.2"}]}`))
	})

	options := make([]ListOption, 12)
	for i := range options {
		options[i] = ListOption{ID: "opt", Title: "A very long animal label that overflows"}
	}
	_, err := client.SendListMessage(context.Background(), SendListMessageRequest{To: "1", Body: "Which one?", Options: options})
	require.NoError(t, err)

	require.Len(t, body.Interactive.Action.Sections, 1)
	rows := body.Interactive.Action.Sections[0].Rows
	assert.Len(t, rows, MaxListRows)
	assert.Len(t, []rune(rows[0].Title), 24)
	assert.NotEmpty(t, body.Interactive.Action.Button)
}

func TestSendMessageAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":131030}}`))
	})

	_, err := client.SendTextMessage(context.Background(), SendTextMessageRequest{To: "x", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
	assert.Contains(t, err.Error(), "131030")
}
