package libretranslate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/detect", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "¿dónde están mis notas?", payload["q"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"language":"es","confidence":0.92}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	lang, confidence, err := client.Detect(context.Background(), "¿dónde están mis notas?")
	require.NoError(t, err)
	require.Equal(t, "es", lang)
	require.InDelta(t, 0.92, confidence, 1e-9)
}

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/translate", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "en", payload["target"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"Where are my grades?"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	out, err := client.Translate(context.Background(), "¿Dónde están mis notas?", "en")
	require.NoError(t, err)
	require.Equal(t, "Where are my grades?", out)
}

func TestTranslateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "")
	require.NoError(t, err)

	_, err = client.Translate(context.Background(), "text", "en")
	require.Error(t, err)
}
