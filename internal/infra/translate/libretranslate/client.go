package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a LibreTranslate-compatible endpoint for language detection
// and translation. Both operations are best-effort collaborators; callers are
// expected to fall back on failure.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("translate base url cannot be empty")
	}
	return &Client{
		baseURL: strings.TrimRight(trimmed, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type detectResponse []struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Detect returns the most likely language tag for the text.
func (c *Client) Detect(ctx context.Context, text string) (string, float64, error) {
	body, err := c.post(ctx, "/detect", map[string]any{
		"q":       text,
		"api_key": c.apiKey,
	})
	if err != nil {
		return "", 0, err
	}
	var out detectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", 0, fmt.Errorf("decode detect response: %w", err)
	}
	if len(out) == 0 {
		return "", 0, errors.New("detect returned no candidates")
	}
	return out[0].Language, out[0].Confidence, nil
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text into the target language.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	body, err := c.post(ctx, "/translate", map[string]any{
		"q":       text,
		"source":  "auto",
		"target":  targetLang,
		"format":  "text",
		"api_key": c.apiKey,
	})
	if err != nil {
		return "", err
	}
	var out translateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", errors.New("translate response empty")
	}
	return out.TranslatedText, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode translate payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("translate request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
