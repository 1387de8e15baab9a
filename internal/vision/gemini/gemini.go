package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vbonduro/recipelens/internal/vision"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// request types mirror the generateContent REST structure.
type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

type GeminiBackend struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiBackend(apiKey, model, baseURL string) *GeminiBackend {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiBackend{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Generate(ctx context.Context, img vision.Image, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key is empty", vision.ErrMissingCredential)
	}

	body := request{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: img.MIMEType, Data: img.Data}},
				{Text: prompt},
			},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", statusError(resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respBody.Candidates) == 0 {
		if respBody.PromptFeedback != nil && respBody.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked the request: %s", respBody.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, p := range respBody.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

// statusError classifies a non-200 reply. Gemini reports a bad key as 400
// with reason API_KEY_INVALID rather than 401.
func statusError(status int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("gemini returned status %d: %w", status, vision.ErrUnauthorized)
	}
	for _, d := range apiErr.Error.Details {
		if d.Reason == "API_KEY_INVALID" {
			return fmt.Errorf("gemini returned status %d (%s): %w", status, d.Reason, vision.ErrUnauthorized)
		}
	}
	if strings.Contains(apiErr.Error.Message, "API_KEY_INVALID") || strings.Contains(apiErr.Error.Message, "API key not valid") {
		return fmt.Errorf("gemini returned status %d: %w", status, vision.ErrUnauthorized)
	}

	if apiErr.Error.Message != "" {
		return fmt.Errorf("gemini returned status %d: %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("gemini returned status %d", status)
}
