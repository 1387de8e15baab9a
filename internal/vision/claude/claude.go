package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/recipelens/internal/vision"
)

// maxTokens leaves room for a long ingredient list, a full nutrient panel
// and a dozen preparation steps.
const maxTokens = 4096

type ClaudeBackend struct {
	model  string
	client *anthropic.Client
	hasKey bool
}

// NewClaudeBackend builds a backend on the Anthropic Messages API. baseURL
// may be empty for the public endpoint.
func NewClaudeBackend(apiKey, model, baseURL string) *ClaudeBackend {
	opts := []anthropic.ClientOption{}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeBackend{
		model:  model,
		client: anthropic.NewClient(apiKey, opts...),
		hasKey: apiKey != "",
	}
}

func (c *ClaudeBackend) Name() string { return "claude" }

// Generate sends the image and prompt as one user turn. The Messages API has
// no JSON response mode, so the structured format is declared by the prompt.
func (c *ClaudeBackend) Generate(ctx context.Context, img vision.Image, prompt string) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("%w: claude api key is empty", vision.ErrMissingCredential)
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(img.MIMEType),
					img.Data,
				)),
				anthropic.NewTextMessageContent(prompt),
			},
		}},
	})
	if err != nil {
		return "", classifyError(err)
	}
	return resp.GetFirstContentText(), nil
}

func classifyError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && (apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr()) {
		return fmt.Errorf("claude rejected credential: %s: %w", apiErr.Message, vision.ErrUnauthorized)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && (reqErr.StatusCode == http.StatusUnauthorized || reqErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("claude returned status %d: %w", reqErr.StatusCode, vision.ErrUnauthorized)
	}
	return fmt.Errorf("failed to call claude: %w", err)
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
