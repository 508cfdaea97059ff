package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultModel = "gemini-1.5-flash-latest"

// Client wraps the Google GenAI SDK for single-shot text generation.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. model may be empty to use the default.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// GenerateText sends the prompt and returns the model's text payload.
// Any transport failure or empty payload is an error; the caller decides
// what to do with it.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model returned no text payload")
	}

	return text, nil
}
