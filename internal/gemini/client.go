// Package gemini reads expense invoices with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned by NewClient for an empty key.
var ErrMissingAPIKey = errors.New("gemini API key is required")

// ContentGenerator is the slice of the genai API the parser needs.
// Tests replace it with a canned generator.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type modelsGenerator struct {
	models *genai.Models
}

func (g modelsGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := g.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Option tunes a Client.
type Option func(*Client)

// WithModel selects the Gemini model. An empty name keeps the default.
func WithModel(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.model = name
		}
	}
}

// WithTimeout bounds each invoice request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client reads invoices through a ContentGenerator.
type Client struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
}

// NewClient connects to the Gemini API with the given key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewClientWithGenerator(modelsGenerator{models: client.Models}, opts...), nil
}

// NewClientWithGenerator builds a Client on top of any generator.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	c := &Client{
		generator: generator,
		model:     DefaultModel,
		timeout:   ParseInvoiceTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model the client asks.
func (c *Client) Model() string {
	return c.model
}

// generationConfig asks for deterministic JSON output.
func (c *Client) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
}
