// Package imagegen provides the Gemini-backed image generation client
// used to render a photo of the selected dish.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// DefaultModel is the Gemini model used for image generation.
const DefaultModel = "gemini-2.5-flash-image"

// Env var names for the Gemini credential. EnvAPIKeyFallback is honoured
// when EnvAPIKey is unset.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvAPIKeyFallback = "API_KEY"
)

// KeyFromEnv returns the configured API key, or "" when none is set.
func KeyFromEnv() string {
	if k := os.Getenv(EnvAPIKey); k != "" {
		return k
	}
	return os.Getenv(EnvAPIKeyFallback)
}

// contentGenerator is the slice of the genai Models service we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Compile-time interface check.
var _ domain.ImageGenerator = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel overrides the default model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTimeout bounds a single Generate call. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// withBackend swaps the genai service, for tests.
func withBackend(b contentGenerator) ClientOption {
	return func(c *Client) { c.backend = b }
}

// Client performs one image generation request per Generate call. It does
// not retry and keeps no state besides the lazily created genai client.
type Client struct {
	apiKey  string
	model   string
	timeout time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	backend contentGenerator
}

// NewClient creates a generation client. An empty apiKey is accepted here;
// the problem surfaces from Ready and Generate instead.
func NewClient(apiKey string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   DefaultModel,
		timeout: 90 * time.Second,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Ready reports ErrMissingCredential when no API key is configured.
func (c *Client) Ready() error {
	if c.apiKey == "" {
		return domain.ErrMissingCredential
	}
	return nil
}

// Generate sends prompt to the image model and returns the first inline
// image in the response.
func (c *Client) Generate(ctx context.Context, prompt string) (*domain.Image, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	backend, err := c.service(ctx)
	if err != nil {
		return nil, &domain.TransportError{Detail: "create client", Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.Debug("imagegen: generating with %s (%d char prompt)", c.model, len(prompt))
	start := time.Now()

	resp, err := backend.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, &domain.TransportError{Detail: "generate content", Err: err}
	}

	img, err := extractImage(resp)
	if err != nil {
		c.log.Warn("imagegen: %v (after %s)", err, time.Since(start).Round(time.Millisecond))
		return nil, err
	}

	c.log.Info("imagegen: got %s image (%d bytes) in %s", img.MIMEType, len(img.Data), time.Since(start).Round(time.Millisecond))
	return img, nil
}

// service returns the genai models service, creating the client on first use.
func (c *Client) service(ctx context.Context) (contentGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c.backend = client.Models
	return c.backend, nil
}

// extractImage scans the first candidate for an inline image part.
func extractImage(resp *genai.GenerateContentResponse) (*domain.Image, error) {
	if resp == nil {
		return nil, &domain.TransportError{Detail: "empty response"}
	}
	if len(resp.Candidates) == 0 {
		return nil, noImage(resp)
	}

	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil, noImage(resp)
	}

	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = mimetype.Detect(part.InlineData.Data).String()
		}
		return &domain.Image{Data: part.InlineData.Data, MIMEType: mime}, nil
	}
	return nil, noImage(resp)
}

// noImage wraps ErrNoImageReturned with the block reason, if any.
func noImage(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w (blocked: %s)", domain.ErrNoImageReturned, resp.PromptFeedback.BlockReason)
	}
	return domain.ErrNoImageReturned
}

// IsTransport reports whether err came from the call itself rather than
// from configuration or an empty response.
func IsTransport(err error) bool {
	var te *domain.TransportError
	return errors.As(err, &te)
}
