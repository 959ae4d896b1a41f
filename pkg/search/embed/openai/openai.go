// Package openai implements embed.Embedder using the OpenAI API, adapted
// from the provider's single-Embed/EmbedBatch shape to the Indexer's
// batch-with-per-text-failure contract (§4.2).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
)

// DefaultModel is the default OpenAI embeddings model.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// defaultSafeMarginPercent is subtracted from a model's known context window
// before the Indexer treats a chunk as ready to flush (§4.5).
const defaultSafeMarginPercent = 0.10

var _ embed.Embedder = (*Provider)(nil)

// Provider implements embed.Embedder against the OpenAI embeddings API.
type Provider struct {
	client            oai.Client
	model             string
	safeMarginPercent float64
}

type config struct {
	baseURL           string
	organization      string
	timeout           time.Duration
	safeMarginPercent float64
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) { c.organization = org }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithSafeMarginPercent overrides the fraction of a model's context window
// reserved as headroom when computing the Indexer's token budget (§4.5).
func WithSafeMarginPercent(pct float64) Option {
	return func(c *config) { c.safeMarginPercent = pct }
}

// New constructs a new OpenAI embed.Embedder. If model is empty, DefaultModel
// is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embed: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{safeMarginPercent: defaultSafeMarginPercent}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, safeMarginPercent: cfg.safeMarginPercent}, nil
}

// EmbedText implements embed.Embedder.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text}, false)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements embed.Embedder. dryRun skips the network call
// entirely and returns one nil vector per text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, dryRun bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if dryRun {
		return make([][]float32, len(texts)), nil
	}

	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: embed batch: %w", err)
	}

	result := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) < 0 || int(e.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embed: unexpected response index %d for batch of %d", e.Index, len(texts))
		}
		result[e.Index] = float64ToFloat32(e.Embedding)
	}
	return result, nil
}

// Dimensions implements embed.Embedder.
func (p *Provider) Dimensions() int { return modelDimensions(p.model) }

// ModelID implements embed.Embedder.
func (p *Provider) ModelID() string { return p.model }

// TokenBudget implements embed.Embedder.
func (p *Provider) TokenBudget() (int, float64) {
	return modelMaxTokens(p.model), p.safeMarginPercent
}

// modelDimensions returns the embedding dimensions for known OpenAI models.
func modelDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"):
		return 1536
	case strings.Contains(lower, "text-embedding-ada-002"):
		return 1536
	default:
		return 1536
	}
}

// modelMaxTokens returns the per-request input token limit for known OpenAI
// embedding models, or 0 when unknown so the caller falls back to its own
// configured budget (§4.5).
func modelMaxTokens(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"),
		strings.Contains(lower, "text-embedding-3-small"),
		strings.Contains(lower, "text-embedding-ada-002"):
		return 8191
	default:
		return 0
	}
}

// float64ToFloat32 converts a []float64 slice to []float32.
func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
