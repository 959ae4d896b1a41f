// Package ollama implements embed.Embedder against a local Ollama server's
// /api/embed endpoint, adapted from the provider's single-Embed/EmbedBatch
// shape to the Indexer's batch-with-per-text-failure contract (§4.2). Only
// standard library packages are used beyond net/http and encoding/json.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/embed"
)

// DefaultBaseURL is the default base URL for a locally running Ollama instance.
const DefaultBaseURL = "http://localhost:11434"

// defaultSafeMarginPercent is subtracted from a model's known context window
// before the Indexer treats a chunk as ready to flush (§4.5). Self-hosted
// Ollama models rarely report a context window at all, so most callers rely
// on IndexConfig.FallbackTokenBudget instead (TokenBudget returns 0).
const defaultSafeMarginPercent = 0.10

var _ embed.Embedder = (*Provider)(nil)

// Provider implements embed.Embedder using a local Ollama server.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client

	dimensions int
	detectOnce sync.Once
}

type config struct {
	timeout    time.Duration
	dimensions int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithTimeout sets a per-request HTTP timeout. A zero or negative value
// means no timeout (the default).
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithDimensions pre-sets the embedding dimension, bypassing the probe
// request Dimensions() would otherwise issue for unknown models.
func WithDimensions(dims int) Option {
	return func(c *config) { c.dimensions = dims }
}

// New constructs a new Ollama embed.Embedder. baseURL defaults to
// DefaultBaseURL when empty; model must not be empty.
func New(baseURL, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embed: model must not be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	httpClient := &http.Client{}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	p := &Provider{baseURL: baseURL, model: model, httpClient: httpClient, dimensions: cfg.dimensions}
	if p.dimensions == 0 {
		p.dimensions = knownDimensions(model)
	}
	return p, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
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
// entirely, returning one nil vector per text.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, dryRun bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if dryRun {
		return make([][]float32, len(texts)), nil
	}

	vecs, err := p.callEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama embed: embed batch: expected %d embeddings, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}

// Dimensions implements embed.Embedder, probing a live server once for
// models absent from the known-dimensions table.
func (p *Provider) Dimensions() int {
	if p.dimensions != 0 {
		return p.dimensions
	}
	p.detectOnce.Do(func() {
		vecs, err := p.callEmbed(context.Background(), []string{"probe"})
		if err == nil && len(vecs) > 0 {
			p.dimensions = len(vecs[0])
		}
	})
	return p.dimensions
}

// ModelID implements embed.Embedder.
func (p *Provider) ModelID() string { return p.model }

// TokenBudget implements embed.Embedder. Ollama's /api/embed response never
// reports a context window, so maxTokens is always 0 — callers fall back to
// IndexConfig.FallbackTokenBudget (§4.5, §9).
func (p *Provider) TokenBudget() (int, float64) { return 0, defaultSafeMarginPercent }

func (p *Provider) callEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embeddings in response")
	}
	return result.Embeddings, nil
}

// knownDimensions returns the well-known output dimension for recognised
// Ollama embedding model names. Returns 0 for unknown models, triggering
// auto-detection on the first Dimensions() call.
func knownDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "nomic-embed-text"):
		return 768
	case strings.Contains(lower, "mxbai-embed-large"):
		return 1024
	case strings.Contains(lower, "all-minilm"):
		return 384
	default:
		return 0
	}
}
