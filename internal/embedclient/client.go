// Package embedclient calls the embedding service over HTTP. Requests are
// sent in batches of a configured size; a batch that fails embeds as a
// zero-vector placeholder rather than aborting the whole file, matching
// the degrade-without-abort policy the rest of the pipeline expects.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ingestpipe/internal/config"
	"ingestpipe/internal/observability"
)

// Client embeds text through an HTTP endpoint shaped as
// POST {texts: []string} -> {vectors: [][]float32}.
type Client struct {
	cfg        config.Embedding
	httpClient *http.Client
}

// New constructs a Client using an otelhttp-instrumented transport.
func New(cfg config.Embedding) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: observability.NewHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// Dimension returns the configured embedding width, used to build
// zero-vector placeholders for degraded batches.
func (c *Client) Dimension() int { return c.cfg.Dimensions }

// EmbedBatch embeds all texts, splitting into sequential sub-batches of
// cfg.BatchSize. A sub-batch whose HTTP call fails degrades to zero
// vectors for its texts; the error is still returned to the caller so it
// can be logged, but embedding for the rest of the file continues.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := c.cfg.BatchSize
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	var firstErr error
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedOnce(ctx, texts[start:end])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			vecs = zeroVectors(end-start, c.Dimension())
		}
		out = append(out, vecs...)
	}
	return out, firstErr
}

func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embed service returned %s: %s", resp.Status, string(raw))
	}

	var er embedResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(er.Vectors) != len(texts) {
		return nil, fmt.Errorf("embed response count mismatch: got %d, want %d", len(er.Vectors), len(texts))
	}
	return er.Vectors, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.cfg.APIKey == "" {
		return
	}
	if c.cfg.APIHeader == "" || c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		return
	}
	req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
}

func zeroVectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
	}
	return out
}

// Ping verifies the embedding endpoint is reachable by embedding a single
// probe string.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.embedOnce(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding endpoint reachability check failed: %w", err)
	}
	return nil
}
