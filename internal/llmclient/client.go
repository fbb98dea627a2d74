// Package llmclient talks to an OpenAI-compatible chat completions
// endpoint. It exposes the two shapes the pipeline actually needs —
// one-shot text completion and JSON-shaped completion with a
// small-model/large-model retry escalation — rather than the full
// tool-calling/streaming surface a chat product would need.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"ingestpipe/internal/config"
)

// Client issues chat completions against the configured OpenAI-compatible
// endpoint, rotating API keys on auth failure.
type Client struct {
	cfg config.LLM
}

// New constructs a Client. The underlying openai.Client is built per-call
// so each attempt can use a freshly resolved API key.
func New(cfg config.LLM) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) clientForKey(key string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}

// ChatOnce sends a single prompt to model and returns the raw completion
// text. An auth failure (401/403) moves on to the next configured API key
// until the keys or the attempt budget run out; any other request error
// is returned at once without trying another key.
func (c *Client) ChatOnce(ctx context.Context, model, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var lastErr error
	maxTries := c.cfg.MaxKeyTries
	if maxTries <= 0 {
		maxTries = 1
	}
	for attempt := 0; attempt < maxTries; attempt++ {
		key, err := c.cfg.ResolveKey(attempt)
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		client := c.clientForKey(key)
		completion, err := client.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			lastErr = err
			if isAuthError(err) {
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("chat completion: no choices returned")
		}
		return normalize(completion.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("chat completion: exhausted api keys: %w", lastErr)
}

// ChatJSONRobust asks smallModel for a JSON-shaped completion, and on
// malformed output retries once against largeModel before giving up. The
// returned string is the tightest JSON span extracted from the response.
func (c *Client) ChatJSONRobust(ctx context.Context, smallModel, largeModel, prompt string) (json.RawMessage, error) {
	raw, err := c.ChatOnce(ctx, smallModel, prompt)
	if err == nil {
		if js, ok := extractJSON(raw); ok {
			return js, nil
		}
	}
	raw, err = c.ChatOnce(ctx, largeModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("chat json: %w", err)
	}
	if js, ok := extractJSON(raw); ok {
		return js, nil
	}
	return nil, fmt.Errorf("chat json: malformed output from both models")
}

func isAuthError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSON tries, in order: direct parse, fenced-code-block extraction,
// first brace/bracket span extraction. It returns ok=false when nothing
// in the text parses as JSON.
func extractJSON(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return json.RawMessage(s), true
	}
	if m := fencedBlockRe.FindStringSubmatch(s); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return json.RawMessage(inner), true
		}
	}
	if span, ok := firstSpan(s); ok {
		return json.RawMessage(span), true
	}
	return nil, false
}

// firstSpan finds the first balanced {...} or [...] span in s and returns
// it only if it parses as valid JSON.
func firstSpan(s string) (string, bool) {
	for _, pair := range []struct{ open, close byte }{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, pair.open)
		if start < 0 {
			continue
		}
		depth := 0
		for i := start; i < len(s); i++ {
			switch s[i] {
			case pair.open:
				depth++
			case pair.close:
				depth--
				if depth == 0 {
					span := s[start : i+1]
					if json.Valid([]byte(span)) {
						return span, true
					}
				}
			}
		}
	}
	return "", false
}

var (
	preambleRe  = regexp.MustCompile(`(?i)^((here'?s?|sure|okay|certainly)[^:]*:|this image shows|caption:|title:)\s*`)
	listMarkRe  = regexp.MustCompile(`(?m)^\s*([-*]\s+|\d+[.)]\s*)`)
	wsRe        = regexp.MustCompile(`\s+`)
)

// normalize strips conversational preambles, list markers and surrounding
// quotes, and collapses repeated whitespace, so downstream parsing sees
// only the model's substantive answer.
func normalize(s string) string {
	s = preambleRe.ReplaceAllString(s, "")
	s = listMarkRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = wsRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
