package chunker

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ingestpipe/internal/llmclient"
	"ingestpipe/internal/summarize"
)

const (
	topicMaxChars         = 120
	topicFallbackChars    = 80
	chunkSummarySentences = 3
)

// Enriched is a Chunk with its model-generated topic label and summary.
type Enriched struct {
	Chunk
	Title   string
	Summary string
}

// Enrich cleans each chunk's text and obtains a topic label and a short
// summary, fanning out with a bounded worker pool. Results preserve chunk
// order regardless of completion order: each goroutine writes to its own
// index of a pre-sized slice rather than appending. A chunk whose LLM
// calls fail still gets a deterministic fallback label and summary, never
// an empty one unless its cleaned text is itself empty, so ingestion
// completes the same way whether or not an LLM is configured.
func Enrich(ctx context.Context, llm *llmclient.Client, summarizer *summarize.Summarizer, smallModel string, chunks []Chunk, concurrency int) ([]Enriched, error) {
	out := make([]Enriched, len(chunks))
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			cleaned := summarize.CleanChunkText(c.Text)
			c.Text = cleaned
			out[i] = Enriched{
				Chunk:   c,
				Title:   topicLabel(gctx, llm, smallModel, cleaned),
				Summary: summarizer.CheapSummarize(gctx, cleaned, chunkSummarySentences),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich chunks: %w", err)
	}
	return out, nil
}

// topicLabel asks the small model for a short, preface-free title and
// truncates it to topicMaxChars. On any LLM failure it falls back to the
// first topicFallbackChars characters of the cleaned text plus an
// ellipsis.
func topicLabel(ctx context.Context, llm *llmclient.Client, smallModel, cleaned string) string {
	if cleaned == "" {
		return ""
	}
	if llm != nil {
		prompt := "Provide a short topic or title for this passage, no preface and no punctuation beyond the title itself:\n\n" + cleaned
		title, err := llm.ChatOnce(ctx, smallModel, prompt)
		if err == nil {
			if title = strings.TrimSpace(title); title != "" {
				if len(title) > topicMaxChars {
					title = title[:topicMaxChars]
				}
				return title
			}
		}
	}
	if len(cleaned) <= topicFallbackChars {
		return cleaned
	}
	return cleaned[:topicFallbackChars] + "…"
}
