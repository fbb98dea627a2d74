package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ingestpipe/internal/config"
	"ingestpipe/internal/llmclient"
	"ingestpipe/internal/summarize"
)

func noopLLM() *llmclient.Client {
	return llmclient.New(config.LLM{MaxKeyTries: 1})
}

func TestEnrichFallsBackToHeuristicsWithoutLLM(t *testing.T) {
	chunks := []Chunk{
		{CardID: "doc-c0001", Sequence: 1, Text: strings.Repeat("x", 200)},
	}
	llm := noopLLM()
	summarizer := summarize.New(llm, "gpt-4o-mini")

	enriched, err := Enrich(context.Background(), llm, summarizer, "gpt-4o-mini", chunks, 2)
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	require.NotEmpty(t, enriched[0].Title)
	require.True(t, strings.HasSuffix(enriched[0].Title, "…"))
	require.Len(t, enriched[0].Title, topicFallbackChars+len("…"))
}

func TestEnrichPreservesOrder(t *testing.T) {
	chunks := []Chunk{
		{CardID: "doc-c0001", Sequence: 1, Text: "First sentence. Second sentence."},
		{CardID: "doc-c0002", Sequence: 2, Text: "Third sentence. Fourth sentence."},
		{CardID: "doc-c0003", Sequence: 3, Text: "Fifth sentence. Sixth sentence."},
	}
	llm := noopLLM()
	summarizer := summarize.New(llm, "gpt-4o-mini")

	enriched, err := Enrich(context.Background(), llm, summarizer, "gpt-4o-mini", chunks, 4)
	require.NoError(t, err)
	require.Len(t, enriched, 3)
	for i, e := range enriched {
		require.Equal(t, chunks[i].CardID, e.CardID)
	}
}
