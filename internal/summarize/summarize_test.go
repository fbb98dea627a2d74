package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ingestpipe/internal/config"
	"ingestpipe/internal/llmclient"
)

func TestCleanChunkTextStripsPageMarkersAndWhitespace(t *testing.T) {
	got := CleanChunkText("Hello   world.\n\nPage 12\n\nMore   text.")
	require.Equal(t, "Hello world. More text.", got)
}

func TestFirstSentencesLimitsToN(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one too. Fourth should be dropped."
	got := firstSentences(text, 2)
	require.Equal(t, "First sentence here. Second sentence follows.", got)
}

func TestFirstSentencesReturnsAllWhenFewerThanN(t *testing.T) {
	text := "Only one sentence here."
	got := firstSentences(text, 3)
	require.Equal(t, "Only one sentence here.", got)
}

func TestFirstSentencesWithNoPunctuationReturnsWholeString(t *testing.T) {
	text := "nopunctuationatallinthisstring"
	got := firstSentences(text, 3)
	require.Equal(t, text, got)
}

func TestCheapSummarizeFallsBackWithoutLLM(t *testing.T) {
	s := New(llmclient.New(config.LLM{MaxKeyTries: 1}), "gpt-4o-mini")
	got := s.CheapSummarize(context.Background(), "First sentence here. Second sentence follows. Third one too.", 2)
	require.Equal(t, "First sentence here. Second sentence follows.", got)
}
