package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentSplitsOnMarkdownHeadings(t *testing.T) {
	text := "# Intro\nhello there\n\n# Conclusion\ngoodbye now"
	segs := Segment(text)
	require.Len(t, segs, 2)
	require.Contains(t, segs[0], "Intro")
	require.Contains(t, segs[1], "Conclusion")
}

func TestSegmentNoHeadingsReturnsOneSegment(t *testing.T) {
	segs := Segment("just some plain text with no headings at all")
	require.Len(t, segs, 1)
}

func TestWindowOverlapCarriesTailWords(t *testing.T) {
	words := make([]string, 50)
	for i := range words {
		words[i] = "w" + string(rune('a'+i%26))
	}
	text := strings.Join(words, " ")
	chunks := Window(text, Options{WindowWords: 20, OverlapWords: 5})
	require.True(t, len(chunks) >= 2)

	firstWords := strings.Fields(chunks[0])
	secondWords := strings.Fields(chunks[1])
	require.Equal(t, firstWords[len(firstWords)-5:], secondWords[:5])
}

func TestChunkTextAssignsSequentialOneBasedCardIDs(t *testing.T) {
	text := strings.Repeat("word ", 500)
	chunks := ChunkText(context.Background(), nil, "", "", "My Report.pdf", text, Options{WindowWords: 50, OverlapWords: 10})
	require.NotEmpty(t, chunks)
	require.Equal(t, 1, chunks[0].Sequence)
	require.Equal(t, "my-report-c0001", chunks[0].CardID)
	for i, c := range chunks {
		require.Equal(t, i+1, c.Sequence)
		require.Equal(t, fmt.Sprintf("my-report-c%04d", i+1), c.CardID)
	}
}

func TestChunkTextFallsBackToDeterministicWithoutLLM(t *testing.T) {
	text := "# Intro\n" + strings.Repeat("word ", 100) + "\n\n# Conclusion\n" + strings.Repeat("more ", 100)
	chunks := ChunkText(context.Background(), nil, "", "", "report.txt", text, Options{WindowWords: 50, OverlapWords: 10})
	deterministic := deterministicSegments(text, Options{WindowWords: 50, OverlapWords: 10})
	require.Len(t, chunks, len(deterministic))
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "my-report", Slugify("My Report.pdf"))
	require.Equal(t, "a-b-c", Slugify("a_b--c!!"))
	require.Equal(t, "file", Slugify("???"))
}
