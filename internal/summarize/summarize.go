// Package summarize produces short, model-backed summaries used for both
// per-chunk and per-file summary text. Cleaning runs unconditionally; the
// LLM call is best-effort and falls back to a sentence-bounded extract.
package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ingestpipe/internal/llmclient"
)

var pageMarkerRe = regexp.MustCompile(`(?i)\bPage\s+\d+\b`)
var collapseWSRe = regexp.MustCompile(`\s+`)

// CleanChunkText strips page-number markers and collapses whitespace
// before text is handed to the chunker or the LLM.
func CleanChunkText(s string) string {
	s = pageMarkerRe.ReplaceAllString(s, " ")
	s = collapseWSRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Summarizer produces short summaries for storage alongside a chunk or a
// FileSummary record.
type Summarizer struct {
	llm        *llmclient.Client
	smallModel string
}

// New constructs a Summarizer backed by the small chat model.
func New(llm *llmclient.Client, smallModel string) *Summarizer {
	return &Summarizer{llm: llm, smallModel: smallModel}
}

const defaultMaxSentences = 3

// CheapSummarize asks the small model for a summary of text in at most
// maxSentences sentences. On any LLM failure it degrades to the first
// maxSentences sentences of the cleaned input, preserving terminal
// punctuation, so ingestion never blocks on the summarizer.
func (s *Summarizer) CheapSummarize(ctx context.Context, text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	cleaned := CleanChunkText(text)
	if cleaned == "" {
		return ""
	}
	prompt := fmt.Sprintf("Summarize the following document in at most %d sentences, plain text only, no preface or meta commentary:\n\n%s", maxSentences, cleaned)
	out, err := s.llm.ChatOnce(ctx, s.smallModel, prompt)
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}
	return firstSentences(cleaned, maxSentences)
}

var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+`)

// firstSentences returns the first n sentences of s, preserving terminal
// punctuation. If s has fewer than n sentences, it returns every complete
// sentence; text after the last terminal punctuation is dropped. If s has
// no terminal punctuation at all, it returns all of s.
func firstSentences(s string, n int) string {
	matches := sentenceRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(s)
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	return strings.TrimSpace(strings.Join(matches, ""))
}
