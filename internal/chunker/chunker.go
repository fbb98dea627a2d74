// Package chunker segments cleaned document text into ordered chunks and
// enriches each one with a model-generated topic label and summary.
// Segmentation prefers an LLM-assisted pass over the whole document text;
// any failure there — no client configured, a request error, or malformed
// output — falls back to heading-aware deterministic windowing, so
// ingestion always produces chunks.
package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ingestpipe/internal/llmclient"
)

// Chunk is one segment of text with a stable identifier, ready for
// enrichment and embedding.
type Chunk struct {
	CardID   string
	Sequence int
	Text     string
}

// Options bounds the deterministic fallback's sliding window in words.
type Options struct {
	WindowWords  int // words per chunk, default 220
	OverlapWords int // words carried from the tail of the previous chunk, default 40
}

func (o Options) normalized() Options {
	if o.WindowWords <= 0 {
		o.WindowWords = 220
	}
	if o.OverlapWords == 0 {
		o.OverlapWords = 40
	}
	if o.OverlapWords < 0 || o.OverlapWords >= o.WindowWords {
		o.OverlapWords = o.WindowWords / 5
	}
	return o
}

// Segment splits text into hard-boundary segments at recognized headings.
// Text with no recognized heading is returned as a single segment.
func Segment(text string) []string {
	lines := strings.Split(text, "\n")
	var segments []string
	var buf strings.Builder
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			segments = append(segments, s)
		}
		buf.Reset()
	}
	for i, line := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		if isHeadingLine(strings.TrimSpace(line), strings.TrimSpace(next)) && buf.Len() > 0 {
			flush()
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	if len(segments) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return segments
}

var wsRe = regexp.MustCompile(`\s+`)

// Window splits one segment's words into overlapping chunks, carrying the
// trailing OverlapWords of each emitted chunk into the next chunk's
// leading words.
func Window(segment string, opt Options) []string {
	opt = opt.normalized()
	words := wsRe.Split(strings.TrimSpace(segment), -1)
	if len(words) == 1 && words[0] == "" {
		return nil
	}
	var out []string
	start := 0
	for start < len(words) {
		end := start + opt.WindowWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
		next := end - opt.OverlapWords
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// llmSegmentCharThreshold is the document length above which LLM-assisted
// segmentation escalates straight to the large model rather than trying
// the small one first.
const llmSegmentCharThreshold = 200_000

// chunkLLMAssisted asks the LLM to split text into a JSON array of
// roughly 150-400 word chunks. It reports ok=false whenever the response
// isn't a JSON array of non-empty strings, so the caller can fall back to
// deterministic segmentation.
func chunkLLMAssisted(ctx context.Context, llm *llmclient.Client, smallModel, largeModel, text string) ([]string, bool) {
	if llm == nil || strings.TrimSpace(text) == "" {
		return nil, false
	}
	model := smallModel
	if len(text) > llmSegmentCharThreshold {
		model = largeModel
	}
	prompt := "Split the following document into coherent chunks of roughly 150 to 400 words each, " +
		"breaking at natural topic boundaries. Return ONLY a JSON array of strings, one per chunk, " +
		"with no commentary or markdown fencing:\n\n" + text

	raw, err := llm.ChatJSONRobust(ctx, model, largeModel, prompt)
	if err != nil {
		return nil, false
	}
	var segments []string
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, false
	}
	cleaned := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, false
	}
	return cleaned, true
}

// deterministicSegments is the guaranteed fallback: heading-aware
// segmentation followed by fixed-size sliding windows with overlap.
func deterministicSegments(text string, opt Options) []string {
	var out []string
	for _, seg := range Segment(text) {
		out = append(out, Window(seg, opt)...)
	}
	return out
}

// ChunkText produces ordered, card-id-assigned chunks for a file's cleaned
// text. It tries LLM-assisted segmentation first and falls back to
// heading-aware deterministic windowing on any failure. Card ids take the
// form slug(filename)-cNNNN, 1-based and sequenced across the whole file.
func ChunkText(ctx context.Context, llm *llmclient.Client, smallModel, largeModel, filename, text string, opt Options) []Chunk {
	segments, ok := chunkLLMAssisted(ctx, llm, smallModel, largeModel, text)
	if !ok {
		segments = deterministicSegments(text, opt)
	}

	slug := Slugify(filename)
	chunks := make([]Chunk, 0, len(segments))
	seq := 1
	for _, seg := range segments {
		chunks = append(chunks, Chunk{
			CardID:   fmt.Sprintf("%s-c%04d", slug, seq),
			Sequence: seq,
			Text:     seg,
		})
		seq++
	}
	return chunks
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses runs of non-alphanumeric characters
// into single hyphens, trimming leading/trailing hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	if i := strings.LastIndexByte(s, '.'); i > 0 {
		s = s[:i]
	}
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "file"
	}
	return s
}
