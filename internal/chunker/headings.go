package chunker

import "regexp"

// headingPatterns recognizes heading lines that the segmenter treats as
// hard boundaries before applying its sliding window inside each segment.
// Underlined headings (a title line followed by a row of =/-) are
// detected separately since they span two lines.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^#{1,6}\s+\S+`),                                                    // Markdown ATX
	regexp.MustCompile(`^\s*\d+(\.\d+)*[.)]\s+\S+`),                                         // numbered sections
	regexp.MustCompile(`(?i)^\s*(chapter|section)\s+\d+\b`),                                 // Chapter/Section N
	regexp.MustCompile(`(?i)^\s*(abstract|introduction|conclusion|references|bibliography)\s*$`), // common document sections
}

var underlineRe = regexp.MustCompile(`^(=+|-{3,})\s*$`)

// isHeadingLine reports whether line starts a new segment, given the line
// that follows it (used only to detect the underlined-heading style).
func isHeadingLine(line, nextLine string) bool {
	if line == "" {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return underlineRe.MatchString(nextLine)
}
