package parser

// Page is one page of extracted text from a source document.
type Page struct {
	Number int
	Text   string
}

// ImageBlob is a best-effort extracted embedded image. Extraction is
// opportunistic: a parse that finds no images returns a nil slice, never
// an error.
type ImageBlob struct {
	PageNumber int
	Format     string // "raw" for Flate-encoded streams, otherwise "jpeg"
	Data       []byte
}

// Result is everything Parse produces for one uploaded file.
type Result struct {
	Pages  []Page
	Images []ImageBlob
}

// FullText concatenates every page's text in order, separated by blank
// lines.
func (r Result) FullText() string {
	out := ""
	for i, p := range r.Pages {
		if i > 0 {
			out += "\n\n"
		}
		out += p.Text
	}
	return out
}
