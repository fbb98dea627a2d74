// Package parser extracts text (and, best-effort, embedded images) from
// uploaded PDF and DOCX files. MIME is resolved from the filename suffix;
// PDF extraction prefers a rich, page-aware library and falls back to a
// deterministic byte-scan when that library cannot read the file.
package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"ingestpipe/internal/config"
	"ingestpipe/internal/ingestpipe"
)

// Parser extracts text from uploaded file bytes.
type Parser struct {
	useRichPDF bool
}

// New constructs a Parser from parser settings.
func New(cfg config.Parser) *Parser {
	return &Parser{useRichPDF: cfg.UseRichPDF}
}

// Parse dispatches to a format-specific extractor based on filename
// suffix. Any panic inside an extractor is recovered and turned into a
// single placeholder page, so a malformed upload degrades instead of
// crashing the worker processing it.
func (p *Parser) Parse(filename string, data []byte) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = placeholderResult(filename, fmt.Sprintf("parser panic: %v", r))
			err = nil
		}
	}()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		result, err = p.parsePDF(data)
	case ".docx":
		result, err = p.parseDOCX(data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ingestpipe.ErrUnsupportedType, filename)
	}
	if err != nil {
		return placeholderResult(filename, err.Error()), nil
	}
	return result, nil
}

func placeholderResult(filename, reason string) Result {
	return Result{Pages: []Page{{Number: 1, Text: fmt.Sprintf("[unable to extract text from %s: %s]", filename, reason)}}}
}

func (p *Parser) parsePDF(data []byte) (Result, error) {
	if p.useRichPDF {
		if res, err := parsePDFRich(data); err == nil {
			return res, nil
		}
	}
	return parsePDFFallback(data), nil
}

func parsePDFRich(data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	n := reader.NumPage()
	pages := make([]Page, 0, n)
	var images []ImageBlob
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, Page{Number: i, Text: strings.TrimSpace(text)})
		images = append(images, extractPDFPageImages(page, i)...)
	}
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("pdf had no readable pages")
	}
	return Result{Pages: pages, Images: images}, nil
}

// extractPDFPageImages best-effort extracts embedded raster XObjects from
// a page. Extraction failures for individual images are swallowed: a
// missing image never fails the whole parse.
func extractPDFPageImages(page pdf.Page, pageNum int) []ImageBlob {
	res, err := page.Resources()
	if err != nil {
		return nil
	}
	xobjects, err := res.Find("XObject")
	if err != nil {
		return nil
	}
	var out []ImageBlob
	for _, key := range xobjects.Keys() {
		obj, err := xobjects.Find(key)
		if err != nil {
			continue
		}
		subtype, err := obj.Find("Subtype")
		if err != nil || subtype.Name() != "Image" {
			continue
		}
		raw, err := obj.RawStream()
		if err != nil || len(raw) == 0 {
			continue
		}
		format := "jpeg"
		if filter, err := obj.Find("Filter"); err == nil && strings.Contains(filter.Name(), "Flate") {
			format = "raw"
		}
		out = append(out, ImageBlob{PageNumber: pageNum, Format: format, Data: raw})
	}
	return out
}

// btRe matches PDF content-stream text-showing operators between BT and
// ET markers, used only when the rich PDF library cannot open a file.
var btRe = regexp.MustCompile(`(?s)BT(.*?)ET`)
var tjRe = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)\s*Tj`)

// parsePDFFallback is a deterministic byte-scan: it pulls every BT...ET
// text-showing span out of the raw bytes, concatenates the literal
// strings, then splits the result proportionally across a page count
// estimated from the number of "/Type /Page" markers.
func parsePDFFallback(data []byte) Result {
	var sb strings.Builder
	for _, block := range btRe.FindAllSubmatch(data, -1) {
		for _, m := range tjRe.FindAll(block[1], -1) {
			lit := bytes.TrimSuffix(bytes.TrimSpace(m), []byte("Tj"))
			lit = bytes.TrimSpace(lit)
			lit = bytes.Trim(lit, "()")
			sb.Write(unescapePDFLiteral(lit))
			sb.WriteByte(' ')
		}
	}
	full := strings.TrimSpace(sb.String())
	pageCount := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	if pageCount <= 0 {
		pageCount = 1
	}
	return Result{Pages: splitProportional(full, pageCount)}
}

func unescapePDFLiteral(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
			switch b[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, b[i])
			}
			continue
		}
		out = append(out, b[i])
	}
	return out
}

func splitProportional(text string, pageCount int) []Page {
	if pageCount <= 1 || len(text) == 0 {
		return []Page{{Number: 1, Text: text}}
	}
	chunkLen := (len(text) + pageCount - 1) / pageCount
	pages := make([]Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		start := i * chunkLen
		if start >= len(text) {
			break
		}
		end := start + chunkLen
		if end > len(text) {
			end = len(text)
		}
		pages = append(pages, Page{Number: i + 1, Text: strings.TrimSpace(text[start:end])})
	}
	return pages
}

func (p *Parser) parseDOCX(data []byte) (Result, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()
	content := r.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return Result{}, fmt.Errorf("docx had no readable content")
	}
	// DOCX text has no reliable page boundary; the whole document is
	// page 1. The library exposes no embedded-media accessor, so image
	// extraction is never attempted here.
	return Result{Pages: []Page{{Number: 1, Text: strings.TrimSpace(content)}}}, nil
}
