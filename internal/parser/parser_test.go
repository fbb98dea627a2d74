package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ingestpipe/internal/config"
	"ingestpipe/internal/ingestpipe"
)

func TestParseUnsupportedType(t *testing.T) {
	p := New(config.Parser{UseRichPDF: true})
	_, err := p.Parse("notes.txt", []byte("hello"))
	require.ErrorIs(t, err, ingestpipe.ErrUnsupportedType)
}

func TestParsePDFFallsBackOnMalformedBytes(t *testing.T) {
	p := New(config.Parser{UseRichPDF: true})
	result, err := p.Parse("broken.pdf", []byte("not actually a pdf"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Pages)
}

func TestSplitProportionalSinglePage(t *testing.T) {
	pages := splitProportional("hello world", 1)
	require.Len(t, pages, 1)
	require.Equal(t, "hello world", pages[0].Text)
}

func TestSplitProportionalMultiplePages(t *testing.T) {
	pages := splitProportional("aaaabbbbcccc", 3)
	require.Len(t, pages, 3)
	require.Equal(t, "aaaa", pages[0].Text)
	require.Equal(t, "bbbb", pages[1].Text)
	require.Equal(t, "cccc", pages[2].Text)
}

func TestUnescapePDFLiteral(t *testing.T) {
	got := unescapePDFLiteral([]byte(`hello\nworld`))
	require.Equal(t, "hello\nworld", string(got))
}

func TestParseDOCXRejectsGarbage(t *testing.T) {
	p := New(config.Parser{})
	result, err := p.Parse("doc.docx", []byte("not a zip"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Pages)
	require.Contains(t, result.Pages[0].Text, "unable to extract")
}
