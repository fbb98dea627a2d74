package llmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONDirect(t *testing.T) {
	js, ok := extractJSON(`{"a":1}`)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(js))
}

func TestExtractJSONFenced(t *testing.T) {
	js, ok := extractJSON("Sure, here you go:\n```json\n{\"a\":1}\n```")
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(js))
}

func TestExtractJSONFirstSpan(t *testing.T) {
	js, ok := extractJSON(`some preamble {"a": [1,2,3]} trailing notes`)
	require.True(t, ok)
	require.JSONEq(t, `{"a":[1,2,3]}`, string(js))
}

func TestExtractJSONMalformed(t *testing.T) {
	_, ok := extractJSON("not json at all")
	require.False(t, ok)
}

func TestNormalizeStripsPreambleAndQuotes(t *testing.T) {
	got := normalize(`Sure, here's the answer: "hello   world"`)
	require.Equal(t, "hello world", got)
}

func TestNormalizeStripsListMarkers(t *testing.T) {
	got := normalize("1. first\n2. second")
	require.Equal(t, "first second", got)
}
