package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ingestpipe/internal/config"
)

func TestEmbedBatchSplitsAndDegrades(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		vecs := make([][]float32, len(req.Texts))
		for i := range vecs {
			vecs[i] = []float32{1, 2, 3}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Vectors: vecs})
	}))
	defer srv.Close()

	c := New(config.Embedding{
		BaseURL:    srv.URL,
		BatchSize:  2,
		Timeout:    5 * time.Second,
		Dimensions: 3,
	})

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	require.Error(t, err)
	require.Len(t, vecs, 4)
	require.Equal(t, []float32{1, 2, 3}, vecs[0])
	require.Equal(t, []float32{0, 0, 0}, vecs[2])
}

func TestEmbedBatchEmpty(t *testing.T) {
	c := New(config.Embedding{BaseURL: "http://unused", Timeout: time.Second})
	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, vecs)
}
