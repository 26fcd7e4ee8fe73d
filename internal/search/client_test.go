package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c, err := NewClient(ts.URL, "test-key", "test-index")
	require.NoError(t, err)
	return c, ts
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "key", "idx")
	require.Error(t, err)

	_, err = NewClient("https://example.search.windows.net", "", "idx")
	require.Error(t, err)

	c, err := NewClient("https://example.search.windows.net/", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "cpa-documents", c.IndexName())
}

func TestCreateIndex(t *testing.T) {
	var schema indexSchema
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/indexes/test-index", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&schema))
		w.WriteHeader(http.StatusCreated)
	})

	result := c.CreateIndex(context.Background(), 384)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "test-index", result.IndexName)

	assert.Equal(t, "test-index", schema.Name)
	require.Len(t, schema.Fields, 6)
	assert.True(t, schema.Fields[0].Key)
	assert.Equal(t, "id", schema.Fields[0].Name)

	vector := schema.Fields[5]
	assert.Equal(t, "content_vector", vector.Name)
	assert.Equal(t, "Collection(Edm.Single)", vector.Type)
	assert.Equal(t, 384, vector.Dimensions)
	assert.Equal(t, "vector-profile", vector.VectorSearchProfile)

	require.Len(t, schema.VectorSearch.Algorithms, 1)
	algo := schema.VectorSearch.Algorithms[0]
	assert.Equal(t, "hnsw", algo.Kind)
	assert.Equal(t, 4, algo.HnswParameters.M)
	assert.Equal(t, 400, algo.HnswParameters.EfConstruction)
	assert.Equal(t, 500, algo.HnswParameters.EfSearch)
	assert.Equal(t, "cosine", algo.HnswParameters.Metric)
}

func TestCreateIndexFailureIsReported(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"forbidden"}}`, http.StatusForbidden)
	})

	result := c.CreateIndex(context.Background(), 384)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "403")
}

func TestDeleteIndex(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/indexes/test-index", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	result := c.DeleteIndex(context.Background())
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "deleted")
}

func TestDeleteMissingIndexIsReported(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	result := c.DeleteIndex(context.Background())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestUploadDocuments(t *testing.T) {
	var batch struct {
		Value []indexedDocument `json:"value"`
	}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/test-index/docs/index", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))

		type status struct {
			Key    string `json:"key"`
			Status bool   `json:"status"`
		}
		statuses := make([]status, len(batch.Value))
		for i, doc := range batch.Value {
			statuses[i] = status{Key: doc.ID, Status: true}
		}
		json.NewEncoder(w).Encode(map[string]any{"value": statuses})
	})

	chunks := []string{"first", "second", "third"}
	embeddings := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	result := c.UploadDocuments(context.Background(), chunks, embeddings, "report.pdf")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, "test-index", result.IndexName)

	require.Len(t, batch.Value, 3)
	for i, doc := range batch.Value {
		assert.Equal(t, "mergeOrUpload", doc.Action)
		assert.Equal(t, fmt.Sprintf("report_pdf_%d", i), doc.ID)
		assert.Equal(t, i, doc.ChunkIndex)
		assert.Equal(t, "report.pdf", doc.SourceFile)
		assert.Equal(t, batch.Value[0].UploadDate, doc.UploadDate, "batch must share one timestamp")
	}
}

func TestUploadDocumentsLengthMismatch(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	result := c.UploadDocuments(context.Background(), []string{"a", "b"}, [][]float32{{1}}, "report.pdf")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "must match")
	assert.False(t, called, "mismatch must fail before any network call")
}

func TestUploadDocumentsPartialFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
			{"key": "report_pdf_0", "status": true},
			{"key": "report_pdf_1", "status": false, "errorMessage": "quota exceeded"},
		}})
	})

	result := c.UploadDocuments(context.Background(), []string{"a", "b"}, [][]float32{{1}, {2}}, "report.pdf")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "quota exceeded")
}

func TestSearchSimilar(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/test-index/docs/search", r.URL.Path)

		var query struct {
			Select        string `json:"select"`
			VectorQueries []struct {
				Kind   string    `json:"kind"`
				Vector []float32 `json:"vector"`
				Fields string    `json:"fields"`
				K      int       `json:"k"`
			} `json:"vectorQueries"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		require.Len(t, query.VectorQueries, 1)
		assert.Equal(t, "vector", query.VectorQueries[0].Kind)
		assert.Equal(t, "content_vector", query.VectorQueries[0].Fields)
		assert.Equal(t, 2, query.VectorQueries[0].K)

		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{
			{"content": "best match", "source_file": "a.pdf", "chunk_index": 3, "@search.score": 0.92},
			{"content": "second", "source_file": "b.pdf", "chunk_index": 0, "@search.score": 0.71},
		}})
	})

	results, err := c.SearchSimilar(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "best match", results[0].Content)
	assert.Equal(t, "a.pdf", results[0].Source)
	assert.Equal(t, 3, results[0].Chunk)
	assert.InDelta(t, 0.92, results[0].Score, 1e-9)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchSimilarPropagatesFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.SearchSimilar(context.Background(), []float32{0.1}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error searching documents")
}
