// Package search manages the remote vector-search index over the Azure AI
// Search REST API: schema lifecycle, batch upload and similarity queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cpa-document-processor/internal/models"
)

const (
	apiVersion = "2023-11-01"

	hnswConfigName    = "hnsw-config"
	vectorProfileName = "vector-profile"

	// HNSW parameters for the cosine-similarity graph index.
	hnswM              = 4
	hnswEfConstruction = 400
	hnswEfSearch       = 500
)

type Client struct {
	endpoint  string
	apiKey    string
	indexName string
	httpc     *http.Client
}

// NewClient validates the credentials and returns a client bound to one index.
func NewClient(endpoint, apiKey, indexName string) (*Client, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errors.New("missing search service endpoint or API key")
	}
	if indexName == "" {
		indexName = "cpa-documents"
	}
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		apiKey:    apiKey,
		indexName: indexName,
		httpc:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *Client) IndexName() string { return c.indexName }

type field struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

type hnswParameters struct {
	M              int    `json:"m"`
	EfConstruction int    `json:"efConstruction"`
	EfSearch       int    `json:"efSearch"`
	Metric         string `json:"metric"`
}

type algorithm struct {
	Name           string         `json:"name"`
	Kind           string         `json:"kind"`
	HnswParameters hnswParameters `json:"hnswParameters"`
}

type profile struct {
	Name      string `json:"name"`
	Algorithm string `json:"algorithm"`
}

type vectorSearch struct {
	Algorithms []algorithm `json:"algorithms"`
	Profiles   []profile   `json:"profiles"`
}

type indexSchema struct {
	Name         string       `json:"name"`
	Fields       []field      `json:"fields"`
	VectorSearch vectorSearch `json:"vectorSearch"`
}

// CreateIndex defines or replaces the index schema for the given embedding
// dimension. Failures are reported in the result value, never raised.
func (c *Client) CreateIndex(ctx context.Context, dimension int) models.OpResult {
	schema := indexSchema{
		Name: c.indexName,
		Fields: []field{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "content", Type: "Edm.String", Searchable: true},
			{Name: "source_file", Type: "Edm.String", Searchable: true, Filterable: true},
			{Name: "chunk_index", Type: "Edm.Int32", Filterable: true},
			{Name: "upload_date", Type: "Edm.DateTimeOffset", Filterable: true},
			{
				Name:                "content_vector",
				Type:                "Collection(Edm.Single)",
				Searchable:          true,
				Dimensions:          dimension,
				VectorSearchProfile: vectorProfileName,
			},
		},
		VectorSearch: vectorSearch{
			Algorithms: []algorithm{{
				Name: hnswConfigName,
				Kind: "hnsw",
				HnswParameters: hnswParameters{
					M:              hnswM,
					EfConstruction: hnswEfConstruction,
					EfSearch:       hnswEfSearch,
					Metric:         "cosine",
				},
			}},
			Profiles: []profile{{Name: vectorProfileName, Algorithm: hnswConfigName}},
		},
	}

	url := fmt.Sprintf("%s/indexes/%s?api-version=%s", c.endpoint, c.indexName, apiVersion)
	if err := c.do(ctx, http.MethodPut, url, schema, nil); err != nil {
		return models.Failure(fmt.Errorf("error creating index: %w", err))
	}

	return models.OpResult{
		Success:   true,
		IndexName: c.indexName,
		Message:   fmt.Sprintf("Index '%s' created/updated successfully", c.indexName),
	}
}

// DeleteIndex removes the entire index, all documents included. A missing
// index is reported as a failure, not raised.
func (c *Client) DeleteIndex(ctx context.Context) models.OpResult {
	url := fmt.Sprintf("%s/indexes/%s?api-version=%s", c.endpoint, c.indexName, apiVersion)
	if err := c.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return models.Failure(fmt.Errorf("error deleting index: %w", err))
	}
	return models.OpResult{
		Success:   true,
		IndexName: c.indexName,
		Message:   fmt.Sprintf("Index '%s' deleted successfully", c.indexName),
	}
}

type indexedDocument struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	SourceFile    string    `json:"source_file"`
	ChunkIndex    int       `json:"chunk_index"`
	UploadDate    string    `json:"upload_date"`
	ContentVector []float32 `json:"content_vector"`
}

// UploadDocuments builds one indexed document per chunk and upserts the whole
// batch in a single call. Every document in the batch carries the same upload
// timestamp. A chunk/embedding length mismatch fails before any network call.
func (c *Client) UploadDocuments(ctx context.Context, chunks []string, embeddings [][]float32, sourceFile string) models.OpResult {
	if len(chunks) != len(embeddings) {
		return models.Failure(errors.New("number of chunks must match number of embeddings"))
	}
	if len(chunks) == 0 {
		return models.Failure(errors.New("no documents to upload"))
	}

	uploadTime := time.Now().UTC().Format(time.RFC3339)
	docs := make([]indexedDocument, len(chunks))
	for idx, chunk := range chunks {
		docs[idx] = indexedDocument{
			Action:        "mergeOrUpload",
			ID:            models.DocumentKey(sourceFile, idx),
			Content:       chunk,
			SourceFile:    sourceFile,
			ChunkIndex:    idx,
			UploadDate:    uploadTime,
			ContentVector: embeddings[idx],
		}
	}

	var resp struct {
		Value []struct {
			Key          string `json:"key"`
			Status       bool   `json:"status"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"value"`
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.indexName, apiVersion)
	if err := c.do(ctx, http.MethodPost, url, map[string]any{"value": docs}, &resp); err != nil {
		return models.Failure(fmt.Errorf("error uploading documents: %w", err))
	}
	for _, r := range resp.Value {
		if !r.Status {
			return models.Failure(fmt.Errorf("error uploading document '%s': %s", r.Key, r.ErrorMessage))
		}
	}

	log.Info().Int("count", len(docs)).Str("index", c.indexName).Msg("Uploaded documents")
	return models.OpResult{
		Success:   true,
		Count:     len(docs),
		IndexName: c.indexName,
		Message:   fmt.Sprintf("Uploaded %d documents successfully", len(docs)),
	}
}

// SearchSimilar runs a pure vector nearest-neighbor query and returns results
// best-match-first. Unlike the other operations, failures propagate to the
// caller.
func (c *Client) SearchSimilar(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	query := map[string]any{
		"select": "content,source_file,chunk_index",
		"vectorQueries": []map[string]any{{
			"kind":   "vector",
			"vector": queryVector,
			"fields": "content_vector",
			"k":      topK,
		}},
	}

	var resp struct {
		Value []struct {
			Content    string  `json:"content"`
			SourceFile string  `json:"source_file"`
			ChunkIndex int     `json:"chunk_index"`
			Score      float64 `json:"@search.score"`
		} `json:"value"`
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.indexName, apiVersion)
	if err := c.do(ctx, http.MethodPost, url, query, &resp); err != nil {
		return nil, fmt.Errorf("error searching documents: %w", err)
	}

	results := make([]models.SearchResult, len(resp.Value))
	for i, v := range resp.Value {
		results[i] = models.SearchResult{
			Content: v.Content,
			Source:  v.SourceFile,
			Chunk:   v.ChunkIndex,
			Score:   v.Score,
		}
	}
	return results, nil
}

// do sends one JSON request and decodes the response into out when given.
// Non-2xx statuses become errors carrying the response body.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed: %d, %s", resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
