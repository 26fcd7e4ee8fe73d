// Package localindex is an embedded chromem-go fallback for the remote
// search index, used when no search service endpoint is configured. It
// mirrors the index client's operations so the pipeline works offline.
package localindex

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"cpa-document-processor/internal/models"
)

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

// Open creates or reopens a persistent store at path.
func Open(path, collection string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open local index: %w", err)
	}
	return &Store{db: db, name: collection}, nil
}

func (s *Store) IndexName() string { return s.name }

func (s *Store) ensureCollection() error {
	if s.collection != nil {
		return nil
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	s.collection = c
	return nil
}

// CreateIndex makes sure the collection exists. The dimension is recorded by
// chromem from the first document, so it is only logged here.
func (s *Store) CreateIndex(ctx context.Context, dimension int) models.OpResult {
	if err := s.ensureCollection(); err != nil {
		return models.Failure(err)
	}
	log.Debug().Int("dimension", dimension).Str("collection", s.name).Msg("Local index ready")
	return models.OpResult{
		Success:   true,
		IndexName: s.name,
		Message:   fmt.Sprintf("Index '%s' created/updated successfully", s.name),
	}
}

// DeleteIndex drops the whole collection and its documents.
func (s *Store) DeleteIndex(ctx context.Context) models.OpResult {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return models.Failure(fmt.Errorf("error deleting index: %w", err))
	}
	s.collection = nil
	return models.OpResult{
		Success:   true,
		IndexName: s.name,
		Message:   fmt.Sprintf("Index '%s' deleted successfully", s.name),
	}
}

// UploadDocuments stores one document per chunk with the same key derivation
// and metadata fields as the remote index.
func (s *Store) UploadDocuments(ctx context.Context, chunks []string, embeddings [][]float32, sourceFile string) models.OpResult {
	if len(chunks) != len(embeddings) {
		return models.Failure(errors.New("number of chunks must match number of embeddings"))
	}
	if len(chunks) == 0 {
		return models.Failure(errors.New("no documents to upload"))
	}
	if err := s.ensureCollection(); err != nil {
		return models.Failure(err)
	}

	uploadTime := time.Now().UTC().Format(time.RFC3339)
	docs := make([]chromem.Document, len(chunks))
	for idx, chunk := range chunks {
		docs[idx] = chromem.Document{
			ID:      models.DocumentKey(sourceFile, idx),
			Content: chunk,
			Metadata: map[string]string{
				"source_file": sourceFile,
				"chunk_index": strconv.Itoa(idx),
				"upload_date": uploadTime,
			},
			Embedding: embeddings[idx],
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return models.Failure(fmt.Errorf("error uploading documents: %w", err))
	}

	return models.OpResult{
		Success:   true,
		Count:     len(docs),
		IndexName: s.name,
		Message:   fmt.Sprintf("Uploaded %d documents successfully", len(docs)),
	}
}

// SearchSimilar runs a nearest-neighbor query against the collection.
// Failures propagate to the caller, matching the remote client's contract.
func (s *Store) SearchSimilar(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	if err := s.ensureCollection(); err != nil {
		return nil, fmt.Errorf("error searching documents: %w", err)
	}

	// chromem rejects queries asking for more results than documents stored
	if count := s.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	matches, err := s.collection.QueryEmbedding(ctx, queryVector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("error searching documents: %w", err)
	}

	results := make([]models.SearchResult, len(matches))
	for i, m := range matches {
		chunkIdx, _ := strconv.Atoi(m.Metadata["chunk_index"])
		results[i] = models.SearchResult{
			Content: m.Content,
			Source:  m.Metadata["source_file"],
			Chunk:   chunkIdx,
			Score:   float64(m.Similarity),
		}
	}
	return results, nil
}
