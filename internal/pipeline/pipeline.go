// Package pipeline sequences extraction, chunking, embedding and upload for
// one document at a time, producing a human-readable status trace.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cpa-document-processor/internal/chunker"
	"cpa-document-processor/internal/extractor"
	"cpa-document-processor/internal/models"
	"cpa-document-processor/internal/runlog"
)

// Embedder is the slice of the embedding handle the pipeline needs.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Indexer is implemented by both the remote search client and the local
// fallback store.
type Indexer interface {
	CreateIndex(ctx context.Context, dimension int) models.OpResult
	DeleteIndex(ctx context.Context) models.OpResult
	UploadDocuments(ctx context.Context, chunks []string, embeddings [][]float32, sourceFile string) models.OpResult
	SearchSimilar(ctx context.Context, queryVector []float32, topK int) ([]models.SearchResult, error)
	IndexName() string
}

type Pipeline struct {
	chunker  *chunker.Chunker
	embedder Embedder
	indexer  Indexer
	runs     *runlog.Store // nil disables run logging
}

func New(ch *chunker.Chunker, emb Embedder, idx Indexer, runs *runlog.Store) *Pipeline {
	return &Pipeline{chunker: ch, embedder: emb, indexer: idx, runs: runs}
}

// ProcessDocument runs extract → chunk → embed → upload for one file and
// returns the accumulated status text. A failure at any stage halts the run
// immediately; no partial upload is attempted.
func (p *Pipeline) ProcessDocument(ctx context.Context, filePath string) string {
	started := time.Now().UTC()
	fileName := filepath.Base(filePath)

	var status strings.Builder
	fmt.Fprintf(&status, "📄 Processing: %s\n\n", fileName)

	status.WriteString("⏳ Extracting text...\n")
	text, err := extractor.Extract(filePath)
	if err != nil {
		return p.fail(ctx, &status, fileName, started, 0, err)
	}
	if text == "" {
		return p.fail(ctx, &status, fileName, started, 0,
			errors.New("could not extract text from document"))
	}
	fmt.Fprintf(&status, "✅ Extracted %d characters\n\n", len(text))

	status.WriteString("⏳ Chunking text...\n")
	chunks, err := p.chunker.Split(text)
	if err != nil {
		return p.fail(ctx, &status, fileName, started, 0, fmt.Errorf("error chunking text: %w", err))
	}
	if len(chunks) == 0 {
		return p.fail(ctx, &status, fileName, started, 0, errors.New("no chunks produced"))
	}
	fmt.Fprintf(&status, "✅ Created %d chunks\n\n", len(chunks))

	status.WriteString("⏳ Generating embeddings...\n")
	embeds, err := p.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return p.fail(ctx, &status, fileName, started, len(chunks), err)
	}
	fmt.Fprintf(&status, "✅ Generated %d embeddings\n\n", len(embeds))

	status.WriteString("⏳ Uploading to search index...\n")
	result := p.indexer.UploadDocuments(ctx, chunks, embeds, fileName)
	if !result.Success {
		return p.fail(ctx, &status, fileName, started, len(chunks),
			fmt.Errorf("upload failed: %s", result.Error))
	}
	fmt.Fprintf(&status, "✅ Successfully uploaded %d documents\n", result.Count)
	fmt.Fprintf(&status, "📊 Index: %s\n", result.IndexName)

	p.record(ctx, fileName, len(chunks), started, "")
	return status.String()
}

// CreateIndex defines or replaces the index schema using the embedder's
// dimension, returning a display string.
func (p *Pipeline) CreateIndex(ctx context.Context) string {
	result := p.indexer.CreateIndex(ctx, p.embedder.Dimension())
	if !result.Success {
		return fmt.Sprintf("❌ Error creating index: %s", result.Error)
	}
	return fmt.Sprintf("✅ Index '%s' created successfully", result.IndexName)
}

// DeleteIndex removes the index, returning a display string.
func (p *Pipeline) DeleteIndex(ctx context.Context) string {
	result := p.indexer.DeleteIndex(ctx)
	if !result.Success {
		return fmt.Sprintf("❌ Error deleting index: %s", result.Error)
	}
	return fmt.Sprintf("✅ %s", result.Message)
}

// Query embeds the query text and returns the nearest chunks best-first.
// Search failures propagate; the caller must handle them.
func (p *Pipeline) Query(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	vector, err := p.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.indexer.SearchSimilar(ctx, vector, topK)
}

func (p *Pipeline) fail(ctx context.Context, status *strings.Builder, fileName string, started time.Time, chunks int, err error) string {
	fmt.Fprintf(status, "❌ Error: %v\n", err)
	p.record(ctx, fileName, chunks, started, err.Error())
	return status.String()
}

// record writes the run to the log when configured. Log failures never fail
// the run itself.
func (p *Pipeline) record(ctx context.Context, fileName string, chunks int, started time.Time, errMsg string) {
	if p.runs == nil {
		return
	}
	run := &runlog.Run{
		SourceFile: fileName,
		Chunks:     chunks,
		Status:     runlog.StatusDone,
		Error:      errMsg,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if errMsg != "" {
		run.Status = runlog.StatusError
	}
	if err := p.runs.Record(ctx, run); err != nil {
		log.Warn().Err(err).Str("file", fileName).Msg("Failed to record ingestion run")
	}
}
