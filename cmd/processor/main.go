package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cpa-document-processor/internal/chunker"
	"cpa-document-processor/internal/config"
	"cpa-document-processor/internal/embedding"
	"cpa-document-processor/internal/localindex"
	"cpa-document-processor/internal/models"
	"cpa-document-processor/internal/pipeline"
	"cpa-document-processor/internal/runlog"
	"cpa-document-processor/internal/search"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document to process")
	query := flag.String("query", "", "Similarity query to run against the index")
	topK := flag.Int("top", 5, "Number of query results to return")
	createIndex := flag.Bool("create-index", false, "Create or update the search index")
	deleteIndex := flag.Bool("delete-index", false, "Delete the search index")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *filePath == "" && *query == "" && !*createIndex && !*deleteIndex {
		log.Fatal().Msg("Provide -file, -query, -create-index or -delete-index")
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	indexer, err := newIndexer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing index client")
	}

	var runs *runlog.Store
	if cfg.RunLog.DSN != "" {
		runs, err = runlog.Connect(ctx, &cfg.RunLog)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to run log")
		}
		defer runs.Close()
	}

	ch := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	p := pipeline.New(ch, embedder, indexer, runs)

	switch {
	case *createIndex:
		fmt.Println(p.CreateIndex(ctx))
	case *deleteIndex:
		fmt.Println(p.DeleteIndex(ctx))
	case *filePath != "":
		fmt.Println(p.ProcessDocument(ctx, *filePath))
	case *query != "":
		results, err := p.Query(ctx, *query, *topK)
		if err != nil {
			log.Fatal().Err(err).Msg("Error searching documents")
		}
		printResults(*query, results)
	}
}

// newIndexer picks the remote search client when an endpoint is configured,
// the embedded local index otherwise.
func newIndexer(cfg *config.Config) (pipeline.Indexer, error) {
	if cfg.Search.Endpoint != "" {
		log.Debug().Str("endpoint", cfg.Search.Endpoint).Str("index", cfg.Search.IndexName).Msg("Using remote search index")
		return search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.IndexName)
	}
	log.Debug().Str("path", cfg.LocalIndex.Path).Msg("No search endpoint configured, using local index")
	return localindex.Open(cfg.LocalIndex.Path, cfg.LocalIndex.Collection)
}

func printResults(query string, results []models.SearchResult) {
	fmt.Printf("Query: %s\n\n", query)
	if len(results) == 0 {
		fmt.Println("No matching documents")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s (chunk %d, score %.4f)\n", i+1, r.Source, r.Chunk, r.Score)
		fmt.Printf("   %s\n\n", snippet(r.Content, 200))
	}
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
