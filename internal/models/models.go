package models

import (
	"fmt"
	"strings"
)

// OpResult is the result-value contract shared by index create, delete and
// upload operations. Failures are reported here, never raised, so the caller
// can show a message and keep going.
type OpResult struct {
	Success   bool   `json:"success"`
	IndexName string `json:"index_name,omitempty"`
	Count     int    `json:"count,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failure wraps an error into a failed OpResult.
func Failure(err error) OpResult {
	return OpResult{Success: false, Error: err.Error()}
}

// SearchResult is one similarity match, best-first.
type SearchResult struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Chunk   int     `json:"chunk"`
	Score   float64 `json:"score"`
}

// DocumentKey derives the index key for a chunk: the source file name with
// dots replaced by underscores, suffixed with the 0-based chunk index.
// Distinct file names that differ only in dots vs underscores collide; the
// scheme is kept as-is for compatibility with already-indexed documents.
func DocumentKey(sourceFile string, idx int) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(sourceFile, ".", "_"), idx)
}
