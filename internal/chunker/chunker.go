// Package chunker splits document text into bounded, overlapping chunks.
package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// Separators in priority order: paragraph, line, sentence, word, character.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker wraps a recursive character splitter with a fixed chunk size and
// overlap for its lifetime.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// New builds a chunker. Non-positive sizes fall back to the defaults; an
// overlap that is negative or not smaller than the chunk size is clamped.
func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(separators),
		),
	}
}

// Split returns the ordered chunk sequence for text. Each chunk is at most
// ChunkSize characters (barring unsplittable tokens), and consecutive chunks
// share up to ChunkOverlap characters of context.
func (c *Chunker) Split(text string) ([]string, error) {
	return c.splitter.SplitText(text)
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }

func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }
