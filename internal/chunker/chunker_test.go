package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildText(paragraphs, sentencesPer int) string {
	var b strings.Builder
	for p := 0; p < paragraphs; p++ {
		if p > 0 {
			b.WriteString("\n\n")
		}
		for s := 0; s < sentencesPer; s++ {
			if s > 0 {
				b.WriteString(". ")
			}
			b.WriteString("the quick brown fox jumps over the lazy dog")
		}
	}
	return b.String()
}

func TestSplitRespectsChunkSize(t *testing.T) {
	text := buildText(6, 10)
	require.Greater(t, len(text), 2500)

	c := New(1000, 200)
	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 3)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 1000, "chunk %d too large", i)
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestSplitKeepsContentAndOrder(t *testing.T) {
	text := buildText(5, 8)

	c := New(500, 100)
	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// every chunk is a verbatim span of the source, in document order
	lastStart := 0
	for i, chunk := range chunks {
		idx := strings.Index(text[lastStart:], chunk)
		require.GreaterOrEqual(t, idx, 0, "chunk %d not found after previous chunk", i)
		lastStart += idx + 1
	}

	// the tail of the document is not dropped
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))
}

func TestSplitShortText(t *testing.T) {
	c := New(1000, 200)
	chunks, err := c.Split("just one small paragraph")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just one small paragraph", chunks[0])
}

func TestNewClampsBadConfig(t *testing.T) {
	c := New(0, -5)
	assert.Equal(t, DefaultChunkSize, c.ChunkSize())
	assert.Equal(t, DefaultChunkSize/5, c.ChunkOverlap())

	c = New(100, 100)
	assert.Equal(t, 100, c.ChunkSize())
	assert.Equal(t, 20, c.ChunkOverlap())
}
