package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axisconnect/internal/domain"
)

func TestChunkBoundedSize(t *testing.T) {
	c := NewCharChunker(100, 20)
	page := domain.Page{SourceID: "policies", Number: 1, Content: strings.Repeat("a", 450)}

	chunks, err := c.Chunk(page)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 100)
	}
}

func TestChunkOverlap(t *testing.T) {
	c := NewCharChunker(100, 20)
	// Distinct characters so overlap is observable.
	var b strings.Builder
	for i := 0; i < 250; i++ {
		b.WriteRune(rune('A' + i%26))
	}
	chunks, err := c.Chunk(domain.Page{SourceID: "policies", Content: b.String()})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-20:])
		head := string(cur[:20])
		assert.Equal(t, tail, head, "consecutive chunks share the overlap window")
	}
}

func TestChunkOrdinals(t *testing.T) {
	c := NewCharChunker(50, 10)
	chunks, err := c.Chunk(domain.Page{SourceID: "policies", Number: 3, Content: strings.Repeat("x", 200)})
	require.NoError(t, err)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, 3, ch.Page)
		assert.Equal(t, "policies", ch.SourceID)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestChunkEmptyPage(t *testing.T) {
	c := NewCharChunker(100, 20)
	chunks, err := c.Chunk(domain.Page{Content: "   \n  "})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkShortPageSingleChunk(t *testing.T) {
	c := NewCharChunker(2000, 200)
	chunks, err := c.Chunk(domain.Page{SourceID: "p", Content: "Leave policy: employees get 20 days annual leave."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Leave policy: employees get 20 days annual leave.", chunks[0].Text)
}

func TestOverlapClampedBelowMax(t *testing.T) {
	c := NewCharChunker(100, 100)
	assert.Equal(t, 25, c.overlapChars)
}
