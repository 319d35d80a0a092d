package chunker

import (
	"strings"

	"github.com/google/uuid"

	"axisconnect/internal/domain"
)

// DefaultMaxChars is the default maximum chunk length in characters.
const DefaultMaxChars = 2000

// DefaultOverlapChars is the default overlap between consecutive chunks.
const DefaultOverlapChars = 200

// CharChunker splits page text into fixed-size chunks with overlap so
// retrieval does not lose context at chunk boundaries.
type CharChunker struct {
	maxChars     int
	overlapChars int
}

func NewCharChunker(maxChars, overlapChars int) *CharChunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlapChars < 0 {
		overlapChars = DefaultOverlapChars
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 4
	}
	return &CharChunker{maxChars: maxChars, overlapChars: overlapChars}
}

// Chunk splits a page into rune-bounded chunks of at most maxChars,
// consecutive chunks sharing overlapChars characters.
func (c *CharChunker) Chunk(page domain.Page) ([]domain.Chunk, error) {
	content := strings.TrimSpace(page.Content)
	if content == "" {
		return nil, nil
	}
	runes := []rune(content)
	step := c.maxChars - c.overlapChars
	var chunks []domain.Chunk
	idx := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			SourceID: page.SourceID,
			Text:     string(runes[start:end]),
			Index:    idx,
			Page:     page.Number,
		})
		idx++
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
