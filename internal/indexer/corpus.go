package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"axisconnect/internal/domain"
)

// LoadCorpus reads a single paginated text corpus. Pages are separated by
// form-feed characters; a file without form feeds is one page.
func LoadCorpus(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	raw := strings.Split(string(data), "\f")
	pages := make([]domain.Page, 0, len(raw))
	num := 0
	for _, content := range raw {
		if strings.TrimSpace(content) == "" {
			continue
		}
		num++
		pages = append(pages, domain.Page{
			SourceID: sourceID,
			Number:   num,
			Content:  content,
		})
	}
	return pages, nil
}
