package library

import (
	"strings"

	"github.com/blevesearch/bleve"
)

// SearchHit is one full-text match against the library.
type SearchHit struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

type indexDoc struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// Index is an in-memory full-text index over the library, rebuilt from the
// loaded aggregate whenever it changes.
type Index struct {
	idx  bleve.Index
	docs map[string]indexDoc
}

// BuildIndex indexes every source, draft and note of the library.
func BuildIndex(lib Library) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	ix := &Index{idx: idx, docs: make(map[string]indexDoc)}
	for _, s := range lib.Sources {
		if err := ix.add(s.ID, string(CategorySources), s.Title, s.Content); err != nil {
			return nil, err
		}
	}
	for _, d := range lib.Drafts {
		if err := ix.add(d.ID, string(CategoryDrafts), d.Title, d.Content); err != nil {
			return nil, err
		}
	}
	for _, n := range lib.Notes {
		if err := ix.add(n.ID, string(CategoryNotes), n.Title, n.Content); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

func (ix *Index) add(id, category, title, content string) error {
	doc := indexDoc{Category: category, Title: title, Content: content}
	ix.docs[id] = doc
	return ix.idx.Index(id, doc)
}

// Search runs a query-string search and returns up to k hits with snippets.
func (ix *Index) Search(q string, k int) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), k, 0, false)
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, err
	}
	var out []SearchHit
	for _, hit := range res.Hits {
		doc := ix.docs[hit.ID]
		out = append(out, SearchHit{
			ID:       hit.ID,
			Category: doc.Category,
			Title:    doc.Title,
			Snippet:  snippet(doc.Content),
			Score:    hit.Score,
		})
	}
	return out, nil
}

func (ix *Index) Close() error { return ix.idx.Close() }

func snippet(s string) string {
	s = strings.TrimSpace(s)
	const max = 200
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "…"
}
