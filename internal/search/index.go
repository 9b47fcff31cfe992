// Package search keeps a bleve full-text index of documents. The index holds
// ids and searchable text only; records are always read back from the repo.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	regexpchar "github.com/blevesearch/bleve/v2/analysis/char/regexp"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"docsense-backend/internal/documents"
)

const (
	nameBoost    = 3.0
	summaryBoost = 2.0

	// filenameAnalyzer splits names like "q3_invoice-final.pdf" into words
	// before the English filters run.
	filenameAnalyzer   = "filename"
	filenameSeparators = "filename_separators"
)

// Index wraps a bleve index.
type Index struct {
	path  string
	mu    sync.RWMutex
	index bleve.Index
}

type indexedDocument struct {
	UserID       string
	OriginalName string
	Summary      string
	RawText      string
	DocumentType string
}

// Open opens or creates the index at path. An empty path gives an in-memory
// index.
func Open(path string) (*Index, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		idx, err := create("")
		if err != nil {
			return nil, err
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = create(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{path: path, index: idx}, nil
}

func create(path string) (bleve.Index, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	if path == "" {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return idx, nil
	}
	idx, err := bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return idx, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomCharFilter(filenameSeparators, map[string]interface{}{
		"type":    regexpchar.Name,
		"regexp":  `[._\-]+`,
		"replace": " ",
	})
	if err != nil {
		return nil, fmt.Errorf("register char filter: %w", err)
	}
	err = indexMapping.AddCustomAnalyzer(filenameAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{filenameSeparators},
		"tokenizer":     unicode.Name,
		"token_filters": []string{en.PossessiveName, lowercase.Name, en.StopName, porter.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("register filename analyzer: %w", err)
	}

	ownerMapping := bleve.NewTextFieldMapping()
	ownerMapping.Analyzer = keyword.Name

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = filenameAnalyzer

	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("UserID", ownerMapping)
	docMapping.AddFieldMappingsAt("DocumentType", ownerMapping)
	docMapping.AddFieldMappingsAt("OriginalName", nameMapping)
	docMapping.AddFieldMappingsAt("Summary", textMapping)
	docMapping.AddFieldMappingsAt("RawText", textMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// Close closes the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

func toIndexed(doc documents.Document) indexedDocument {
	out := indexedDocument{
		UserID:       doc.UserID,
		OriginalName: doc.OriginalName,
		DocumentType: doc.DocumentType,
	}
	if doc.Summary != nil {
		out.Summary = *doc.Summary
	}
	if doc.RawText != nil {
		out.RawText = *doc.RawText
	}
	return out
}

// IndexDocument adds or replaces doc.
func (i *Index) IndexDocument(ctx context.Context, doc documents.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Index(doc.ID, toIndexed(doc))
}

// RemoveDocument deletes id from the index.
func (i *Index) RemoveDocument(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(id)
}

// SearchIDs returns ids of userID's documents matching text, best first, plus
// the total number of hits.
func (i *Index) SearchIDs(ctx context.Context, userID, text string, limit, offset int) ([]string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, 0, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	owner := bleve.NewTermQuery(userID)
	owner.SetField("UserID")

	name := bleve.NewMatchQuery(text)
	name.SetField("OriginalName")
	name.SetBoost(nameBoost)
	summary := bleve.NewMatchQuery(text)
	summary.SetField("Summary")
	summary.SetBoost(summaryBoost)
	raw := bleve.NewMatchQuery(text)
	raw.SetField("RawText")

	q := bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery([]query.Query{name, summary, raw}...))
	req := bleve.NewSearchRequestOptions(q, limit, offset, false)

	i.mu.RLock()
	res, err := i.index.SearchInContext(ctx, req)
	i.mu.RUnlock()
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, int(res.Total), nil
}

// Reset drops every entry by recreating the index with the current mapping.
// An on-disk index is removed and created again at the same path.
func (i *Index) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if i.path != "" {
		if err := os.RemoveAll(i.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
	}
	idx, err := create(i.path)
	if err != nil {
		return err
	}
	i.index = idx
	return nil
}

// IndexBatch adds or replaces docs in a single batch.
func (i *Index) IndexBatch(docs []documents.Document) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	batch := i.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, toIndexed(doc)); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index content with docs.
func (i *Index) Rebuild(docs []documents.Document) error {
	if err := i.Reset(); err != nil {
		return err
	}
	return i.IndexBatch(docs)
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

var _ documents.Searcher = (*Index)(nil)
