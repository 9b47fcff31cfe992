package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[doc.ID]; exists {
		return ErrInvalidInput
	}
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[doc.ID]
	if !ok || cur.UserID != doc.UserID {
		return ErrNotFound
	}
	r.data[doc.ID] = clone(doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

// ListByUser returns documents for a user, newest first, and the total count.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	docs := r.userDocs(userID)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return paginate(docs, limit, offset), len(docs), nil
}

// Search ranks a user's documents by weighted term occurrences in the
// original name, summary and raw text.
func (r *MemoryRepo) Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []Document{}, 0, nil
	}

	type scored struct {
		doc   Document
		score int
	}
	var hits []scored
	for _, doc := range r.userDocs(userID) {
		name := strings.ToLower(doc.OriginalName)
		summary := strings.ToLower(deref(doc.Summary))
		raw := strings.ToLower(deref(doc.RawText))
		score := 0
		for _, t := range terms {
			score += 3*strings.Count(name, t) + 2*strings.Count(summary, t) + strings.Count(raw, t)
		}
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc.CreatedAt.After(hits[j].doc.CreatedAt)
	})
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.doc)
	}
	return paginate(docs, limit, offset), len(docs), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	delete(r.data, id)
	return doc, nil
}

// Each visits every document in creation order.
func (r *MemoryRepo) Each(ctx context.Context, fn func(Document) error) error {
	r.mu.RLock()
	docs := make([]Document, 0, len(r.data))
	for _, d := range r.data {
		docs = append(docs, clone(d))
	}
	r.mu.RUnlock()
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepo) userDocs(userID string) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var docs []Document
	for _, d := range r.data {
		if d.UserID == userID {
			docs = append(docs, clone(d))
		}
	}
	return docs
}

func paginate(docs []Document, limit, offset int) []Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end]
}

func clone(d Document) Document {
	if d.MaskedFields != nil {
		d.MaskedFields = append([]string(nil), d.MaskedFields...)
	}
	return d
}

var _ Repo = (*MemoryRepo)(nil)
