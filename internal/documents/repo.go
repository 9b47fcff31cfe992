package documents

import "context"

// Repo defines persistence operations for documents. Every read and delete is
// scoped to the owning user.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Update(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, id string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, int, error)
	Search(ctx context.Context, userID, query string, limit, offset int) ([]Document, int, error)
	Delete(ctx context.Context, userID, id string) (Document, error)
	Each(ctx context.Context, fn func(Document) error) error
}

// Searcher is an external full-text index over documents.
type Searcher interface {
	IndexDocument(ctx context.Context, doc Document) error
	RemoveDocument(ctx context.Context, id string) error
	SearchIDs(ctx context.Context, userID, query string, limit, offset int) ([]string, int, error)
}
