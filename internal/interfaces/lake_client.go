package interfaces

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

// LakeClient talks to the content lake's document, query, and embedding
// APIs. All calls carry the repository header and a bearer token obtained
// from the lake's identity provider.
type LakeClient interface {
	// GetDocument fetches a document by id.
	GetDocument(ctx context.Context, id string) (*models.LakeDocument, error)

	// CreateDocument creates a document at the given absolute lake path.
	// Returns the created document with its assigned id.
	CreateDocument(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error)

	// UpdateDocument replaces an existing document's content with doc.
	UpdateDocument(ctx context.Context, id string, doc *models.LakeDocument) (*models.LakeDocument, error)

	// UpdateFields replaces only the named fields of an existing document.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error

	// PatchDocument applies a JSON Patch to a document.
	PatchDocument(ctx context.Context, id string, patch []models.PatchOp) error

	// DeleteDocument removes a document by id.
	DeleteDocument(ctx context.Context, id string) error

	// ExistsByPath reports whether a document exists at the given lake path.
	ExistsByPath(ctx context.Context, path string) (bool, error)

	// EnsureFolder creates the folder hierarchy for the given absolute path,
	// treating already-existing segments as success.
	EnsureFolder(ctx context.Context, path string) error

	// FindBySourceID locates the lake document ingested from the given
	// source node id, or nil when none exists.
	FindBySourceID(ctx context.Context, sourceNodeID string) (*models.LakeDocument, error)

	// Query runs an HXQL query.
	Query(ctx context.Context, q models.LakeQuery) (*models.LakeQueryResult, error)

	// VectorSearch runs a kNN search over stored chunk embeddings.
	VectorSearch(ctx context.Context, q models.VectorQuery) (*models.VectorSearchResult, error)

	// UpdateEmbeddings replaces the embeddings stored on a document, adding
	// the embedding mixin first when the document does not carry it yet.
	UpdateEmbeddings(ctx context.Context, id string, embeddings []models.Embedding) error

	// DeleteEmbeddings clears stored embeddings. A document without the
	// embedding mixin is left untouched.
	DeleteEmbeddings(ctx context.Context, id string) error
}

// ModelProvisioner makes sure the lake's repository model contains the
// schema fragments ingestion depends on. Provisioning is add-only and
// idempotent.
type ModelProvisioner interface {
	// EnsureModel diffs the desired fragments against the live model,
	// applies the missing pieces, and verifies the result.
	EnsureModel(ctx context.Context) error
}
