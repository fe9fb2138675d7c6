package interfaces

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

// SourceClient talks to the source content repository's REST API using the
// configured service account. Discovery, content download, and authority
// expansion all go through here.
type SourceClient interface {
	// GetNodeByPath resolves a repository path (relative to the root) to a node.
	GetNodeByPath(ctx context.Context, path string) (*models.SourceNode, error)

	// GetNode fetches a node by id including path, permission, and content fields.
	GetNode(ctx context.Context, nodeID string) (*models.SourceNode, error)

	// ListChildren pages through the children of a folder node and returns
	// the full listing.
	ListChildren(ctx context.Context, nodeID string) ([]models.SourceNode, error)

	// DownloadContent streams a file node's content into the given local file.
	DownloadContent(ctx context.Context, nodeID, destPath string) error

	// ListUserGroups returns the group authority ids the user belongs to.
	ListUserGroups(ctx context.Context, username string) ([]string, error)

	// RepositoryID returns the stable identifier of the source repository,
	// discovered once and cached.
	RepositoryID(ctx context.Context) (string, error)
}

// SourceAuthenticator validates caller credentials against the source
// repository. Used by the HTTP auth middleware, not by ingestion.
type SourceAuthenticator interface {
	// IssueTicket exchanges a username and password for an auth ticket.
	IssueTicket(ctx context.Context, username, password string) (string, error)

	// ValidateTicket resolves a ticket back to the username it was issued for.
	ValidateTicket(ctx context.Context, ticket string) (string, error)
}
