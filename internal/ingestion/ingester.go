package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/clients/lake"
	"github.com/ternarybob/lacuna/internal/clients/source"
	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// MetadataIngester materializes source nodes as lake documents. Phase one
// of ingestion: only metadata and the ACL are written here, content is
// transformed later by the worker pool.
type MetadataIngester struct {
	source     interfaces.SourceClient
	lake       interfaces.LakeClient
	targetPath string
	logger     arbor.ILogger
}

// NewMetadataIngester creates the ingester. targetPath is the lake folder
// the repository tree is mirrored under.
func NewMetadataIngester(src interfaces.SourceClient, lk interfaces.LakeClient, cfg common.LakeConfig) *MetadataIngester {
	return &MetadataIngester{
		source:     src,
		lake:       lk,
		targetPath: cfg.TargetPath,
		logger:     common.GetLogger(),
	}
}

// RootPath returns the lake folder all documents from the source repository
// land under: <targetPath>/<repositoryId>.
func (m *MetadataIngester) RootPath(ctx context.Context) (string, error) {
	repoID, err := m.source.RepositoryID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving source repository id: %w", err)
	}
	return lake.JoinPath(lake.NormalizeAbsolutePath(m.targetPath), strings.TrimPrefix(repoID, "/")), nil
}

// EnsureRootFolder creates the repository root folder in the lake if it is
// missing. Called once per batch so per-node ingests mostly skip folder
// round trips.
func (m *MetadataIngester) EnsureRootFolder(ctx context.Context) error {
	root, err := m.RootPath(ctx)
	if err != nil {
		return err
	}
	return m.lake.EnsureFolder(ctx, root)
}

// IngestMetadata creates or updates the lake document for the given source
// node and returns the transformation task for phase two. A document is
// matched to its node by sys_name, so re-ingesting the same node updates in
// place rather than duplicating.
func (m *MetadataIngester) IngestMetadata(ctx context.Context, node *models.SourceNode) (models.TransformationTask, error) {
	repoID, err := m.source.RepositoryID(ctx)
	if err != nil {
		return models.TransformationTask{}, fmt.Errorf("resolving source repository id: %w", err)
	}

	parentPath, err := m.parentPath(ctx, node)
	if err != nil {
		return models.TransformationTask{}, err
	}

	readers := source.ReadAuthorities(node)
	doc := buildDocument(node, repoID, parentPath, readers)

	existing, err := m.lake.FindBySourceID(ctx, node.ID)
	if err != nil {
		return models.TransformationTask{}, fmt.Errorf("looking up document for node %s: %w", node.ID, err)
	}

	var lakeID string
	if existing != nil {
		doc.SysID = existing.SysID
		updated, err := m.lake.UpdateDocument(ctx, existing.SysID, doc)
		if err != nil {
			return models.TransformationTask{}, m.wrapWriteError("update", node.ID, err)
		}
		lakeID = updated.SysID
		m.logger.Debug().Str("node_id", node.ID).Str("lake_id", lakeID).Msg("Updated lake document")
	} else {
		if err := m.lake.EnsureFolder(ctx, parentPath); err != nil {
			return models.TransformationTask{}, fmt.Errorf("ensuring folder %s: %w", parentPath, err)
		}
		created, err := m.lake.CreateDocument(ctx, parentPath, doc)
		if err != nil {
			return models.TransformationTask{}, m.wrapWriteError("create", node.ID, err)
		}
		lakeID = created.SysID
		m.logger.Debug().Str("node_id", node.ID).Str("lake_id", lakeID).Msg("Created lake document")
	}

	mimeType := ""
	if node.Content != nil {
		mimeType = node.Content.MimeType
	}
	path := ""
	if node.Path != nil {
		path = node.Path.Name
	}
	return models.NewTransformationTask(node.ID, lakeID, mimeType, node.Name, path), nil
}

// parentPath maps the node's source path under the repository root folder.
func (m *MetadataIngester) parentPath(ctx context.Context, node *models.SourceNode) (string, error) {
	base, err := m.RootPath(ctx)
	if err != nil {
		return "", err
	}
	if node.Path == nil || strings.TrimSpace(node.Path.Name) == "" {
		return base, nil
	}
	nodePath := lake.NormalizeAbsolutePath(node.Path.Name)
	if base == "/" {
		return nodePath, nil
	}
	return base + nodePath, nil
}

func (m *MetadataIngester) wrapWriteError(op, nodeID string, err error) error {
	if errors.Is(err, models.ErrPermissionDenied) {
		return fmt.Errorf("%s document for node %s rejected by the lake, check lake.idp credentials and repository permissions: %w", op, nodeID, err)
	}
	return fmt.Errorf("%s document for node %s: %w", op, nodeID, err)
}

// buildDocument maps a source node to its lake wire form. sys_name carries
// the node id so FindBySourceID works without a secondary index; human
// names live in the ingest properties.
func buildDocument(node *models.SourceNode, repoID, parentPath string, readers []string) *models.LakeDocument {
	sourcePath := ""
	if node.Path != nil {
		sourcePath = node.Path.Name
	}
	mimeType := ""
	if node.Content != nil {
		mimeType = node.Content.MimeType
	}

	props := map[string]any{}
	names := make([]string, 0, 6)
	addProp := func(name string, value string) {
		if value == "" {
			return
		}
		props[name] = value
		names = append(names, name)
	}
	addProp("source_nodeId", node.ID)
	addProp("source_repositoryId", repoID)
	addProp("source_name", node.Name)
	addProp("source_path", sourcePath)
	addProp("source_mimeType", mimeType)
	addProp("source_modifiedAt", node.ModifiedAt)

	return &models.LakeDocument{
		SysPrimaryType:         models.TypeSysFile,
		SysName:                node.ID,
		SysMixinTypes:          []string{models.MixinCinRemote},
		SysACL:                 buildACL(readers, repoID),
		CinID:                  node.ID,
		CinSourceID:            repoID,
		CinPaths:               []string{lake.JoinPath(parentPath, node.ID)},
		CinIngestProperties:    props,
		CinIngestPropertyNames: names,

		SyncStatus:            models.SyncStatusPending,
		SourceNodeID:          node.ID,
		SourceRepositoryID:    repoID,
		SourcePath:            sourcePath,
		SourceName:            node.Name,
		SourceMimeType:        mimeType,
		SourceModifiedAt:      node.ModifiedAt,
		SourceReadAuthorities: readers,
	}
}

// buildACL translates source read authorities into lake ACEs. Authorities
// are suffixed with the repository id so documents from different source
// repositories never share principals; the public pseudo-group maps to the
// lake's own everyone principal unsuffixed.
func buildACL(readers []string, repoID string) []models.ACE {
	acl := make([]models.ACE, 0, len(readers))
	for _, authority := range readers {
		ace := models.ACE{Granted: true, Permission: models.PermissionRead}
		switch {
		case authority == models.GroupAuthPrefix+"EVERYONE":
			ace.User = &models.ACEPrincipal{ID: models.EveryonePrinc}
		case strings.HasPrefix(authority, models.GroupAuthPrefix):
			ace.Group = &models.ACEPrincipal{ID: authority + "_#_" + repoID}
		default:
			ace.User = &models.ACEPrincipal{ID: authority + "_#_" + repoID}
		}
		acl = append(acl, ace)
	}
	return acl
}
