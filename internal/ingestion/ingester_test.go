package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

func testNode() *models.SourceNode {
	return &models.SourceNode{
		ID:         "node-1",
		Name:       "report.pdf",
		NodeType:   "cm:content",
		IsFile:     true,
		ModifiedAt: "2026-08-01T10:00:00Z",
		Path:       &models.SourcePath{Name: "/Company Home/docs"},
		Content:    &models.SourceContent{MimeType: "application/pdf"},
		Permissions: &models.NodePermissions{
			LocallySet: []models.PermissionEntry{
				{AuthorityID: "jsmith", Name: "Consumer", AccessStatus: "ALLOWED"},
				{AuthorityID: "GROUP_sales", Name: "Collaborator", AccessStatus: "ALLOWED"},
				{AuthorityID: "GROUP_EVERYONE", Name: "Consumer", AccessStatus: "ALLOWED"},
			},
		},
	}
}

func newTestIngester(src *fakeSourceClient, lk *fakeLakeClient) *MetadataIngester {
	return NewMetadataIngester(src, lk, common.LakeConfig{TargetPath: "/sync"})
}

func TestMetadataIngester_RootPath(t *testing.T) {
	m := newTestIngester(&fakeSourceClient{}, &fakeLakeClient{})

	root, err := m.RootPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/sync/repo-1", root)
}

func TestMetadataIngester_IngestMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new document", func(t *testing.T) {
		var createdPath string
		var createdDoc *models.LakeDocument
		var ensuredFolders []string

		lk := &fakeLakeClient{
			ensureFolderFunc: func(ctx context.Context, path string) error {
				ensuredFolders = append(ensuredFolders, path)
				return nil
			},
			createDocumentFunc: func(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
				createdPath = path
				createdDoc = doc
				created := *doc
				created.SysID = "lake-1"
				return &created, nil
			},
		}
		m := newTestIngester(&fakeSourceClient{}, lk)

		task, err := m.IngestMetadata(ctx, testNode())
		require.NoError(t, err)

		assert.Equal(t, "/sync/repo-1/Company Home/docs", createdPath)
		assert.Equal(t, []string{"/sync/repo-1/Company Home/docs"}, ensuredFolders)

		assert.Equal(t, "node-1", task.SourceID)
		assert.Equal(t, "lake-1", task.LakeID)
		assert.Equal(t, "application/pdf", task.MimeType)
		assert.Equal(t, "report.pdf", task.DocumentName)
		assert.Equal(t, "/Company Home/docs", task.DocumentPath)

		require.NotNil(t, createdDoc)
		assert.Equal(t, models.TypeSysFile, createdDoc.SysPrimaryType)
		assert.Equal(t, "node-1", createdDoc.SysName, "node id keyed for idempotent re-ingest")
		assert.Equal(t, []string{models.MixinCinRemote}, createdDoc.SysMixinTypes)
		assert.Equal(t, "node-1", createdDoc.CinID)
		assert.Equal(t, "repo-1", createdDoc.CinSourceID)
		assert.Equal(t, []string{"/sync/repo-1/Company Home/docs/node-1"}, createdDoc.CinPaths)
	})

	t.Run("updates an existing document in place", func(t *testing.T) {
		var updatedID string
		folderEnsured := false

		lk := &fakeLakeClient{
			findBySourceIDFunc: func(ctx context.Context, sourceNodeID string) (*models.LakeDocument, error) {
				return &models.LakeDocument{SysID: "lake-existing", SysName: sourceNodeID}, nil
			},
			updateDocumentFunc: func(ctx context.Context, id string, doc *models.LakeDocument) (*models.LakeDocument, error) {
				updatedID = id
				assert.Equal(t, "lake-existing", doc.SysID)
				updated := *doc
				return &updated, nil
			},
			ensureFolderFunc: func(ctx context.Context, path string) error {
				folderEnsured = true
				return nil
			},
		}
		m := newTestIngester(&fakeSourceClient{}, lk)

		task, err := m.IngestMetadata(ctx, testNode())
		require.NoError(t, err)
		assert.Equal(t, "lake-existing", updatedID)
		assert.Equal(t, "lake-existing", task.LakeID)
		assert.False(t, folderEnsured, "updates skip the folder round trip")
	})

	t.Run("permission denied gets a credentials hint", func(t *testing.T) {
		lk := &fakeLakeClient{
			createDocumentFunc: func(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
				return nil, models.ErrPermissionDenied
			},
		}
		m := newTestIngester(&fakeSourceClient{}, lk)

		_, err := m.IngestMetadata(ctx, testNode())
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrPermissionDenied)
		assert.Contains(t, err.Error(), "lake.idp credentials")
	})

	t.Run("node without a path lands under the root", func(t *testing.T) {
		var createdPath string
		lk := &fakeLakeClient{
			createDocumentFunc: func(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
				createdPath = path
				created := *doc
				created.SysID = "lake-1"
				return &created, nil
			},
		}
		m := newTestIngester(&fakeSourceClient{}, lk)

		node := testNode()
		node.Path = nil
		_, err := m.IngestMetadata(ctx, node)
		require.NoError(t, err)
		assert.Equal(t, "/sync/repo-1", createdPath)
	})
}

func TestBuildDocument(t *testing.T) {
	node := testNode()
	doc := buildDocument(node, "repo-1", "/sync/repo-1/Company Home/docs", []string{"jsmith"})

	t.Run("ingest properties and names stay aligned", func(t *testing.T) {
		assert.Equal(t, []string{
			"source_nodeId",
			"source_repositoryId",
			"source_name",
			"source_path",
			"source_mimeType",
			"source_modifiedAt",
		}, doc.CinIngestPropertyNames)

		assert.Equal(t, "node-1", doc.CinIngestProperties["source_nodeId"])
		assert.Equal(t, "report.pdf", doc.CinIngestProperties["source_name"])
		assert.Equal(t, "/Company Home/docs", doc.CinIngestProperties["source_path"])
		assert.Equal(t, "application/pdf", doc.CinIngestProperties["source_mimeType"])
	})

	t.Run("empty values omitted from properties", func(t *testing.T) {
		bare := &models.SourceNode{ID: "n2", Name: "x"}
		doc := buildDocument(bare, "repo-1", "/sync/repo-1", nil)
		assert.NotContains(t, doc.CinIngestPropertyNames, "source_path")
		assert.NotContains(t, doc.CinIngestPropertyNames, "source_mimeType")
		assert.NotContains(t, doc.CinIngestPropertyNames, "source_modifiedAt")
	})

	t.Run("sync state flattened", func(t *testing.T) {
		assert.Equal(t, models.SyncStatusPending, doc.SyncStatus)
		assert.Equal(t, "node-1", doc.SourceNodeID)
		assert.Equal(t, []string{"jsmith"}, doc.SourceReadAuthorities)
	})
}

func TestBuildACL(t *testing.T) {
	acl := buildACL([]string{"jsmith", "GROUP_sales", "GROUP_EVERYONE"}, "repo-1")
	require.Len(t, acl, 3)

	t.Run("user authority suffixed", func(t *testing.T) {
		require.NotNil(t, acl[0].User)
		assert.Equal(t, "jsmith_#_repo-1", acl[0].User.ID)
		assert.Nil(t, acl[0].Group)
		assert.True(t, acl[0].Granted)
		assert.Equal(t, models.PermissionRead, acl[0].Permission)
	})

	t.Run("group authority suffixed", func(t *testing.T) {
		require.NotNil(t, acl[1].Group)
		assert.Equal(t, "GROUP_sales_#_repo-1", acl[1].Group.ID)
		assert.Nil(t, acl[1].User)
	})

	t.Run("everyone maps to the lake principal unsuffixed", func(t *testing.T) {
		require.NotNil(t, acl[2].User)
		assert.Equal(t, models.EveryonePrinc, acl[2].User.ID)
	})

	t.Run("empty readers produce empty acl", func(t *testing.T) {
		assert.Empty(t, buildACL(nil, "repo-1"))
	})
}
