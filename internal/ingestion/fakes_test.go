package ingestion

import (
	"context"

	"github.com/ternarybob/lacuna/internal/models"
)

type fakeSourceClient struct {
	getNodeByPathFunc   func(ctx context.Context, path string) (*models.SourceNode, error)
	getNodeFunc         func(ctx context.Context, nodeID string) (*models.SourceNode, error)
	listChildrenFunc    func(ctx context.Context, nodeID string) ([]models.SourceNode, error)
	downloadContentFunc func(ctx context.Context, nodeID, destPath string) error
	repositoryIDFunc    func(ctx context.Context) (string, error)
}

func (f *fakeSourceClient) GetNodeByPath(ctx context.Context, path string) (*models.SourceNode, error) {
	return f.getNodeByPathFunc(ctx, path)
}

func (f *fakeSourceClient) GetNode(ctx context.Context, nodeID string) (*models.SourceNode, error) {
	return f.getNodeFunc(ctx, nodeID)
}

func (f *fakeSourceClient) ListChildren(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
	return f.listChildrenFunc(ctx, nodeID)
}

func (f *fakeSourceClient) DownloadContent(ctx context.Context, nodeID, destPath string) error {
	if f.downloadContentFunc != nil {
		return f.downloadContentFunc(ctx, nodeID, destPath)
	}
	return nil
}

func (f *fakeSourceClient) ListUserGroups(ctx context.Context, username string) ([]string, error) {
	return nil, nil
}

func (f *fakeSourceClient) RepositoryID(ctx context.Context) (string, error) {
	if f.repositoryIDFunc != nil {
		return f.repositoryIDFunc(ctx)
	}
	return "repo-1", nil
}

type fakeLakeClient struct {
	createDocumentFunc func(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error)
	updateDocumentFunc func(ctx context.Context, id string, doc *models.LakeDocument) (*models.LakeDocument, error)
	ensureFolderFunc   func(ctx context.Context, path string) error
	findBySourceIDFunc func(ctx context.Context, sourceNodeID string) (*models.LakeDocument, error)
}

func (f *fakeLakeClient) GetDocument(ctx context.Context, id string) (*models.LakeDocument, error) {
	return nil, nil
}

func (f *fakeLakeClient) CreateDocument(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
	if f.createDocumentFunc != nil {
		return f.createDocumentFunc(ctx, path, doc)
	}
	created := *doc
	created.SysID = "lake-" + doc.SysName
	return &created, nil
}

func (f *fakeLakeClient) UpdateDocument(ctx context.Context, id string, doc *models.LakeDocument) (*models.LakeDocument, error) {
	if f.updateDocumentFunc != nil {
		return f.updateDocumentFunc(ctx, id, doc)
	}
	updated := *doc
	updated.SysID = id
	return &updated, nil
}

func (f *fakeLakeClient) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return nil
}

func (f *fakeLakeClient) PatchDocument(ctx context.Context, id string, patch []models.PatchOp) error {
	return nil
}

func (f *fakeLakeClient) DeleteDocument(ctx context.Context, id string) error { return nil }

func (f *fakeLakeClient) ExistsByPath(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (f *fakeLakeClient) EnsureFolder(ctx context.Context, path string) error {
	if f.ensureFolderFunc != nil {
		return f.ensureFolderFunc(ctx, path)
	}
	return nil
}

func (f *fakeLakeClient) FindBySourceID(ctx context.Context, sourceNodeID string) (*models.LakeDocument, error) {
	if f.findBySourceIDFunc != nil {
		return f.findBySourceIDFunc(ctx, sourceNodeID)
	}
	return nil, nil
}

func (f *fakeLakeClient) Query(ctx context.Context, q models.LakeQuery) (*models.LakeQueryResult, error) {
	return &models.LakeQueryResult{}, nil
}

func (f *fakeLakeClient) VectorSearch(ctx context.Context, q models.VectorQuery) (*models.VectorSearchResult, error) {
	return &models.VectorSearchResult{}, nil
}

func (f *fakeLakeClient) UpdateEmbeddings(ctx context.Context, id string, embeddings []models.Embedding) error {
	return nil
}

func (f *fakeLakeClient) DeleteEmbeddings(ctx context.Context, id string) error { return nil }
