package ingestion

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

func fileNode(id, name, mimeType string) models.SourceNode {
	return models.SourceNode{
		ID:       id,
		Name:     name,
		NodeType: "cm:content",
		IsFile:   true,
		Content:  &models.SourceContent{MimeType: mimeType},
		Path:     &models.SourcePath{Name: "/Company Home/docs"},
	}
}

func folderNode(id string) models.SourceNode {
	return models.SourceNode{ID: id, IsFolder: true}
}

// treeSource serves a static folder tree keyed by node id.
func treeSource(tree map[string][]models.SourceNode) *fakeSourceClient {
	return &fakeSourceClient{
		getNodeFunc: func(ctx context.Context, nodeID string) (*models.SourceNode, error) {
			return &models.SourceNode{ID: nodeID, IsFolder: true}, nil
		},
		getNodeByPathFunc: func(ctx context.Context, path string) (*models.SourceNode, error) {
			return &models.SourceNode{ID: "root", IsFolder: true}, nil
		},
		listChildrenFunc: func(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
			return tree[nodeID], nil
		},
	}
}

// discoverAll collects every streamed node into a slice.
func discoverAll(ctx context.Context, d *Discoverer, folder common.SourceFolderConfig) ([]models.SourceNode, error) {
	var nodes []models.SourceNode
	err := d.Discover(ctx, folder, func(n models.SourceNode) error {
		nodes = append(nodes, n)
		return nil
	})
	return nodes, err
}

func TestNewDiscoverer(t *testing.T) {
	t.Run("valid patterns compile", func(t *testing.T) {
		_, err := NewDiscoverer(&fakeSourceClient{}, common.ExcludeConfig{
			Paths:   []string{"/Company Home/Trash/*", "*/archive/*"},
			Aspects: []string{"sys:hidden"},
		})
		assert.NoError(t, err)
	})

	t.Run("blank entries ignored", func(t *testing.T) {
		_, err := NewDiscoverer(&fakeSourceClient{}, common.ExcludeConfig{
			Paths:   []string{"  "},
			Aspects: []string{""},
		})
		assert.NoError(t, err)
	})
}

func TestDiscoverer_Discover(t *testing.T) {
	ctx := context.Background()

	t.Run("flat folder", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {
				fileNode("f1", "a.pdf", "application/pdf"),
				fileNode("f2", "b.txt", "text/plain"),
				folderNode("sub"),
			},
			"sub": {fileNode("f3", "c.pdf", "application/pdf")},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{Folder: "root"})
		require.NoError(t, err)
		require.Len(t, nodes, 2, "non-recursive discovery skips subfolders")
		assert.Equal(t, "f1", nodes[0].ID)
		assert.Equal(t, "f2", nodes[1].ID)
	})

	t.Run("recursive walk", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {folderNode("sub"), fileNode("f1", "a.pdf", "application/pdf")},
			"sub":  {fileNode("f2", "b.pdf", "application/pdf")},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{Folder: "root", Recursive: true})
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("nodes streamed during the walk", func(t *testing.T) {
		listed := 0
		src := treeSource(map[string][]models.SourceNode{
			"root": {fileNode("f1", "a.pdf", "application/pdf"), folderNode("sub")},
			"sub":  {fileNode("f2", "b.pdf", "application/pdf")},
		})
		base := src.listChildrenFunc
		src.listChildrenFunc = func(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
			listed++
			return base(ctx, nodeID)
		}
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		err = d.Discover(ctx, common.SourceFolderConfig{Folder: "root", Recursive: true},
			func(n models.SourceNode) error {
				if n.ID == "f1" {
					// Delivered before the subfolder listing, not after the
					// whole tree is collected.
					assert.Equal(t, 1, listed)
				}
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, 2, listed)
	})

	t.Run("consumer error stops the walk", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {
				fileNode("f1", "a.pdf", "application/pdf"),
				fileNode("f2", "b.pdf", "application/pdf"),
			},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		var seen []string
		err = d.Discover(ctx, common.SourceFolderConfig{Folder: "root"},
			func(n models.SourceNode) error {
				seen = append(seen, n.ID)
				return errors.New("queue closed")
			})
		assert.EqualError(t, err, "queue closed")
		assert.Equal(t, []string{"f1"}, seen)
	})

	t.Run("path folder resolved relative to root", func(t *testing.T) {
		var resolvedPath string
		src := treeSource(map[string][]models.SourceNode{"root": {}})
		src.getNodeByPathFunc = func(ctx context.Context, path string) (*models.SourceNode, error) {
			resolvedPath = path
			return &models.SourceNode{ID: "root", IsFolder: true}, nil
		}
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		_, err = discoverAll(ctx, d, common.SourceFolderConfig{Folder: "/Sites/docs"})
		require.NoError(t, err)
		assert.Equal(t, "Sites/docs", resolvedPath)
	})

	t.Run("mime filter", func(t *testing.T) {
		src := treeSource(map[string][]models.SourceNode{
			"root": {
				fileNode("f1", "a.pdf", "application/pdf"),
				fileNode("f2", "b.txt", "text/plain"),
				{ID: "f3", Name: "no-content", NodeType: "cm:content", IsFile: true},
			},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{
			Folder:    "root",
			MimeTypes: []string{"application/pdf"},
		})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "f1", nodes[0].ID)
	})

	t.Run("type filter", func(t *testing.T) {
		custom := fileNode("f1", "a.pdf", "application/pdf")
		custom.NodeType = "acme:invoice"
		src := treeSource(map[string][]models.SourceNode{
			"root": {custom, fileNode("f2", "b.pdf", "application/pdf")},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{
			Folder: "root",
			Types:  []string{"acme:invoice"},
		})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "f1", nodes[0].ID)
	})

	t.Run("aspect exclusion", func(t *testing.T) {
		hidden := fileNode("f1", "a.pdf", "application/pdf")
		hidden.AspectNames = []string{"sys:hidden"}
		src := treeSource(map[string][]models.SourceNode{
			"root": {hidden, fileNode("f2", "b.pdf", "application/pdf")},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{Aspects: []string{"sys:hidden"}})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{Folder: "root"})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "f2", nodes[0].ID)
	})

	t.Run("path glob exclusion", func(t *testing.T) {
		archived := fileNode("f1", "a.pdf", "application/pdf")
		archived.Path = &models.SourcePath{Name: "/Company Home/archive/2023"}
		src := treeSource(map[string][]models.SourceNode{
			"root": {archived, fileNode("f2", "b.pdf", "application/pdf")},
		})
		d, err := NewDiscoverer(src, common.ExcludeConfig{Paths: []string{"*/archive/*"}})
		require.NoError(t, err)

		nodes, err := discoverAll(ctx, d, common.SourceFolderConfig{Folder: "root"})
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "f2", nodes[0].ID)
	})

	t.Run("non-folder root rejected", func(t *testing.T) {
		src := &fakeSourceClient{
			getNodeFunc: func(ctx context.Context, nodeID string) (*models.SourceNode, error) {
				return &models.SourceNode{ID: nodeID, IsFile: true}, nil
			},
		}
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		_, err = discoverAll(ctx, d, common.SourceFolderConfig{Folder: "some-file"})
		assert.Error(t, err)
	})

	t.Run("listing failure propagates", func(t *testing.T) {
		src := treeSource(nil)
		src.listChildrenFunc = func(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
			return nil, errors.New("repository unavailable")
		}
		d, err := NewDiscoverer(src, common.ExcludeConfig{})
		require.NoError(t, err)

		_, err = discoverAll(ctx, d, common.SourceFolderConfig{Folder: "root"})
		assert.Error(t, err)
	})
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		match   bool
	}{
		{"/a/*", "/a/b", true},
		{"/a/*", "/b/c", false},
		{"*/archive/*", "/x/archive/y", true},
		{"/a+b/*", "/a+b/c", true},
	}
	for _, tt := range tests {
		re := regexp.MustCompile("^" + globToRegexp(tt.pattern) + "$")
		assert.Equal(t, tt.match, re.MatchString(tt.input),
			"pattern %q against %q", tt.pattern, tt.input)
	}
}
