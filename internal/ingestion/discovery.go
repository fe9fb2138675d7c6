package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

// Discoverer walks source repository folders and selects the file nodes a
// sync should ingest. Exclusions are process-wide; type and mime filters
// come from the per-folder source config.
type Discoverer struct {
	source          interfaces.SourceClient
	excludedAspects map[string]struct{}
	excludedPaths   []*regexp.Regexp
	logger          arbor.ILogger
}

// NewDiscoverer compiles the configured exclusions. Path patterns use *
// as a wildcard and must match the node's full display path.
func NewDiscoverer(src interfaces.SourceClient, exclude common.ExcludeConfig) (*Discoverer, error) {
	aspects := make(map[string]struct{}, len(exclude.Aspects))
	for _, a := range exclude.Aspects {
		if a = strings.TrimSpace(a); a != "" {
			aspects[a] = struct{}{}
		}
	}

	paths := make([]*regexp.Regexp, 0, len(exclude.Paths))
	for _, p := range exclude.Paths {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		re, err := regexp.Compile("^" + globToRegexp(p) + "$")
		if err != nil {
			return nil, fmt.Errorf("invalid exclude path pattern %q: %w", p, err)
		}
		paths = append(paths, re)
	}

	return &Discoverer{
		source:          src,
		excludedAspects: aspects,
		excludedPaths:   paths,
		logger:          common.GetLogger(),
	}, nil
}

// Discover resolves the configured folder and streams the matching file
// nodes to fn as the walk proceeds, so the consumer controls pacing and a
// large tree is never buffered. A non-nil error from fn stops the walk.
// Folder may be an absolute repository path or a node id.
func (d *Discoverer) Discover(ctx context.Context, folder common.SourceFolderConfig, fn func(models.SourceNode) error) error {
	root, err := d.resolveFolder(ctx, folder.Folder)
	if err != nil {
		return fmt.Errorf("resolving folder %q: %w", folder.Folder, err)
	}
	if !root.IsFolder {
		return fmt.Errorf("node %q is not a folder", folder.Folder)
	}

	candidates := 0
	if err := d.walk(ctx, root.ID, folder, fn, &candidates); err != nil {
		return err
	}

	d.logger.Info().
		Str("folder", folder.Folder).
		Bool("recursive", folder.Recursive).
		Int("candidates", candidates).
		Msg("Discovery complete")
	return nil
}

func (d *Discoverer) resolveFolder(ctx context.Context, folder string) (*models.SourceNode, error) {
	if strings.HasPrefix(folder, "/") {
		return d.source.GetNodeByPath(ctx, strings.TrimPrefix(folder, "/"))
	}
	return d.source.GetNode(ctx, folder)
}

func (d *Discoverer) walk(ctx context.Context, nodeID string, folder common.SourceFolderConfig, fn func(models.SourceNode) error, candidates *int) error {
	children, err := d.source.ListChildren(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("listing children of %s: %w", nodeID, err)
	}

	for i := range children {
		child := children[i]
		if child.IsFolder {
			if folder.Recursive {
				if err := d.walk(ctx, child.ID, folder, fn, candidates); err != nil {
					return err
				}
			}
			continue
		}
		if !child.IsFile {
			continue
		}
		if !matchesType(&child, folder.Types) || !matchesMimeType(&child, folder.MimeTypes) {
			continue
		}
		if d.excluded(&child) {
			d.logger.Debug().Str("node_id", child.ID).Str("name", child.Name).Msg("Node excluded")
			continue
		}
		*candidates++
		if err := fn(child); err != nil {
			return err
		}
	}
	return nil
}

// matchesType accepts every node when no types are configured.
func matchesType(node *models.SourceNode, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if node.NodeType == t {
			return true
		}
	}
	return false
}

// matchesMimeType accepts every node when no mime types are configured. A
// node without content metadata never matches an explicit filter.
func matchesMimeType(node *models.SourceNode, mimeTypes []string) bool {
	if len(mimeTypes) == 0 {
		return true
	}
	if node.Content == nil {
		return false
	}
	for _, mt := range mimeTypes {
		if node.Content.MimeType == mt {
			return true
		}
	}
	return false
}

func (d *Discoverer) excluded(node *models.SourceNode) bool {
	for _, aspect := range node.AspectNames {
		if _, ok := d.excludedAspects[aspect]; ok {
			return true
		}
	}
	if node.Path == nil {
		return false
	}
	for _, re := range d.excludedPaths {
		if re.MatchString(node.Path.Name) {
			return true
		}
	}
	return false
}

// globToRegexp quotes the pattern and rewrites * wildcards.
func globToRegexp(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, ".*")
}
