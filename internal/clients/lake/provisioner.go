package lake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

// modelSections are the repository model sections provisioning may extend.
var modelSections = []string{"schemas", "types", "mixinTypes"}

// Provisioner brings the lake's repository model up to date with the schema
// fragments ingestion depends on. It only ever adds, never modifies or
// removes, so re-running is safe and concurrent instances converge.
type Provisioner struct {
	client    *Client
	fragments map[string]any
	logger    arbor.ILogger
}

// NewProvisioner loads the desired model fragments from the configured file.
func NewProvisioner(client *Client, cfg common.LakeConfig) (*Provisioner, error) {
	data, err := os.ReadFile(cfg.ModelFragmentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read model fragments %s: %w", cfg.ModelFragmentsFile, err)
	}

	var fragments map[string]any
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, fmt.Errorf("failed to parse model fragments %s: %w", cfg.ModelFragmentsFile, err)
	}

	return &Provisioner{
		client:    client,
		fragments: fragments,
		logger:    common.GetLogger(),
	}, nil
}

// EnsureModel diffs the desired fragments against the live model, applies
// the missing pieces as a JSON Patch, then re-fetches and verifies that
// nothing is still missing.
func (p *Provisioner) EnsureModel(ctx context.Context) error {
	live, err := p.fetchModel(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch repository model: %w", err)
	}

	patch, err := p.diff(live)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		p.logger.Info().Msg("Repository model already up to date")
		return nil
	}

	p.logger.Info().Int("operations", len(patch)).Msg("Applying repository model additions")
	if err := p.client.do(ctx, http.MethodPatch, "/api/repository/model?validateOnly=false",
		contentTypeJSONPatch, patch, nil); err != nil {
		return fmt.Errorf("failed to patch repository model: %w", err)
	}

	live, err = p.fetchModel(ctx)
	if err != nil {
		return fmt.Errorf("failed to re-fetch repository model: %w", err)
	}
	remaining, err := p.diff(live)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("repository model still missing %d fragment(s) after provisioning", len(remaining))
	}

	p.logger.Info().Msg("Repository model provisioned")
	return nil
}

func (p *Provisioner) fetchModel(ctx context.Context) (map[string]any, error) {
	var model map[string]any
	if err := p.client.do(ctx, http.MethodGet, "/api/repository/model", "", nil, &model); err != nil {
		return nil, err
	}
	return model, nil
}

// diff computes the add-only patch that brings live up to the desired
// fragments. A live section that exists but is not an object means the
// model is in a shape this code does not understand, which is fatal.
func (p *Provisioner) diff(live map[string]any) ([]models.PatchOp, error) {
	var patch []models.PatchOp

	for _, section := range modelSections {
		desired, ok := p.fragments[section]
		if !ok {
			continue
		}
		desiredMap, ok := desired.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("model fragments section %q is not an object", section)
		}

		liveSection, present := live[section]
		if !present || liveSection == nil {
			patch = append(patch, models.PatchOp{
				Op:    "add",
				Path:  "/" + section,
				Value: desiredMap,
			})
			continue
		}

		liveMap, ok := liveSection.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("repository model section %q is not an object", section)
		}

		keys := make([]string, 0, len(desiredMap))
		for k := range desiredMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if _, exists := liveMap[key]; exists {
				continue
			}
			patch = append(patch, models.PatchOp{
				Op:    "add",
				Path:  "/" + section + "/" + escapeJSONPointer(key),
				Value: desiredMap[key],
			})
		}
	}

	return patch, nil
}

// escapeJSONPointer escapes a key for use in a JSON Pointer (RFC 6901).
func escapeJSONPointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return key
}
