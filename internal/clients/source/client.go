package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// childrenPageSize is the page size used when listing folder children.
	childrenPageSize = 100

	// groupsPageSize is the page size used when listing a user's groups.
	groupsPageSize = 1000

	// nodeIncludes asks the node APIs for the extra fields ingestion needs.
	nodeIncludes = "path,permissions,aspectNames"
)

// Client is a source repository REST client authenticated with the
// configured service account.
type Client struct {
	baseURL    string
	apiURL     string
	authURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     arbor.ILogger

	repoMu sync.Mutex
	repoID string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a source repository client from configuration.
func NewClient(cfg common.SourceConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  cfg.URL,
		apiURL:   cfg.URL + "/api/-default-/public/alfresco/versions/1",
		authURL:  cfg.URL + "/api/-default-/public/authentication/versions/1",
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs an authenticated GET against the node API and decodes into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.apiURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp, path); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// statusError maps non-2xx responses onto the shared error sentinels.
func statusError(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, models.ErrPermissionDenied)
	case http.StatusNotFound:
		return fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, models.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, models.ErrConflict)
	default:
		return fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}
}

// GetNodeByPath resolves a repository path relative to the root node.
func (c *Client) GetNodeByPath(ctx context.Context, path string) (*models.SourceNode, error) {
	params := url.Values{}
	params.Set("relativePath", path)
	params.Set("include", nodeIncludes)

	var entry struct {
		Entry models.SourceNode `json:"entry"`
	}
	if err := c.get(ctx, "/nodes/-root-", params, &entry); err != nil {
		return nil, err
	}
	return &entry.Entry, nil
}

// GetNode fetches a node by id with path, permissions, and aspects included.
func (c *Client) GetNode(ctx context.Context, nodeID string) (*models.SourceNode, error) {
	params := url.Values{}
	params.Set("include", nodeIncludes)

	var entry struct {
		Entry models.SourceNode `json:"entry"`
	}
	if err := c.get(ctx, "/nodes/"+url.PathEscape(nodeID), params, &entry); err != nil {
		return nil, err
	}
	return &entry.Entry, nil
}

// ListChildren pages through a folder's children. A page shorter than the
// page size ends the listing.
func (c *Client) ListChildren(ctx context.Context, nodeID string) ([]models.SourceNode, error) {
	var nodes []models.SourceNode
	skipCount := 0

	for {
		params := url.Values{}
		params.Set("skipCount", strconv.Itoa(skipCount))
		params.Set("maxItems", strconv.Itoa(childrenPageSize))
		params.Set("include", nodeIncludes)

		var page models.NodeChildrenPage
		if err := c.get(ctx, "/nodes/"+url.PathEscape(nodeID)+"/children", params, &page); err != nil {
			return nil, err
		}

		for _, e := range page.List.Entries {
			nodes = append(nodes, e.Entry)
		}

		if len(page.List.Entries) < childrenPageSize {
			break
		}
		skipCount += len(page.List.Entries)
	}

	return nodes, nil
}

// DownloadContent streams a file node's content into destPath.
func (c *Client) DownloadContent(ctx context.Context, nodeID, destPath string) error {
	reqURL := c.apiURL + "/nodes/" + url.PathEscape(nodeID) + "/content"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp, "/nodes/"+nodeID+"/content"); err != nil {
		return err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}
	return out.Close()
}

// ListUserGroups returns the group authority ids the user is a member of.
func (c *Client) ListUserGroups(ctx context.Context, username string) ([]string, error) {
	var groups []string
	skipCount := 0

	for {
		params := url.Values{}
		params.Set("skipCount", strconv.Itoa(skipCount))
		params.Set("maxItems", strconv.Itoa(groupsPageSize))

		var page models.GroupMembershipPage
		path := "/people/" + url.PathEscape(username) + "/groups"
		if err := c.get(ctx, path, params, &page); err != nil {
			return nil, err
		}

		for _, e := range page.List.Entries {
			groups = append(groups, e.Entry.ID)
		}

		if !page.List.Pagination.HasMoreItems {
			break
		}
		skipCount += len(page.List.Entries)
	}

	return groups, nil
}

// RepositoryID returns the source repository id from the discovery endpoint,
// cached after the first successful call.
func (c *Client) RepositoryID(ctx context.Context) (string, error) {
	c.repoMu.Lock()
	defer c.repoMu.Unlock()

	if c.repoID != "" {
		return c.repoID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/discovery", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp, "/api/discovery"); err != nil {
		return "", err
	}

	var discovery struct {
		Entry struct {
			Repository struct {
				ID string `json:"id"`
			} `json:"repository"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return "", fmt.Errorf("failed to decode discovery response: %w", err)
	}

	if discovery.Entry.Repository.ID == "" {
		return "", fmt.Errorf("discovery response missing repository id")
	}

	c.repoID = discovery.Entry.Repository.ID
	c.logger.Debug().Str("repository_id", c.repoID).Msg("Resolved source repository id")
	return c.repoID, nil
}
