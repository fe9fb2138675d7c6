package lake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 120 * time.Second

	// repositoryHeader selects the lake repository on every request.
	repositoryHeader = "HXCS-REPOSITORY"

	// tokenEarlyExpiry refreshes the bearer token before it actually expires.
	tokenEarlyExpiry = 60 * time.Second

	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

// Client is a content lake REST client. Every request carries a bearer
// token from the lake's identity provider plus the repository header.
type Client struct {
	baseURL      string
	repositoryID string
	httpClient   *http.Client
	tokens       oauth2.TokenSource
	logger       arbor.ILogger
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

// WithTokenSource overrides the identity-provider token source. Tests use
// this to avoid the real token endpoint.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// ropcTokenSource obtains tokens with the resource-owner-password grant.
// The lake's IdP issues short-lived tokens without refresh tokens, so each
// renewal is a fresh password grant.
type ropcTokenSource struct {
	conf     *oauth2.Config
	username string
	password string
}

func (s *ropcTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.conf.PasswordCredentialsToken(ctx, s.username, s.password)
}

// NewClient creates a lake client from configuration.
func NewClient(cfg common.LakeConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      cfg.URL,
		repositoryID: cfg.RepositoryID,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.GetLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.tokens == nil {
		conf := &oauth2.Config{
			ClientID:     cfg.IDP.ClientID,
			ClientSecret: cfg.IDP.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.IDP.TokenURL},
			Scopes:       []string{"openid", "profile", "email"},
		}
		src := &ropcTokenSource{conf: conf, username: cfg.IDP.Username, password: cfg.IDP.Password}
		c.tokens = oauth2.ReuseTokenSourceWithExpiry(nil, src, tokenEarlyExpiry)
	}

	return c
}

// RepositoryID returns the configured lake repository id.
func (c *Client) RepositoryID() string {
	return c.repositoryID
}

// do executes an authenticated request and decodes the response into result
// when result is non-nil.
func (c *Client) do(ctx context.Context, method, path, contentType string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain lake token: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set(repositoryHeader, c.repositoryID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp, path); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
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

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.LakeDocument, error) {
	var doc models.LakeDocument
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+id, "", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateDocument creates a document at the given absolute lake path. The
// enforceSysName flag makes the lake honor the sys_name in the body instead
// of deriving one.
func (c *Client) CreateDocument(ctx context.Context, path string, doc *models.LakeDocument) (*models.LakeDocument, error) {
	uri := "/api/documents/path/" + encodePathSegments(path) + "?enforceSysName=true"
	var created models.LakeDocument
	if err := c.do(ctx, http.MethodPost, uri, contentTypeJSON, doc, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDocument replaces an existing document's content with doc.
func (c *Client) UpdateDocument(ctx context.Context, id string, doc *models.LakeDocument) (*models.LakeDocument, error) {
	var updated models.LakeDocument
	if err := c.do(ctx, http.MethodPut, "/api/documents/"+id, contentTypeJSON, doc, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateFields replaces only the named fields of an existing document.
func (c *Client) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return c.do(ctx, http.MethodPut, "/api/documents/"+id, contentTypeJSON, fields, nil)
}

// PatchDocument applies a JSON Patch to a document.
func (c *Client) PatchDocument(ctx context.Context, id string, patch []models.PatchOp) error {
	return c.do(ctx, http.MethodPatch, "/api/documents/"+id, contentTypeJSONPatch, patch, nil)
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/documents/"+id, "", nil, nil)
}

// ExistsByPath reports whether a document exists at the given lake path.
func (c *Client) ExistsByPath(ctx context.Context, path string) (bool, error) {
	uri := "/api/documents/path/" + encodePathSegments(path)
	err := c.do(ctx, http.MethodGet, uri, "", nil, &models.LakeDocument{})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// createFolder creates a single folder document at the given path. An
// already-existing folder is treated as success.
func (c *Client) createFolder(ctx context.Context, path, name string) error {
	doc := &models.LakeDocument{
		SysPrimaryType: models.TypeSysFolder,
		SysName:        name,
	}
	_, err := c.CreateDocument(ctx, path, doc)
	if errors.Is(err, models.ErrConflict) {
		return nil
	}
	return err
}

// EnsureFolder walks the path segment by segment and creates any missing
// folders. Permission failures abort the walk.
func (c *Client) EnsureFolder(ctx context.Context, path string) error {
	path = NormalizeAbsolutePath(path)
	if path == "/" {
		return nil
	}

	current := "/"
	for _, segment := range splitSegments(path) {
		current = JoinPath(current, segment)
		exists, err := c.ExistsByPath(ctx, current)
		if err != nil {
			if errors.Is(err, models.ErrPermissionDenied) {
				return fmt.Errorf("cannot inspect folder %s: %w", current, err)
			}
			return err
		}
		if exists {
			continue
		}
		if err := c.createFolder(ctx, current, segment); err != nil {
			if errors.Is(err, models.ErrPermissionDenied) {
				return fmt.Errorf("cannot create folder %s: %w", current, err)
			}
			return err
		}
		c.logger.Debug().Str("path", current).Msg("Created lake folder")
	}
	return nil
}

func splitSegments(path string) []string {
	var segments []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	return segments
}

// FindBySourceID locates the lake document ingested from the given source
// node. Query failures are treated as not found so ingestion can fall back
// to creating a fresh document.
func (c *Client) FindBySourceID(ctx context.Context, sourceNodeID string) (*models.LakeDocument, error) {
	q := models.LakeQuery{
		Query: fmt.Sprintf("SELECT * FROM SysContent WHERE sys_primaryType = '%s' AND sys_name = '%s'",
			models.TypeSysFile, EscapeHxql(sourceNodeID)),
		RepositoryID: c.repositoryID,
		Limit:        1,
	}

	result, err := c.Query(ctx, q)
	if err != nil {
		c.logger.Warn().Err(err).Str("source_id", sourceNodeID).Msg("Lookup by source id failed, assuming new document")
		return nil, nil
	}
	if len(result.Documents) == 0 {
		return nil, nil
	}
	return &result.Documents[0], nil
}

// Query runs an HXQL query.
func (c *Client) Query(ctx context.Context, q models.LakeQuery) (*models.LakeQueryResult, error) {
	if q.RepositoryID == "" {
		q.RepositoryID = c.repositoryID
	}
	var result models.LakeQueryResult
	if err := c.do(ctx, http.MethodPost, "/api/query", contentTypeJSON, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VectorSearch runs a kNN search over stored chunk embeddings.
func (c *Client) VectorSearch(ctx context.Context, q models.VectorQuery) (*models.VectorSearchResult, error) {
	if q.RepositoryID == "" {
		q.RepositoryID = c.repositoryID
	}
	if q.EmbeddingType == "" {
		q.EmbeddingType = "*"
	}
	if q.Query == "" {
		q.Query = "SELECT * FROM SysContent"
	}
	q.TrackTotalCount = true

	var result models.VectorSearchResult
	if err := c.do(ctx, http.MethodPost, "/api/query/embeddings", contentTypeJSON, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateEmbeddings replaces the embeddings stored on a document. The embed
// mixin is added first when missing so the field is accepted.
func (c *Client) UpdateEmbeddings(ctx context.Context, id string, embeddings []models.Embedding) error {
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", id, err)
	}

	if !doc.HasMixin(models.MixinSysEmbed) {
		patch := []models.PatchOp{{
			Op:    "add",
			Path:  "/sys_mixinTypes/-",
			Value: models.MixinSysEmbed,
		}}
		if err := c.PatchDocument(ctx, id, patch); err != nil {
			return fmt.Errorf("failed to add embed mixin to %s: %w", id, err)
		}
	}

	return c.UpdateFields(ctx, id, map[string]any{
		"sysembed_embeddings": embeddings,
	})
}

// DeleteEmbeddings clears stored embeddings. Documents without the embed
// mixin are left alone; failures are logged and swallowed since stale
// embeddings are replaced on the next successful update.
func (c *Client) DeleteEmbeddings(ctx context.Context, id string) error {
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("document_id", id).Msg("Failed to load document for embedding cleanup")
		return nil
	}
	if !doc.HasMixin(models.MixinSysEmbed) {
		return nil
	}
	if err := c.UpdateFields(ctx, id, map[string]any{"sysembed_embeddings": []models.Embedding{}}); err != nil {
		c.logger.Warn().Err(err).Str("document_id", id).Msg("Failed to clear embeddings")
	}
	return nil
}
