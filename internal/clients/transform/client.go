package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
)

const (
	// targetMimeType is the only transform target this service needs.
	targetMimeType = "text/plain"

	// configCacheTTL bounds how long the engine capability listing is reused.
	configCacheTTL = 5 * time.Minute

	// DefaultTimeoutMs is applied when configuration leaves the timeout unset.
	DefaultTimeoutMs = 120000
)

// Client calls the external transformation engine to extract plain text
// from binary document formats.
type Client struct {
	baseURL    string
	timeoutMs  int
	httpClient *http.Client
	logger     arbor.ILogger

	configMu        sync.Mutex
	supportedSource map[string]struct{}
	configFetchedAt time.Time
}

// NewClient creates a transform client from configuration.
func NewClient(cfg common.TransformServiceConfig) *Client {
	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		timeoutMs: timeoutMs,
		httpClient: &http.Client{
			// The HTTP timeout leaves headroom over the engine-side timeout.
			Timeout: time.Duration(timeoutMs)*time.Millisecond + 30*time.Second,
		},
		logger: common.GetLogger(),
	}
}

// TransformToText converts the file at srcPath to plain text.
func (c *Client) TransformToText(ctx context.Context, srcPath, sourceMimeType string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(srcPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		writer.WriteField("sourceMimetype", sourceMimeType)
		writer.WriteField("targetMimetype", targetMimeType)
		writer.WriteField("targetExtension", "txt")
		pw.CloseWithError(writer.Close())
	}()

	uri := c.baseURL + "/transform?timeout=" + strconv.Itoa(c.timeoutMs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, pr)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transform failed with status %d: %s", resp.StatusCode, string(body))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transform response: %w", err)
	}
	return string(text), nil
}

// IsSupported reports whether the engine advertises a transform from the
// given mime type to plain text. When the capability listing cannot be
// fetched the check fails open so documents are not silently skipped.
func (c *Client) IsSupported(ctx context.Context, sourceMimeType string) bool {
	supported, err := c.supportedSources(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Transform config lookup failed, assuming supported")
		return true
	}
	_, ok := supported[sourceMimeType]
	return ok
}

// supportedSources returns the cached set of source mime types the engine
// can transform to plain text, refreshing it after the cache TTL.
func (c *Client) supportedSources(ctx context.Context) (map[string]struct{}, error) {
	c.configMu.Lock()
	defer c.configMu.Unlock()

	if c.supportedSource != nil && time.Since(c.configFetchedAt) < configCacheTTL {
		return c.supportedSource, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transform/config", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config request failed with status %d", resp.StatusCode)
	}

	var config struct {
		Transformers []struct {
			SupportedSourceAndTargetList []struct {
				SourceMediaType string `json:"sourceMediaType"`
				TargetMediaType string `json:"targetMediaType"`
			} `json:"supportedSourceAndTargetList"`
		} `json:"transformers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config response: %w", err)
	}

	supported := make(map[string]struct{})
	for _, t := range config.Transformers {
		for _, st := range t.SupportedSourceAndTargetList {
			if st.TargetMediaType == targetMimeType {
				supported[st.SourceMediaType] = struct{}{}
			}
		}
	}

	c.supportedSource = supported
	c.configFetchedAt = time.Now()
	return supported, nil
}
