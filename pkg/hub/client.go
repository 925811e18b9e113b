// Package hub resolves logical model source references against a remote
// HuggingFace-style hub API. Resolution tries a chain of strategies in order:
// per-branch file tree queries, a signed-URL lookup for the selected file,
// HEAD probes against plausible direct URLs, and finally a constructed
// canonical URL with unknown size.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/pkg/model"
)

// ArtifactExtension is the file extension expected for model artifacts.
const ArtifactExtension = ".gguf"

// fileInfo is one entry of the hub tree listing.
type fileInfo struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Client resolves source references against a hub API over HTTP.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	branches  []string
}

// NewClient creates a hub client. branches is the ordered priority list of
// branch names tried during resolution.
func NewClient(baseURL string, timeout time.Duration, userAgent string, branches []string) *Client {
	if userAgent == "" {
		userAgent = "modelfetch/1.0"
	}
	if len(branches) == 0 {
		branches = []string{"main", "master"}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		branches:  branches,
	}
}

// Resolve implements the Resolver interface. Transient errors at one
// strategy step are logged and swallowed; the next strategy is attempted.
// Only an unparseable source fails the resolution outright.
func (c *Client) Resolve(ctx context.Context, source string) (*model.Resolution, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	if res := c.resolveFromTree(ctx, src); res != nil {
		return res, nil
	}

	if res := c.resolveFromProbes(ctx, src); res != nil {
		return res, nil
	}

	// Last resort: construct a canonical URL from the best filename guess and
	// let the transfer discover the real size from response headers.
	fileName := src.Path
	if fileName == "" {
		fileName = src.Name + ArtifactExtension
	}
	url := c.resolveURL(src, c.branches[0], fileName)
	logger.Warnf("hub: falling back to constructed URL %s", url)
	return &model.Resolution{URL: url, FileName: fileName, Size: 0}, nil
}

// resolveFromTree queries the file tree of each branch in priority order and
// selects a target file. Returns nil when no branch yields a usable match.
func (c *Client) resolveFromTree(ctx context.Context, src *Source) *model.Resolution {
	for _, branch := range c.branches {
		treeURL := fmt.Sprintf("%s/api/models/%s/%s/tree/%s", c.baseURL, src.Org, src.Name, branch)
		logger.Debugf("hub: checking file tree %s", treeURL)

		var files []fileInfo
		if err := c.getJSON(ctx, treeURL, &files); err != nil {
			logger.Warnf("hub: tree query failed for branch %s: %v", branch, err)
			continue
		}
		if len(files) == 0 {
			logger.Warnf("hub: no files returned for %s/%s on branch %s", src.Org, src.Name, branch)
			continue
		}

		target := selectFile(files, src)
		if target == nil {
			logger.Warnf("hub: no matching %s file in %s/%s on branch %s", ArtifactExtension, src.Org, src.Name, branch)
			continue
		}

		url := c.signedURL(ctx, src, branch, target.Path)
		logger.Info("hub: resolved file", logger.Fields{
			"file":   target.Path,
			"size":   target.Size,
			"branch": branch,
		})
		return &model.Resolution{URL: url, FileName: target.Path, Size: target.Size}
	}
	return nil
}

// signedURL asks the hub for a signed download URL for the selected file and
// falls back to the canonical resolve URL when the lookup fails or returns
// no URL.
func (c *Client) signedURL(ctx context.Context, src *Source, branch, fileName string) string {
	infoURL := fmt.Sprintf("%s/api/models/%s/%s/tree/%s/%s", c.baseURL, src.Org, src.Name, branch, fileName)

	var info fileInfo
	if err := c.getJSON(ctx, infoURL, &info); err == nil && info.DownloadURL != "" {
		logger.Debugf("hub: using signed download URL for %s", fileName)
		return info.DownloadURL
	}
	return c.resolveURL(src, branch, fileName)
}

// resolveFromProbes issues lightweight HEAD probes against a short list of
// plausible direct URLs and takes the first that answers.
func (c *Client) resolveFromProbes(ctx context.Context, src *Source) *model.Resolution {
	candidates := make([]string, 0, 4)
	if src.Path != "" {
		candidates = append(candidates, src.Path)
		if bare := src.BareFilename(); bare != src.Path {
			candidates = append(candidates, bare)
		}
	}
	candidates = append(candidates,
		src.Name+ArtifactExtension,
		"ggml-model-"+src.Name+ArtifactExtension,
	)

	for _, candidate := range candidates {
		probeURL := c.resolveURL(src, c.branches[0], candidate)
		logger.Debugf("hub: probing %s", probeURL)

		size, err := c.head(ctx, probeURL)
		if err != nil {
			logger.Debugf("hub: probe failed for %s: %v", probeURL, err)
			continue
		}
		logger.Info("hub: found file via probe", logger.Fields{"file": candidate, "size": size})
		return &model.Resolution{URL: probeURL, FileName: candidate, Size: size}
	}
	return nil
}

// resolveURL constructs the canonical download URL for a file.
func (c *Client) resolveURL(src *Source, branch, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/resolve/%s/%s", c.baseURL, src.Org, src.Name, branch, fileName)
}

// getJSON issues a GET request and decodes the JSON response body into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Wrap(err, "failed to decode response")
	}
	return nil
}

// head issues a HEAD request and returns the advertised content length.
func (c *Client) head(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, Wrap(err, "probe failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if resp.ContentLength > 0 {
		return resp.ContentLength, nil
	}
	return 0, nil
}

// selectFile picks the target file from a tree listing. Priority: exact
// explicit-path match, suffix/substring match, bare-filename match, then any
// file with the artifact extension.
func selectFile(files []fileInfo, src *Source) *fileInfo {
	if src.Path != "" {
		for i := range files {
			if strings.EqualFold(files[i].Path, src.Path) {
				return &files[i]
			}
		}
		lowered := strings.ToLower(src.Path)
		for i := range files {
			p := strings.ToLower(files[i].Path)
			if strings.HasSuffix(p, lowered) || strings.Contains(p, lowered) {
				return &files[i]
			}
		}
		bare := strings.ToLower(src.BareFilename())
		for i := range files {
			if strings.HasSuffix(strings.ToLower(files[i].Path), bare) {
				return &files[i]
			}
		}
	}

	for i := range files {
		if strings.HasSuffix(strings.ToLower(files[i].Path), ArtifactExtension) {
			return &files[i]
		}
	}
	return nil
}
