// Package metadata pulls runtime snapshots from the services that run a project and
// caches them for the detail view.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

// Fetcher reads the metadata snapshot exposed by a project's node.
type Fetcher interface {
	Fetch(ctx context.Context, p *models.Project) (*models.Metadata, error)
}

type httpFetcher struct {
	client *retryablehttp.Client
}

// NewHTTPFetcher returns a Fetcher that GETs {nodeEndpoint}/meta with retries.
func NewHTTPFetcher(timeout time.Duration, retries int, log *zap.Logger) Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = nil
	if log != nil {
		c.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				log.Debug("retrying metadata request", zap.String("url", req.URL.String()), zap.Int("attempt", attempt))
			}
		}
	}
	return &httpFetcher{client: c}
}

// nodeMeta is the payload served by an indexer node on /meta.
type nodeMeta struct {
	LastProcessedHeight    int64  `json:"lastProcessedHeight"`
	LastProcessedTimestamp any    `json:"lastProcessedTimestamp"`
	StartHeight            int64  `json:"startHeight"`
	TargetHeight           int64  `json:"targetHeight"`
	Chain                  string `json:"chain"`
	SpecName               string `json:"specName"`
	GenesisHash            string `json:"genesisHash"`
	IndexerHealthy         *bool  `json:"indexerHealthy"`
	IndexerNodeVersion     string `json:"indexerNodeVersion"`
	QueryNodeVersion       string `json:"queryNodeVersion"`
}

func (f *httpFetcher) Fetch(ctx context.Context, p *models.Project) (*models.Metadata, error) {
	if p.NodeEndpoint == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project has no node endpoint").WithMeta("id", p.ID)
	}
	url := strings.TrimRight(p.NodeEndpoint, "/") + "/meta"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "build metadata request failed")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "node metadata unreachable").WithMeta("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, appErr.New(appErr.CodeUnavailable, fmt.Sprintf("node metadata returned %d", resp.StatusCode)).WithMeta("url", url)
	}

	var raw nodeMeta
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode node metadata failed")
	}

	m := &models.Metadata{
		LastProcessedHeight:    raw.LastProcessedHeight,
		LastProcessedTimestamp: parseTimestamp(raw.LastProcessedTimestamp),
		StartHeight:            raw.StartHeight,
		TargetHeight:           raw.TargetHeight,
		Chain:                  raw.Chain,
		SpecName:               raw.SpecName,
		GenesisHash:            raw.GenesisHash,
		IndexerHealthy:         raw.IndexerHealthy == nil || *raw.IndexerHealthy,
		IndexerNodeVersion:     raw.IndexerNodeVersion,
		QueryNodeVersion:       raw.QueryNodeVersion,
		IndexerStatus:          StatusHealthy,
		QueryStatus:            StatusUnknown,
	}
	if !m.IndexerHealthy {
		m.IndexerStatus = StatusUnhealthy
	}
	if p.QueryEndpoint != "" {
		m.QueryStatus = StatusHealthy
	}
	return m, nil
}

// Service status strings carried in a snapshot.
const (
	StatusHealthy     = "HEALTHY"
	StatusUnhealthy   = "UNHEALTHY"
	StatusUnreachable = "UNREACHABLE"
	StatusUnknown     = "UNKNOWN"
)

// parseTimestamp accepts milliseconds as a number or a numeric string.
func parseTimestamp(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	}
	return 0
}
