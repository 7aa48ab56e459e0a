// Package authority is the client of the external licensing authority
// used to cross-validate submitted licence numbers.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

var _ core.AuthorityClient = (*Client)(nil)

// DefaultBatchLimit is the largest number of licences sent in one request.
const DefaultBatchLimit = 100

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Client posts licence numbers to the authority lookup endpoint and
// returns what the authority knows about each of them.
type Client struct {
	url        string
	apiKey     string
	batchLimit int
	http       *http.Client
	cache      Cache
}

// New creates a Client from cfg. cache may be nil.
func New(cfg config.AuthorityConfig, cache Cache) *Client {
	limit := cfg.BatchLimit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		batchLimit: limit,
		http:       &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

type lookupResponse struct {
	Licences []licenceEntry `json:"licences"`
}

type licenceEntry struct {
	LicenceNumber   string           `json:"licence_number"`
	LicenceDetails  *licenceDetails  `json:"licence_details"`
	OperatorDetails *operatorDetails `json:"operator_details"`
}

type licenceDetails struct {
	LicenceNumber string `json:"licence_number"`
	LicenceStatus string `json:"licence_status"`
	LicenceID     int64  `json:"otc_licence_id"`
}

type operatorDetails struct {
	OperatorName string `json:"operator_name"`
	OperatorID   int64  `json:"otc_operator_id"`
}

// Lookup returns metadata for every licence the authority knows. A licence
// is known only when the authority returns both its licence and operator
// details. Requests are chunked by the batch limit; cached answers are used
// first. Any failed request fails the whole lookup.
func (c *Client) Lookup(ctx context.Context, licenceNumbers []string) (map[string]core.AuthorityMetadata, error) {
	logger := logging.FromContext(ctx)
	licences := distinct(licenceNumbers)
	found := make(map[string]core.AuthorityMetadata, len(licences))
	if len(licences) == 0 {
		return found, nil
	}

	missing := licences
	if c.cache != nil {
		cached, err := c.cache.GetMany(ctx, licences)
		if err != nil {
			logger.Warn("authority cache read failed", "error", err)
		} else {
			missing = make([]string, 0, len(licences))
			for _, l := range licences {
				if meta, ok := cached[l]; ok {
					found[l] = meta
					continue
				}
				missing = append(missing, l)
			}
		}
	}

	fetched := make(map[string]core.AuthorityMetadata, len(missing))
	for start := 0; start < len(missing); start += c.batchLimit {
		end := min(start+c.batchLimit, len(missing))
		if err := c.fetch(ctx, missing[start:end], fetched); err != nil {
			return nil, err
		}
	}

	if c.cache != nil && len(fetched) > 0 {
		if err := c.cache.SetMany(ctx, fetched); err != nil {
			logger.Warn("authority cache write failed", "error", err)
		}
	}

	for l, meta := range fetched {
		found[l] = meta
	}

	logger.Debug("authority lookup complete",
		"requested", len(licences),
		"cached", len(licences)-len(missing),
		"found", len(found),
	)
	return found, nil
}

func (c *Client) fetch(ctx context.Context, licences []string, into map[string]core.AuthorityMetadata) error {
	body, err := json.Marshal(licences)
	if err != nil {
		return NewProviderError(ErrorBadData, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return NewProviderError(ErrorBadData, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return NewProviderError(ErrorTimeout, "lookup request timed out", err)
		}
		return NewProviderError(ErrorUnavailable, "lookup request failed", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	var parsed lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		if isTimeout(ctx, err) {
			return NewProviderError(ErrorTimeout, "reading lookup response timed out", err)
		}
		return NewProviderError(ErrorBadData, "decode lookup response", err)
	}

	requested := make(map[string]struct{}, len(licences))
	for _, l := range licences {
		requested[l] = struct{}{}
	}

	for _, entry := range parsed.Licences {
		if _, ok := requested[entry.LicenceNumber]; !ok {
			continue
		}
		if entry.LicenceDetails == nil || entry.OperatorDetails == nil {
			continue
		}
		into[entry.LicenceNumber] = core.AuthorityMetadata{
			LicenceNumber:       entry.LicenceNumber,
			LicenceStatus:       entry.LicenceDetails.LicenceStatus,
			AuthorityLicenceID:  entry.LicenceDetails.LicenceID,
			OperatorName:        entry.OperatorDetails.OperatorName,
			AuthorityOperatorID: entry.OperatorDetails.OperatorID,
		}
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return NewProviderError(ErrorUnavailable, fmt.Sprintf("status %d", resp.StatusCode), nil)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewProviderError(ErrorBadData, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func distinct(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
