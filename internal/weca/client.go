// Package weca pulls bus service registrations from the WECA timetable API
// and feeds them through the submission pipeline under a service identity.
package weca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/logging"
)

// DefaultTimeout applies when the configured timeout is not positive.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 32 << 20

// Client fetches the registration report from the WECA API.
type Client struct {
	url    string
	token  string
	params url.Values
	http   *http.Client
}

// New creates a Client from cfg.
func New(cfg config.WecaConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	params := url.Values{}
	params.Set("c", cfg.ParamC)
	params.Set("t", cfg.ParamT)
	params.Set("r", cfg.ParamR)
	params.Set("get_report_json", "true")
	params.Set("json_format", "json")

	return &Client{
		url:    cfg.URL,
		token:  cfg.AuthToken,
		params: params,
		http:   &http.Client{Timeout: timeout},
	}
}

// Field describes one column of the report.
type Field struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	Datatype string `json:"datatype"`
}

// Service is one registration row of the report. The JSON names are the
// report's generated column ids.
type Service struct {
	ID            json.Number `json:"id"`
	SerialNumber  string      `json:"fullserialnumbe_trationrations"`
	ServiceNumber string      `json:"servicenumbers_icespt7a"`
	StartPoint    string      `json:"startpoint_espt"`
	FinishPoint   string      `json:"endpoint_sp"`
	Via           string      `json:"via_services_pt7atfu9e78z39yqc"`
	StartDate     string      `json:"proposedstartda_rviceslvicespt"`
}

// Response is the decoded report.
type Response struct {
	Fields []Field   `json:"fields"`
	Data   []Service `json:"data"`
}

// Fetch posts the report request and decodes the result. A 204 or an empty
// body yields an empty Response rather than an error.
func (c *Client) Fetch(ctx context.Context) (*Response, error) {
	logger := logging.FromContext(ctx)

	endpoint := c.url
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + c.params.Encode()
	} else {
		endpoint += "?" + c.params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, newAPIError(ErrorBadData, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newAPIError(ErrorTimeout, "report request timed out", err)
		}
		return nil, newAPIError(ErrorUnavailable, "report request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		logger.Warn("weca api returned no content")
		return &Response{}, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newAPIError(ErrorTimeout, "reading report timed out", err)
		}
		return nil, newAPIError(ErrorUnavailable, "read report", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		logger.Warn("weca api returned an empty body")
		return &Response{}, nil
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newAPIError(ErrorBadData, "decode report", err)
	}
	logger.Debug("weca report fetched", "services", len(parsed.Data), "fields", len(parsed.Fields))
	return &parsed, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return newAPIError(ErrorAuthentication, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return newAPIError(ErrorUnavailable, fmt.Sprintf("status %d", resp.StatusCode), nil)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newAPIError(ErrorBadData, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
