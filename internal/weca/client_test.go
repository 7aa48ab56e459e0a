package weca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/busreg/internal/config"
)

const reportJSON = `{
  "fields": [{"id": "fullserialnumbe_trationrations", "name": "Full serial number", "desc": "", "datatype": "text"}],
  "data": [
    {
      "id": 17,
      "fullserialnumbe_trationrations": "PB0000582/000123/2",
      "servicenumbers_icespt7a": "X39",
      "startpoint_espt": "Bath Bus Station",
      "endpoint_sp": "Bristol Bus Station",
      "via_services_pt7atfu9e78z39yqc": "Keynsham",
      "proposedstartda_rviceslvicespt": "5 Mar 2024"
    }
  ]
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.WecaConfig{
		URL:       srv.URL + "/report",
		AuthToken: "Token secret",
		ParamC:    "c1",
		ParamT:    "t1",
		ParamR:    "r1",
		Timeout:   time.Second,
	})
}

func TestFetch_SendsAuthorizedReportRequest(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reportJSON))
	}))

	resp, err := c.Fetch(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/report", got.URL.Path)
	assert.Equal(t, "Token secret", got.Header.Get("Authorization"))
	q := got.URL.Query()
	assert.Equal(t, "c1", q.Get("c"))
	assert.Equal(t, "t1", q.Get("t"))
	assert.Equal(t, "r1", q.Get("r"))
	assert.Equal(t, "true", q.Get("get_report_json"))
	assert.Equal(t, "json", q.Get("json_format"))

	require.Len(t, resp.Data, 1)
	svc := resp.Data[0]
	assert.Equal(t, "17", svc.ID.String())
	assert.Equal(t, "PB0000582/000123/2", svc.SerialNumber)
	assert.Equal(t, "X39", svc.ServiceNumber)
	assert.Equal(t, "5 Mar 2024", svc.StartDate)
	require.Len(t, resp.Fields, 1)
}

func TestFetch_EmptyResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no content", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}},
		{"empty body", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
		{"whitespace body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("  \n"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			resp, err := c.Fetch(context.Background())
			require.NoError(t, err)
			assert.Empty(t, resp.Data)
		})
	}
}

func TestFetch_ErrorCategories(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    ErrorCategory
	}{
		{"unauthorized", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, ErrorAuthentication},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, ErrorUnavailable},
		{"bad request", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unknown report", http.StatusBadRequest)
		}, ErrorBadData},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data": [`))
		}, ErrorBadData},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(3 * time.Second):
			case <-r.Context().Done():
			}
		}, ErrorTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, GetCategory(err))
			assert.Contains(t, err.Error(), "weca "+string(tt.want))
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(config.WecaConfig{URL: "http://weca.invalid"})
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
