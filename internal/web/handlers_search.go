package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/busreg/internal/core"
)

// SearchResponse is one page of committed registrations.
type SearchResponse struct {
	Rows  []core.Registration `json:"rows"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
	Links PageLinks           `json:"links"`
}

// PageLinks are relative URLs of the neighbouring pages.
type PageLinks struct {
	Self string `json:"self"`
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// handleSearch queries the caller's tenant. Links are built from the
// paging values of this result only.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	q, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.Search(r.Context(), id.TenantID, q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows := res.Rows
	if rows == nil {
		rows = []core.Registration{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Rows:  rows,
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
		Links: pageLinks(r.URL, res),
	})
}

func parseSearchQuery(v url.Values) (core.SearchQuery, error) {
	q := core.SearchQuery{
		LicenceNumber:      strings.TrimSpace(v.Get("licence_number")),
		RegistrationNumber: strings.TrimSpace(v.Get("registration_number")),
		OperatorName:       strings.TrimSpace(v.Get("operator_name")),
		RouteNumber:        strings.TrimSpace(v.Get("route_number")),
	}

	var err error
	if q.LatestOnly, err = parseYesNo(v.Get("latest")); err != nil {
		return q, err
	}
	if q.ActiveOnly, err = parseYesNo(v.Get("active")); err != nil {
		return q, err
	}
	if q.Strict, err = parseYesNo(v.Get("strict")); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(v, "limit"); err != nil {
		return q, err
	}
	if q.Page, err = parseIntParam(v, "page"); err != nil {
		return q, err
	}
	return q, nil
}

// parseIntParam returns 0 for an absent parameter; Normalize applies the
// defaults.
func parseIntParam(v url.Values, name string) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid number for %s: %q", errBadRequest, name, raw)
	}
	return n, nil
}

func pageLinks(u *url.URL, res core.SearchResult) PageLinks {
	link := func(page int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(res.Limit))
		return u.Path + "?" + q.Encode()
	}

	links := PageLinks{Self: link(res.Page)}
	if res.HasNext() {
		links.Next = link(res.Page + 1)
	}
	if res.Page > 1 {
		links.Prev = link(res.Page - 1)
	}
	return links
}
