package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/busreg/internal/core"
)

// ResolveResponse is returned by a successful commit or discard.
type ResolveResponse struct {
	Resolved bool          `json:"resolved"`
	StageID  string        `json:"stage_id"`
	Decision core.Decision `json:"decision"`
}

// handleStaged lists the caller's unresolved batch. stagedProcessOnly=yes
// returns the batch summaries without the grouped rows.
func (s *Server) handleStaged(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	batchesOnly, err := parseYesNo(r.URL.Query().Get("stagedProcessOnly"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.service.Staged(r.Context(), id.SubmitterID, batchesOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleResolve commits or discards a staging batch.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	decision, err := core.ParseDecision(chi.URLParam(r, "decision"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: invalid enum: %v", errBadRequest, err))
		return
	}
	batchID := chi.URLParam(r, "batchID")

	resolved, err := s.service.Resolve(r.Context(), id.SubmitterID, batchID, decision)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !resolved {
		respondError(w, r, fmt.Errorf("stage %s: %w", batchID, core.ErrNoStagedProcess))
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{Resolved: true, StageID: batchID, Decision: decision})
}

// parseYesNo reads a yes/no flag; empty means no.
func parseYesNo(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no", "false", "0":
		return false, nil
	case "yes", "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("%w: invalid boolean %q, use yes or no", errBadRequest, v)
}
