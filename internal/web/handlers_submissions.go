package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the file limit for the form
// boundaries and headers.
const multipartOverhead = 1 << 20

// SubmitResponse acknowledges a queued submission.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	Message      string `json:"message"`
}

// handleSubmit accepts a CSV upload and queues it. The pipeline runs after
// the response; the caller polls /reports/{submissionID}.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Submission.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(w, r, errFileTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondError(w, r, errNotCSV)
		return
	}
	if header.Size > maxSize {
		respondError(w, r, errFileTooLarge)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > maxSize {
		respondError(w, r, errFileTooLarge)
		return
	}

	submissionID, err := s.service.StartSubmission(r.Context(), id, filepath.Base(header.Filename), data)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		SubmissionID: submissionID,
		Message:      "File accepted for processing. Fetch the report with the submission id.",
	})
}

// handleReport returns a finished report once. Later reads get 404.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := s.service.GetReport(r.Context(), id.SubmitterID, chi.URLParam(r, "submissionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
