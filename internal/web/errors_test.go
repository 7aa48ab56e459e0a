package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

func respondWithCapturedLog(t *testing.T, err error) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staging", nil)
	req = req.WithContext(logging.WithLogger(req.Context(), logger))
	rec := httptest.NewRecorder()

	respondError(rec, req, err)
	return rec, buf.String()
}

func TestRespondError_UnmappedErrorIsFlagged(t *testing.T) {
	rec, logs := respondWithCapturedLog(t, errors.New("pgx: unexpected message type 'Z'"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR000"`)
	assert.Contains(t, logs, "no user-facing message for error")
}

func TestRespondError_MappedErrorIsNotFlagged(t *testing.T) {
	rec, logs := respondWithCapturedLog(t, core.ErrNoStagedProcess)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ERR000")
	assert.NotContains(t, logs, "no user-facing message for error")
}
