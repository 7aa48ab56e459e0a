package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the pipeline and its stores. Stores return these
// (optionally wrapped); the web layer maps them to status codes.
var (
	ErrNotFound                    = errors.New("not found")
	ErrReportNotFound              = errors.New("report not found: already delivered or never produced")
	ErrReportPending               = errors.New("report not ready: submission still processing")
	ErrPreviousProcessNotCompleted = errors.New("previous process not completed: resolve the open staging batch first")
	ErrNoStagedProcess             = errors.New("no staged process found")
	ErrStagingInProgress           = errors.New("staging in progress: records are still being staged")
	ErrForbidden                   = errors.New("forbidden: staging batch belongs to another submitter")
	ErrRecordAlreadyExists         = errors.New("record already exists")
	ErrFileNotClean                = errors.New("file failed virus scan")
	ErrUndecodable                 = errors.New("encoding error: file could not be decoded")
	ErrEmptyFile                   = errors.New("empty file")
	ErrNoIdentity                  = errors.New("unauthenticated: no submitter identity")
	ErrTooManySubmissions          = errors.New("too many submissions in progress")
)

// FailureKind separates the two classes of run-level failure.
type FailureKind string

const (
	// FailureCoordination is a staging lifecycle violation.
	FailureCoordination FailureKind = "coordination"
	// FailureUpstream means a collaborator call failed; retry later.
	FailureUpstream FailureKind = "upstream"
	// FailureFile means the upload itself is unusable (unscannable, infected, undecodable).
	FailureFile FailureKind = "file"
)

// Pipeline stages, used in logs, metrics and failures.
const (
	StageScan      = "scan"
	StageParse     = "parse"
	StageAuthority = "authority"
	StageStaging   = "staging"
	StagePersist   = "persist"
	StageReport    = "report"
)

// PipelineError aborts a submission. It never describes a single row.
type PipelineError struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s failure during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func upstreamFailure(stage string, err error) *PipelineError {
	return &PipelineError{Kind: FailureUpstream, Stage: stage, Err: err}
}

func coordinationFailure(stage string, err error) *PipelineError {
	return &PipelineError{Kind: FailureCoordination, Stage: stage, Err: err}
}

func fileFailure(stage string, err error) *PipelineError {
	return &PipelineError{Kind: FailureFile, Stage: stage, Err: err}
}

// AsPipelineError unwraps err into a PipelineError when it is one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
