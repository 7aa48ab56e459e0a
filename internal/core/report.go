package core

import (
	"sort"
	"time"
)

// ReportStatus is the terminal state of a submission run.
type ReportStatus string

const (
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// Rejection is one rejected row in a report.
type Rejection struct {
	Row         int          `json:"row"`
	Errors      []FieldError `json:"errors,omitempty"`
	DuplicateOf []int        `json:"duplicate_of,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// Failure describes why a run was aborted before producing row outcomes.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Stage   string      `json:"stage"`
	Message string      `json:"message"`
	Action  string      `json:"action,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Report is the summary a submitter retrieves once per submission.
type Report struct {
	SubmissionID       string       `json:"submission_id"`
	SubmitterID        string       `json:"submitter_id"`
	Status             ReportStatus `json:"status"`
	FileName           string       `json:"file_name,omitempty"`
	BatchID            string       `json:"stage_id,omitempty"`
	Accepted           int          `json:"accepted"`
	AcceptedRows       []int        `json:"accepted_rows"`
	RejectedStructural []Rejection  `json:"rejected_structural"`
	RejectedDuplicate  []Rejection  `json:"rejected_duplicate"`
	RejectedAuthority  []Rejection  `json:"rejected_authority"`
	RejectedConflict   []Rejection  `json:"rejected_conflict"`
	FailedRows         []Rejection  `json:"failed_rows"`
	Failure            *Failure     `json:"failure,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// BuildReport summarises outcomes, ordered by row index.
func BuildReport(submissionID, submitterID, fileName, batchID string, outcomes []RowOutcome) *Report {
	r := &Report{
		SubmissionID:       submissionID,
		SubmitterID:        submitterID,
		Status:             ReportCompleted,
		FileName:           fileName,
		BatchID:            batchID,
		AcceptedRows:       []int{},
		RejectedStructural: []Rejection{},
		RejectedDuplicate:  []Rejection{},
		RejectedAuthority:  []Rejection{},
		RejectedConflict:   []Rejection{},
		FailedRows:         []Rejection{},
		CreatedAt:          time.Now().UTC(),
	}

	sorted := make([]RowOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })

	for _, o := range sorted {
		switch o.Kind {
		case OutcomeAccepted:
			r.AcceptedRows = append(r.AcceptedRows, o.Row)
		case OutcomeRejectedStructural:
			r.RejectedStructural = append(r.RejectedStructural, Rejection{Row: o.Row, Errors: o.Errors})
		case OutcomeRejectedDuplicate:
			r.RejectedDuplicate = append(r.RejectedDuplicate, Rejection{Row: o.Row, DuplicateOf: o.Peers})
		case OutcomeRejectedAuthority:
			r.RejectedAuthority = append(r.RejectedAuthority, Rejection{Row: o.Row, Reason: o.Reason})
		case OutcomeRejectedConflict:
			r.RejectedConflict = append(r.RejectedConflict, Rejection{Row: o.Row, Reason: o.Reason})
		case OutcomeFailed:
			r.FailedRows = append(r.FailedRows, Rejection{Row: o.Row, Reason: o.Reason})
		}
	}
	r.Accepted = len(r.AcceptedRows)
	return r
}

// FailedReport records a run aborted by err. Row lists stay empty.
func FailedReport(submissionID, submitterID, fileName string, err error) *Report {
	r := BuildReport(submissionID, submitterID, fileName, "", nil)
	r.Status = ReportFailed

	f := &Failure{Kind: FailureUpstream, Stage: StageReport, Message: err.Error()}
	if pe, ok := AsPipelineError(err); ok {
		f.Kind = pe.Kind
		f.Stage = pe.Stage
	}
	msg := MapError(err)
	f.Code = msg.Code
	f.Action = msg.Action
	r.Failure = f
	return r
}

// RejectedRows returns the row indices of one outcome kind.
func (r *Report) RejectedRows(kind OutcomeKind) []int {
	var list []Rejection
	switch kind {
	case OutcomeAccepted:
		return r.AcceptedRows
	case OutcomeRejectedStructural:
		list = r.RejectedStructural
	case OutcomeRejectedDuplicate:
		list = r.RejectedDuplicate
	case OutcomeRejectedAuthority:
		list = r.RejectedAuthority
	case OutcomeRejectedConflict:
		list = r.RejectedConflict
	case OutcomeFailed:
		list = r.FailedRows
	}
	rows := make([]int, 0, len(list))
	for _, rej := range list {
		rows = append(rows, rej.Row)
	}
	return rows
}

// Rows returns the total number of rows the report accounts for.
func (r *Report) Rows() int {
	return r.Accepted + len(r.RejectedStructural) + len(r.RejectedDuplicate) +
		len(r.RejectedAuthority) + len(r.RejectedConflict) + len(r.FailedRows)
}
