package core_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/core/mocks"
)

// =============================================================================
// Pipeline Service Test Suite
// =============================================================================
// The service wires the pure stages (parse, validate, dedupe) to the
// collaborators. These tests drive whole submissions through mocked
// collaborators and assert on the report that gets saved.

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	scanner   *mocks.MockScanner
	authority *mocks.MockAuthorityClient
	staging   *mocks.MockStagingStore
	upserter  *mocks.MockUpserter
	reports   *mocks.MockReportStore
	searcher  *mocks.MockRegistrationSearcher
	svc       *core.Service
	id        core.Identity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scanner = mocks.NewMockScanner(s.ctrl)
	s.authority = mocks.NewMockAuthorityClient(s.ctrl)
	s.staging = mocks.NewMockStagingStore(s.ctrl)
	s.upserter = mocks.NewMockUpserter(s.ctrl)
	s.reports = mocks.NewMockReportStore(s.ctrl)
	s.searcher = mocks.NewMockRegistrationSearcher(s.ctrl)

	svc, err := core.NewService(core.Dependencies{
		Scanner:   s.scanner,
		Authority: s.authority,
		Staging:   s.staging,
		Upserter:  s.upserter,
		Reports:   s.reports,
		Searcher:  s.searcher,
	}, core.ServiceConfig{
		DefaultTrafficArea: "WECA",
		Timeout:            5 * time.Second,
		MaxConcurrent:      2,
		MaxWait:            time.Second,
	})
	s.Require().NoError(err)
	s.svc = svc
	s.id = core.Identity{SubmitterID: "user-1", TenantID: "tenant-1"}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// submit runs one submission to completion and returns the saved report.
func (s *ServiceSuite) submit(data []byte) *core.Report {
	var saved *core.Report
	s.reports.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r *core.Report) error {
			saved = r
			return nil
		})

	id, err := s.svc.StartSubmission(context.Background(), s.id, "regs.csv", data)
	s.Require().NoError(err)
	s.Require().NotEmpty(id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.svc.WaitForSubmissions(ctx))
	s.Require().NotNil(saved, "report was not saved")
	s.Equal(id, saved.SubmissionID)
	return saved
}

func (s *ServiceSuite) expectClean() {
	s.staging.EXPECT().HasOpenBatch(gomock.Any(), "user-1").Return(false, nil)
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
}

func meta(licence string) core.AuthorityMetadata {
	return core.AuthorityMetadata{LicenceNumber: licence, LicenceStatus: "Valid", OperatorName: "First West of England"}
}

// =============================================================================
// Constructor
// =============================================================================

func (s *ServiceSuite) TestNewService() {
	s.Run("missing collaborator returns error", func() {
		_, err := core.NewService(core.Dependencies{Scanner: s.scanner}, core.ServiceConfig{})
		s.Error(err)
		s.Contains(err.Error(), "authority client is required")
	})
}

// =============================================================================
// Submission outcomes
// =============================================================================

func (s *ServiceSuite) TestSubmission_DuplicatesAndUnknownLicence() {
	// Row 1 is unique but its licence is unknown; rows 2 and 3 collide.
	data := csvFile(
		row(map[string]string{"licenceNumber": "PB0000009", "registrationNumber": "PB0000009/1"}),
		row(nil),
		row(nil),
	)

	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), []string{"PB0000009"}).Return(map[string]core.AuthorityMetadata{}, nil)

	r := s.submit(data)

	s.Equal(core.ReportCompleted, r.Status)
	s.Equal(0, r.Accepted)
	s.Equal([]int{2, 3}, r.RejectedRows(core.OutcomeRejectedDuplicate))
	s.Equal([]int{1}, r.RejectedRows(core.OutcomeRejectedAuthority))
	s.Equal(core.ReasonLicenceNotFound, r.RejectedAuthority[0].Reason)
	s.Empty(r.BatchID)
	s.Equal(3, r.Rows())
}

func (s *ServiceSuite) TestSubmission_AcceptedRowsAreStaged() {
	data := csvFile(
		row(nil),
		row(map[string]string{"routeNumber": "12B"}),
		row(map[string]string{"grantedDate": "31/02/2024"}),
	)

	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), []string{"PB0000001"}).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), "user-1", "tenant-1", gomock.Any()).Return("batch-1", nil)
	s.upserter.EXPECT().Upsert(gomock.Any(), "tenant-1", "batch-1", gomock.Any(), meta("PB0000001")).Return(nil).Times(2)
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(nil)

	r := s.submit(data)

	s.Equal(2, r.Accepted)
	s.Equal([]int{1, 2}, r.AcceptedRows)
	s.Equal([]int{3}, r.RejectedRows(core.OutcomeRejectedStructural))
	s.Equal("grantedDate", r.RejectedStructural[0].Errors[0].Field)
	s.Equal("batch-1", r.BatchID)
}

func (s *ServiceSuite) TestSubmission_ResubmittedRowConflicts() {
	data := csvFile(row(nil))
	lookup := map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}

	// First submission is staged and committed.
	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(lookup, nil)
	s.staging.EXPECT().Open(gomock.Any(), "user-1", "tenant-1", gomock.Any()).Return("batch-1", nil)
	s.upserter.EXPECT().Upsert(gomock.Any(), "tenant-1", "batch-1", gomock.Any(), gomock.Any()).Return(nil)
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(nil)

	first := s.submit(data)
	s.Equal(1, first.Accepted)

	s.staging.EXPECT().Resolve(gomock.Any(), "user-1", "batch-1", core.DecisionCommit).Return(true, nil)
	ok, err := s.svc.Resolve(context.Background(), "user-1", "batch-1", core.DecisionCommit)
	s.Require().NoError(err)
	s.True(ok)

	// The identical row comes back in a new batch.
	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(lookup, nil)
	s.staging.EXPECT().Open(gomock.Any(), "user-1", "tenant-1", gomock.Any()).Return("batch-2", nil)
	s.upserter.EXPECT().Upsert(gomock.Any(), "tenant-1", "batch-2", gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("insert registration: %w", core.ErrRecordAlreadyExists))
	s.staging.EXPECT().Resolve(gomock.Any(), "user-1", "batch-2", core.DecisionDiscard).Return(true, nil)

	second := s.submit(data)
	s.Equal(0, second.Accepted)
	s.Equal([]int{1}, second.RejectedRows(core.OutcomeRejectedConflict))
	s.Equal(core.ErrRecordAlreadyExists.Error(), second.RejectedConflict[0].Reason)
	s.Empty(second.BatchID)
}

func (s *ServiceSuite) TestSubmission_UpsertFailureIsPerRow() {
	data := csvFile(
		row(nil),
		row(map[string]string{"routeNumber": "7"}),
	)

	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("batch-1", nil)
	gomock.InOrder(
		s.upserter.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("connection reset by peer")),
		s.upserter.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil),
	)
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(nil)

	r := s.submit(data)

	s.Equal([]int{2}, r.AcceptedRows)
	s.Empty(r.RejectedConflict, "a database error is not a conflict")
	s.Equal([]int{1}, r.RejectedRows(core.OutcomeFailed))
	s.Contains(r.FailedRows[0].Reason, "could not be stored")
	s.Equal(2, r.Rows())
}

func (s *ServiceSuite) TestSubmission_ExistingRecordIsConflict() {
	data := csvFile(
		row(nil),
		row(map[string]string{"routeNumber": "7"}),
	)

	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("batch-1", nil)
	gomock.InOrder(
		s.upserter.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("upsert registration: %w", core.ErrRecordAlreadyExists)),
		s.upserter.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil),
	)
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(nil)

	r := s.submit(data)

	s.Equal([]int{1}, r.RejectedRows(core.OutcomeRejectedConflict))
	s.Equal(core.ErrRecordAlreadyExists.Error(), r.RejectedConflict[0].Reason)
	s.Empty(r.FailedRows)
}

// =============================================================================
// Run-level failures
// =============================================================================

func (s *ServiceSuite) TestSubmission_ScannerErrorFailsClosed() {
	s.staging.EXPECT().HasOpenBatch(gomock.Any(), "user-1").Return(false, nil)
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("scan timed out"))

	r := s.submit(csvFile(row(nil)))

	s.Equal(core.ReportFailed, r.Status)
	s.Require().NotNil(r.Failure)
	s.Equal(core.FailureFile, r.Failure.Kind)
	s.Equal(core.StageScan, r.Failure.Stage)
	s.Equal("FILE006", r.Failure.Code)
	s.Zero(r.Rows())
}

func (s *ServiceSuite) TestSubmission_InfectedFile() {
	s.staging.EXPECT().HasOpenBatch(gomock.Any(), "user-1").Return(false, nil)
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)

	r := s.submit(csvFile(row(nil)))

	s.Equal(core.FailureFile, r.Failure.Kind)
}

func (s *ServiceSuite) TestSubmission_HeaderOnlyFile() {
	s.expectClean()

	r := s.submit([]byte("licenceNumber,routeNumber\n"))

	s.Equal(core.ReportFailed, r.Status)
	s.Equal(core.StageParse, r.Failure.Stage)
	s.Equal("FILE005", r.Failure.Code)
}

func (s *ServiceSuite) TestSubmission_AuthorityErrorIsUpstream() {
	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("authority unavailable: status 502"))

	r := s.submit(csvFile(row(nil)))

	s.Equal(core.ReportFailed, r.Status)
	s.Equal(core.FailureUpstream, r.Failure.Kind)
	s.Equal(core.StageAuthority, r.Failure.Stage)
	s.Equal("EXT002", r.Failure.Code)
	s.Zero(r.Rows())
}

func (s *ServiceSuite) TestSubmission_OpenConflictIsCoordination() {
	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", core.ErrPreviousProcessNotCompleted)

	r := s.submit(csvFile(row(nil)))

	s.Equal(core.FailureCoordination, r.Failure.Kind)
	s.Equal("STG001", r.Failure.Code)
}

func (s *ServiceSuite) TestSubmission_MarkPopulatedFailureDiscardsBatch() {
	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("batch-1", nil)
	s.upserter.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(errors.New("connection refused"))
	s.staging.EXPECT().Resolve(gomock.Any(), "user-1", "batch-1", core.DecisionDiscard).Return(true, nil)

	r := s.submit(csvFile(row(nil)))

	s.Equal(core.FailureUpstream, r.Failure.Kind)
	s.Equal(core.StageStaging, r.Failure.Stage)
}

// =============================================================================
// StartSubmission guards
// =============================================================================

func (s *ServiceSuite) TestStartSubmission_Guards() {
	s.Run("requires identity", func() {
		_, err := s.svc.StartSubmission(context.Background(), core.Identity{}, "f.csv", []byte("x"))
		s.ErrorIs(err, core.ErrNoIdentity)
	})

	s.Run("rejects empty upload", func() {
		_, err := s.svc.StartSubmission(context.Background(), s.id, "f.csv", nil)
		s.ErrorIs(err, core.ErrEmptyFile)
	})

	s.Run("refuses while a batch is open", func() {
		s.staging.EXPECT().HasOpenBatch(gomock.Any(), "user-1").Return(true, nil)
		_, err := s.svc.StartSubmission(context.Background(), s.id, "f.csv", []byte("x"))
		s.ErrorIs(err, core.ErrPreviousProcessNotCompleted)
	})
}

// =============================================================================
// Reports
// =============================================================================

func (s *ServiceSuite) TestGetReport_PendingWhileRunning() {
	release := make(chan struct{})
	s.staging.EXPECT().HasOpenBatch(gomock.Any(), "user-1").Return(false, nil)
	s.scanner.EXPECT().Scan(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, []byte) (bool, error) {
			<-release
			return false, nil
		})
	s.reports.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	id, err := s.svc.StartSubmission(context.Background(), s.id, "regs.csv", csvFile(row(nil)))
	s.Require().NoError(err)

	_, err = s.svc.GetReport(context.Background(), "user-1", id)
	s.ErrorIs(err, core.ErrReportPending)

	// Other submitters must not learn that the submission exists.
	s.reports.EXPECT().RetrieveAndDelete(gomock.Any(), "user-2", id).Return(nil, core.ErrNotFound)
	_, err = s.svc.GetReport(context.Background(), "user-2", id)
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(err, core.ErrReportNotFound)

	close(release)
	s.Require().NoError(s.svc.WaitForSubmissions(context.Background()))
	s.Zero(s.svc.ActiveSubmissions())
}

func (s *ServiceSuite) TestGetReport_Delivered() {
	want := &core.Report{SubmissionID: "sub-1", Status: core.ReportCompleted}
	s.reports.EXPECT().RetrieveAndDelete(gomock.Any(), "user-1", "sub-1").Return(want, nil)

	got, err := s.svc.GetReport(context.Background(), "user-1", "sub-1")
	s.Require().NoError(err)
	s.Same(want, got)
}

// =============================================================================
// Staging and search
// =============================================================================

func (s *ServiceSuite) TestStaged() {
	batches := []core.BatchSummary{{BatchID: "batch-1", Status: core.BatchInProgress, Populated: true}}
	groups := []core.StagedGroup{{LicenceNumber: "PB0000001", OperatorName: "First", RegistrationNumbers: []string{"PB0000001/1"}}}

	s.Run("batches only", func() {
		s.staging.EXPECT().ListBatches(gomock.Any(), "user-1").Return(batches, nil)
		view, err := s.svc.Staged(context.Background(), "user-1", true)
		s.Require().NoError(err)
		s.Equal(batches, view.Batches)
		s.Nil(view.Groups)
		s.Equal(core.NextStepCommitOrDiscard, view.NextStep)
	})

	s.Run("with grouped rows", func() {
		s.staging.EXPECT().ListBatches(gomock.Any(), "user-1").Return(batches, nil)
		s.staging.EXPECT().ListStagedRows(gomock.Any(), "user-1", "batch-1").Return(groups, nil)
		view, err := s.svc.Staged(context.Background(), "user-1", false)
		s.Require().NoError(err)
		s.Equal(groups, view.Groups)
	})

	s.Run("still populating", func() {
		s.staging.EXPECT().ListBatches(gomock.Any(), "user-1").Return(nil, core.ErrStagingInProgress)
		_, err := s.svc.Staged(context.Background(), "user-1", false)
		s.ErrorIs(err, core.ErrStagingInProgress)
	})

	s.Run("nothing staged", func() {
		s.staging.EXPECT().ListBatches(gomock.Any(), "user-1").Return(nil, core.ErrNoStagedProcess)
		_, err := s.svc.Staged(context.Background(), "user-1", true)
		s.ErrorIs(err, core.ErrNoStagedProcess)
	})
}

func (s *ServiceSuite) TestResolve_AlreadyResolved() {
	s.staging.EXPECT().Resolve(gomock.Any(), "user-1", "batch-1", core.DecisionDiscard).Return(false, nil)

	ok, err := s.svc.Resolve(context.Background(), "user-1", "batch-1", core.DecisionDiscard)
	s.NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestResolve_RefusedWhilePopulating() {
	upserting := make(chan struct{})
	release := make(chan struct{})

	s.expectClean()
	s.authority.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(map[string]core.AuthorityMetadata{"PB0000001": meta("PB0000001")}, nil)
	s.staging.EXPECT().Open(gomock.Any(), "user-1", "tenant-1", gomock.Any()).Return("batch-1", nil)
	s.upserter.EXPECT().Upsert(gomock.Any(), "tenant-1", "batch-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string, core.CandidateRecord, core.AuthorityMetadata) error {
			close(upserting)
			<-release
			return nil
		})
	s.staging.EXPECT().MarkPopulated(gomock.Any(), "batch-1").Return(nil)
	s.reports.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.svc.StartSubmission(context.Background(), s.id, "regs.csv", csvFile(row(nil)))
	s.Require().NoError(err)

	<-upserting
	ok, err := s.svc.Resolve(context.Background(), "user-1", "batch-1", core.DecisionCommit)
	s.ErrorIs(err, core.ErrStagingInProgress)
	s.False(ok)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.svc.WaitForSubmissions(ctx))
}

func (s *ServiceSuite) TestSearch_NormalizesPaging() {
	s.searcher.EXPECT().
		Search(gomock.Any(), "tenant-1", core.SearchQuery{OperatorName: "first", Limit: core.MaxSearchLimit, Page: 1}).
		Return(core.SearchResult{Total: 3}, nil)

	res, err := s.svc.Search(context.Background(), "tenant-1", core.SearchQuery{OperatorName: "first", Limit: 500, Page: -2})
	s.Require().NoError(err)
	s.Equal(3, res.Total)
	s.Equal(core.MaxSearchLimit, res.Limit)
	s.Equal(1, res.Page)
}

// =============================================================================
// Fixtures
// =============================================================================

var columns = []string{
	"licenceNumber", "registrationNumber", "routeNumber", "routeDescription",
	"variationNumber", "startPoint", "finishPoint", "via", "subsidised",
	"subsidyDetail", "isShortNotice", "receivedDate", "grantedDate",
	"effectiveDate", "endDate", "operatorName", "busServiceTypeId",
	"busServiceTypeDescription", "trafficAreaId", "applicationType",
	"publicationText", "otherDetails",
}

func row(overrides map[string]string) map[string]string {
	r := map[string]string{
		"licenceNumber":             "PB0000001",
		"registrationNumber":        "PB0000001/00000012",
		"routeNumber":               "12A",
		"routeDescription":          "Temple Meads to Airport",
		"variationNumber":           "0",
		"startPoint":                "Temple Meads",
		"finishPoint":               "Bristol Airport",
		"via":                       "Bedminster",
		"subsidised":                "No",
		"subsidyDetail":             "None",
		"isShortNotice":             "No",
		"receivedDate":              "01/02/2024",
		"grantedDate":               "15/02/2024",
		"effectiveDate":             "01/03/2024",
		"operatorName":              "First West of England",
		"busServiceTypeId":          "Standard",
		"busServiceTypeDescription": "Normal Stopping",
		"applicationType":           "New",
	}
	for k, v := range overrides {
		r[k] = v
	}
	return r
}

func csvFile(rows ...map[string]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	for _, r := range rows {
		rec := make([]string, len(columns))
		for i, c := range columns {
			rec[i] = r[c]
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes()
}
