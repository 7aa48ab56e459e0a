package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/busreg/internal/logging"
)

// DefaultSubmissionTimeout bounds one pipeline run.
const DefaultSubmissionTimeout = 10 * time.Minute

// reportSaveTimeout bounds saving the report after the run context expired.
const reportSaveTimeout = 30 * time.Second

// NextStepCommitOrDiscard tells the submitter what to do with staged rows.
const NextStepCommitOrDiscard = "Commit or Discard"

// Dependencies are the collaborators of the pipeline.
type Dependencies struct {
	Scanner   Scanner
	Authority AuthorityClient
	Staging   StagingStore
	Upserter  Upserter
	Reports   ReportStore
	Searcher  RegistrationSearcher
	Metrics   *Metrics
}

// ServiceConfig tunes the pipeline.
type ServiceConfig struct {
	Encodings          []string
	DefaultTrafficArea string
	Timeout            time.Duration
	MaxConcurrent      int
	MaxWait            time.Duration
}

// Service runs submissions through the pipeline and exposes the staging,
// report and search operations built on top of it.
type Service struct {
	deps      Dependencies
	metrics   *Metrics
	limiter   *SubmissionLimiter
	validator *RowValidator
	encodings []string
	timeout   time.Duration

	mu          sync.RWMutex
	submissions map[string]*activeSubmission
	wg          sync.WaitGroup
}

type activeSubmission struct {
	ID          string
	SubmitterID string
	TenantID    string
	FileName    string
	StartedAt   time.Time
	BatchID     string
}

// NewService validates deps and builds a Service.
func NewService(deps Dependencies, cfg ServiceConfig) (*Service, error) {
	switch {
	case deps.Scanner == nil:
		return nil, errors.New("scanner is required")
	case deps.Authority == nil:
		return nil, errors.New("authority client is required")
	case deps.Staging == nil:
		return nil, errors.New("staging store is required")
	case deps.Upserter == nil:
		return nil, errors.New("upserter is required")
	case deps.Reports == nil:
		return nil, errors.New("report store is required")
	case deps.Searcher == nil:
		return nil, errors.New("registration searcher is required")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSubmissionTimeout
	}
	encodings := cfg.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	return &Service{
		deps:        deps,
		metrics:     metrics,
		limiter:     NewSubmissionLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		validator:   NewRowValidator(cfg.DefaultTrafficArea),
		encodings:   encodings,
		timeout:     timeout,
		submissions: make(map[string]*activeSubmission),
	}, nil
}

// StartSubmission queues data for processing and returns the submission id
// immediately. Results are collected later with GetReport.
//
// Submissions are refused up front while the submitter still has an
// unresolved staging batch; the batch open inside the pipeline re-checks
// this atomically.
func (s *Service) StartSubmission(ctx context.Context, id Identity, fileName string, data []byte) (string, error) {
	if id.SubmitterID == "" || id.TenantID == "" {
		return "", ErrNoIdentity
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	open, err := s.deps.Staging.HasOpenBatch(ctx, id.SubmitterID)
	if err != nil {
		return "", fmt.Errorf("check open batch: %w", err)
	}
	if open {
		return "", ErrPreviousProcessNotCompleted
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	sub := &activeSubmission{
		ID:          uuid.New().String(),
		SubmitterID: id.SubmitterID,
		TenantID:    id.TenantID,
		FileName:    fileName,
		StartedAt:   time.Now(),
	}

	logger := logging.ForSubmission(ctx, sub.ID, id.SubmitterID).With(
		"tenant_id", id.TenantID,
		"file_name", fileName,
	)
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	runCtx = logging.WithLogger(runCtx, logger)

	s.mu.Lock()
	s.submissions[sub.ID] = sub
	s.mu.Unlock()

	s.metrics.SubmissionsStarted.Inc()
	s.metrics.ActivePipelines.Inc()
	s.wg.Add(1)

	logger.Info("submission accepted", "bytes", len(data))

	go s.processSubmission(runCtx, cancel, sub, id, data)

	return sub.ID, nil
}

func (s *Service) processSubmission(ctx context.Context, cancel context.CancelFunc, sub *activeSubmission, id Identity, data []byte) {
	logger := logging.FromContext(ctx)

	defer func() {
		cancel()
		s.limiter.Release()
		s.metrics.ActivePipelines.Dec()

		s.mu.Lock()
		delete(s.submissions, sub.ID)
		s.mu.Unlock()

		s.wg.Done()
	}()

	report, err := s.run(ctx, sub, id, data)
	if err != nil {
		report = FailedReport(sub.ID, sub.SubmitterID, sub.FileName, err)
		logger.Warn("submission failed",
			"failure_kind", report.Failure.Kind,
			"stage", report.Failure.Stage,
			"error", err,
		)
	} else {
		logger.Info("submission completed",
			"stage_id", report.BatchID,
			"accepted", report.Accepted,
			"rejected_structural", len(report.RejectedStructural),
			"rejected_duplicate", len(report.RejectedDuplicate),
			"rejected_authority", len(report.RejectedAuthority),
			"rejected_conflict", len(report.RejectedConflict),
			"failed", len(report.FailedRows),
			"duration_ms", time.Since(sub.StartedAt).Milliseconds(),
		)
	}
	s.metrics.ObserveReport(report)

	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), reportSaveTimeout)
	defer saveCancel()
	if err := s.deps.Reports.Save(saveCtx, report); err != nil {
		logger.Error("save report failed", "error", err)
	}
}

// run executes every stage for one submission. A returned error is always
// a run-level failure; row-level problems end up in the report.
func (s *Service) run(ctx context.Context, sub *activeSubmission, id Identity, data []byte) (*Report, error) {
	logger := logging.FromContext(ctx)

	start := time.Now()
	clean, err := s.deps.Scanner.Scan(ctx, sub.ID, data)
	s.metrics.ObserveStage(StageScan, start)
	if err != nil {
		return nil, fileFailure(StageScan, fmt.Errorf("%w: %v", ErrFileNotClean, err))
	}
	if !clean {
		return nil, fileFailure(StageScan, ErrFileNotClean)
	}

	start = time.Now()
	rows, err := ParseTable(data, s.encodings)
	s.metrics.ObserveStage(StageParse, start)
	if err != nil {
		return nil, fileFailure(StageParse, err)
	}
	logger.Debug("rows parsed", "rows", len(rows))

	outcomes, survivors := s.evaluate(rows)

	start = time.Now()
	cv, err := CrossValidate(ctx, s.deps.Authority, survivors)
	s.metrics.ObserveStage(StageAuthority, start)
	if err != nil {
		return nil, err
	}
	for _, idx := range sortedIndices(cv.Rejected) {
		outcomes = append(outcomes, RejectedAuthority(idx, cv.Rejected[idx]))
	}

	if len(cv.Matched) == 0 {
		return BuildReport(sub.ID, sub.SubmitterID, sub.FileName, "", outcomes), nil
	}

	start = time.Now()
	batchID, err := s.deps.Staging.Open(ctx, id.SubmitterID, id.TenantID, sub.ID)
	s.metrics.ObserveStage(StageStaging, start)
	if err != nil {
		if errors.Is(err, ErrPreviousProcessNotCompleted) {
			return nil, coordinationFailure(StageStaging, err)
		}
		return nil, upstreamFailure(StageStaging, err)
	}
	s.mu.Lock()
	sub.BatchID = batchID
	s.mu.Unlock()
	logger = logger.With("stage_id", batchID)
	logger.Info("staging batch opened", "rows", len(cv.Matched))

	start = time.Now()
	accepted := 0
	for _, idx := range sortedIndices(cv.Matched) {
		rec := survivors[idx]
		meta := cv.Matched[idx]

		if err := s.deps.Upserter.Upsert(ctx, id.TenantID, batchID, rec, meta); err != nil {
			if ctx.Err() != nil {
				s.abandonBatch(ctx, id.SubmitterID, batchID)
				return nil, upstreamFailure(StagePersist, ctx.Err())
			}
			if errors.Is(err, ErrRecordAlreadyExists) {
				outcomes = append(outcomes, RejectedConflict(idx, ErrRecordAlreadyExists.Error()))
				continue
			}
			logger.Error("row upsert failed", "row", idx, "error", err)
			outcomes = append(outcomes, Failed(idx, "could not be stored: "+MapError(err).Message))
			continue
		}
		outcomes = append(outcomes, Accepted(idx, rec, meta))
		accepted++
	}
	s.metrics.ObserveStage(StagePersist, start)

	// A batch with nothing in it would only block the submitter.
	if accepted == 0 {
		s.abandonBatch(ctx, id.SubmitterID, batchID)
		return BuildReport(sub.ID, sub.SubmitterID, sub.FileName, "", outcomes), nil
	}

	if err := s.deps.Staging.MarkPopulated(ctx, batchID); err != nil {
		s.abandonBatch(ctx, id.SubmitterID, batchID)
		return nil, upstreamFailure(StageStaging, err)
	}

	return BuildReport(sub.ID, sub.SubmitterID, sub.FileName, batchID, outcomes), nil
}

// evaluate runs the checks that need neither network nor database:
// structural validation, then in-submission duplicate detection. It returns
// the outcomes decided so far and the records still in play.
func (s *Service) evaluate(rows []RawRow) ([]RowOutcome, map[int]CandidateRecord) {
	return Evaluate(s.validator, rows)
}

// Evaluate validates rows and rejects every member of a duplicate group.
// Rows not covered by the returned outcomes are the returned survivors.
func Evaluate(v *RowValidator, rows []RawRow) ([]RowOutcome, map[int]CandidateRecord) {
	res := v.ValidateRows(rows)

	outcomes := make([]RowOutcome, 0, len(rows))
	for _, idx := range sortedIndices(res.Invalid) {
		outcomes = append(outcomes, RejectedStructural(idx, res.Invalid[idx]))
	}

	dups := FindDuplicates(res.Valid)
	survivors := make(map[int]CandidateRecord, len(res.Valid))
	for idx, rec := range res.Valid {
		if _, dup := dups[idx]; dup {
			continue
		}
		survivors[idx] = rec
	}
	for _, idx := range sortedIndices(dups) {
		outcomes = append(outcomes, RejectedDuplicate(idx, dups[idx]))
	}
	return outcomes, survivors
}

// DryRun parses and checks data without contacting the authority or the
// store. Surviving rows are reported as accepted.
func DryRun(data []byte, encodings []string, defaultTrafficArea string) (*Report, error) {
	rows, err := ParseTable(data, encodings)
	if err != nil {
		return nil, err
	}
	outcomes, survivors := Evaluate(NewRowValidator(defaultTrafficArea), rows)
	for _, idx := range sortedIndices(survivors) {
		outcomes = append(outcomes, Accepted(idx, survivors[idx], AuthorityMetadata{}))
	}
	return BuildReport("", "", "", "", outcomes), nil
}

// abandonBatch discards a batch the run cannot finish. It uses a context
// detached from ctx so a timed-out run still cleans up.
func (s *Service) abandonBatch(ctx context.Context, submitterID, batchID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportSaveTimeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	if _, err := s.deps.Staging.Resolve(cleanupCtx, submitterID, batchID, DecisionDiscard); err != nil {
		logger.Error("discard abandoned batch failed", "stage_id", batchID, "error", err)
		return
	}
	logger.Info("abandoned batch discarded", "stage_id", batchID)
}

// GetReport returns the report of a finished submission exactly once.
// While the submission is still running it returns ErrReportPending; once
// delivered, ErrReportNotFound.
func (s *Service) GetReport(ctx context.Context, submitterID, submissionID string) (*Report, error) {
	s.mu.RLock()
	sub, running := s.submissions[submissionID]
	s.mu.RUnlock()
	if running && sub.SubmitterID == submitterID {
		return nil, ErrReportPending
	}

	report, err := s.deps.Reports.RetrieveAndDelete(ctx, submitterID, submissionID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrReportNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("report delivered",
		"submission_id", submissionID,
		"submitter_id", submitterID,
	)
	return report, nil
}

// StagingView is what a submitter sees of their unresolved batch.
type StagingView struct {
	Batches  []BatchSummary `json:"staged_processes"`
	Groups   []StagedGroup  `json:"registrations,omitempty"`
	NextStep string         `json:"next_step"`
}

// Staged returns the submitter's unresolved batches. Unless batchesOnly is
// set, the rows of the newest batch are included grouped by licence.
func (s *Service) Staged(ctx context.Context, submitterID string, batchesOnly bool) (*StagingView, error) {
	batches, err := s.deps.Staging.ListBatches(ctx, submitterID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, ErrNoStagedProcess
	}

	view := &StagingView{Batches: batches, NextStep: NextStepCommitOrDiscard}
	if batchesOnly {
		return view, nil
	}

	groups, err := s.deps.Staging.ListStagedRows(ctx, submitterID, batches[0].BatchID)
	if err != nil {
		return nil, err
	}
	view.Groups = groups
	return view, nil
}

// Resolve commits or discards a staging batch owned by submitterID. It
// returns false when the batch is unknown or already resolved, and
// ErrStagingInProgress while a run is still writing the batch.
func (s *Service) Resolve(ctx context.Context, submitterID, batchID string, decision Decision) (bool, error) {
	if s.populating(batchID) {
		return false, ErrStagingInProgress
	}

	resolved, err := s.deps.Staging.Resolve(ctx, submitterID, batchID, decision)
	if err != nil {
		return false, err
	}
	if resolved {
		s.metrics.BatchesResolved.WithLabelValues(string(decision)).Inc()
		logging.FromContext(ctx).Info("staging batch resolved",
			"stage_id", batchID,
			"submitter_id", submitterID,
			"decision", decision,
		)
	}
	return resolved, nil
}

func (s *Service) populating(batchID string) bool {
	if batchID == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.BatchID == batchID {
			return true
		}
	}
	return false
}

// Search queries committed registrations of tenantID.
func (s *Service) Search(ctx context.Context, tenantID string, q SearchQuery) (SearchResult, error) {
	q = q.Normalize()
	res, err := s.deps.Searcher.Search(ctx, tenantID, q)
	if err != nil {
		return SearchResult{}, err
	}
	res.Limit = q.Limit
	res.Page = q.Page
	return res, nil
}

// ActiveSubmissions returns the number of runs in flight.
func (s *Service) ActiveSubmissions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

// LimiterStatus reports pipeline slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForSubmissions blocks until every started run has saved its report
// or ctx is done.
func (s *Service) WaitForSubmissions(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("shutdown with submissions still running", "active", s.ActiveSubmissions())
		return ctx.Err()
	}
}
