package weca

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/logging"
)

// Source returns the current report.
type Source interface {
	Fetch(ctx context.Context) (*Response, error)
}

// Pipeline is the part of core.Service the importer drives.
type Pipeline interface {
	StartSubmission(ctx context.Context, id core.Identity, fileName string, data []byte) (string, error)
	WaitForSubmissions(ctx context.Context) error
	GetReport(ctx context.Context, submitterID, submissionID string) (*core.Report, error)
	Resolve(ctx context.Context, submitterID, batchID string, decision core.Decision) (bool, error)
}

var _ Pipeline = (*core.Service)(nil)

// Importer submits the WECA report as one submission of a fixed service
// identity.
type Importer struct {
	source   Source
	pipeline Pipeline
	identity core.Identity
	defaults map[string]string
	now      func() time.Time
}

// NewImporter creates an Importer. defaults fills columns the report lacks
// (see ToRows).
func NewImporter(source Source, pipeline Pipeline, identity core.Identity, defaults map[string]string) *Importer {
	return &Importer{
		source:   source,
		pipeline: pipeline,
		identity: identity,
		defaults: defaults,
		now:      time.Now,
	}
}

// Result describes one import run.
type Result struct {
	Fetched      int
	SubmissionID string
	Report       *core.Report
	Committed    bool
}

// Run fetches the report and passes it through the pipeline. With commit
// set, a staged batch is committed straight away; otherwise it is left for
// review under the service identity. An empty report submits nothing.
func (im *Importer) Run(ctx context.Context, commit bool) (*Result, error) {
	logger := logging.FromContext(ctx).With(
		"submitter_id", im.identity.SubmitterID,
		"tenant_id", im.identity.TenantID,
	)

	resp, err := im.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch weca report: %w", err)
	}
	res := &Result{Fetched: len(resp.Data)}
	if res.Fetched == 0 {
		logger.Info("weca report is empty, nothing to submit")
		return res, nil
	}

	data, err := core.EncodeTable(core.Columns, ToRows(resp.Data, im.defaults))
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("weca-api-%s.csv", im.now().UTC().Format("20060102T150405Z"))
	res.SubmissionID, err = im.pipeline.StartSubmission(ctx, im.identity, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("start submission: %w", err)
	}
	logger = logger.With("submission_id", res.SubmissionID)
	logger.Info("weca report submitted", "services", res.Fetched)

	if err := im.pipeline.WaitForSubmissions(ctx); err != nil {
		return res, fmt.Errorf("wait for submission: %w", err)
	}
	res.Report, err = im.pipeline.GetReport(ctx, im.identity.SubmitterID, res.SubmissionID)
	if err != nil {
		return res, fmt.Errorf("get report: %w", err)
	}

	if res.Report.Status == core.ReportFailed {
		msg := "submission failed"
		if res.Report.Failure != nil {
			msg = res.Report.Failure.Message
		}
		return res, errors.New(msg)
	}
	if !commit || res.Report.BatchID == "" {
		return res, nil
	}

	res.Committed, err = im.pipeline.Resolve(ctx, im.identity.SubmitterID, res.Report.BatchID, core.DecisionCommit)
	if err != nil {
		return res, fmt.Errorf("commit batch %s: %w", res.Report.BatchID, err)
	}
	logger.Info("weca batch committed", "stage_id", res.Report.BatchID, "accepted", res.Report.Accepted)
	return res, nil
}
