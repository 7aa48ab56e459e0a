package core

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"
)

// Scanner checks an upload for malware. It reports true only for a clean
// verdict; any error is treated as not clean by the caller.
type Scanner interface {
	Scan(ctx context.Context, fileID string, data []byte) (bool, error)
}

// AuthorityClient looks up licences in the external registry. Licences the
// authority does not know are absent from the returned map. A non-nil error
// means no decision could be made for any licence.
type AuthorityClient interface {
	Lookup(ctx context.Context, licenceNumbers []string) (map[string]AuthorityMetadata, error)
}

// StagingStore owns the staging batch lifecycle of each submitter.
type StagingStore interface {
	// HasOpenBatch reports whether the submitter has an in-progress batch.
	HasOpenBatch(ctx context.Context, submitterID string) (bool, error)
	// Open creates an in-progress batch. It fails with
	// ErrPreviousProcessNotCompleted when one already exists.
	Open(ctx context.Context, submitterID, tenantID, submissionID string) (string, error)
	// MarkPopulated records that all rows of the batch have been written.
	MarkPopulated(ctx context.Context, batchID string) error
	// ListBatches returns the submitter's batches, newest first.
	ListBatches(ctx context.Context, submitterID string) ([]BatchSummary, error)
	// ListStagedRows groups the rows of an in-progress batch by licence.
	ListStagedRows(ctx context.Context, submitterID, batchID string) ([]StagedGroup, error)
	// Resolve commits or discards an in-progress batch. It returns false
	// when the batch is unknown or already resolved.
	Resolve(ctx context.Context, submitterID, batchID string, decision Decision) (bool, error)
	// StaleBatches lists in-progress batches created before cutoff.
	StaleBatches(ctx context.Context, cutoff time.Time) ([]BatchSummary, error)
}

// Upserter writes one accepted record into a staging batch. It returns
// ErrRecordAlreadyExists when the registration is already stored.
type Upserter interface {
	Upsert(ctx context.Context, tenantID, batchID string, rec CandidateRecord, meta AuthorityMetadata) error
}

// ReportStore keeps reports until they are read once.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
	// RetrieveAndDelete returns ErrNotFound when no report is stored.
	RetrieveAndDelete(ctx context.Context, submitterID, submissionID string) (*Report, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RegistrationSearcher queries committed registrations of a tenant.
type RegistrationSearcher interface {
	Search(ctx context.Context, tenantID string, q SearchQuery) (SearchResult, error)
}
