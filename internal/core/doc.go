// Package core provides the ingestion pipeline for bus-service registrations.
//
// This package holds all domain logic independent of HTTP, Postgres, S3 or
// the licensing authority's wire format. Collaborators are consumed through
// small interfaces ([Scanner], [AuthorityClient], [StagingStore], [Upserter],
// [ReportStore]) so the pipeline can be driven by web handlers, the CLI, or
// tests without modification.
//
// # Pipeline
//
// A submission is one uploaded file. [Service.StartSubmission] returns a
// submission id immediately and processes the file in the background:
//
//  1. Scan: the bytes are handed to the antivirus [Scanner]; anything but a
//     clean verdict ends the run (fail closed).
//  2. Parse: [ParseTable] decodes the bytes with the first encoding candidate
//     that works and yields one [RawRow] per data line.
//  3. Validate: [ValidateRows] turns each row into a [CandidateRecord] or a
//     list of [FieldError]s. Fields are checked independently.
//  4. Deduplicate: [FindDuplicates] rejects every member of a group sharing
//     the natural key (licence, variation, registration, route).
//  5. Cross-validate: [CrossValidate] calls the [AuthorityClient] once for all
//     distinct licence numbers and attaches [AuthorityMetadata].
//  6. Stage: a staging batch is opened for the submitter; only one may be in
//     progress per submitter at a time.
//  7. Persist: each accepted row is upserted in its own transaction; rows
//     already present in the permanent store become conflicts.
//  8. Report: a [Report] is saved and can be retrieved exactly once.
//
// Every input row yields exactly one [RowOutcome]. Per-row problems never
// stop sibling rows. Upstream failures (scanner, authority) and coordination
// failures (staging lifecycle) abort the run and are recorded as a failed
// report carrying a [Failure] instead of row lists.
//
// # Staging
//
// Rows written by a run carry the batch id until the submitter resolves the
// batch. Commit clears the marker so the rows become ordinary registrations;
// discard deletes them. See [Service.Resolve].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Codes are grouped by category:
//
//   - DB001-DB006: Database errors
//   - VAL001-VAL006: Row validation
//   - FILE001-FILE006: File handling and virus scanning
//   - SUB001-SUB004: Submission lifecycle
//   - STG001-STG004: Staging batches
//   - EXT001-EXT003: Licensing authority
//   - AUTH001-AUTH002: Identity
package core
