package core

import (
	"fmt"
	"strings"
	"time"
)

// RawRow is one data line of an uploaded table, keyed by column name.
// Index is the 1-based position among non-blank data rows.
type RawRow struct {
	Index  int
	Fields map[string]string
}

// Get returns the value for column, or "" when the column is absent.
func (r RawRow) Get(column string) string {
	return r.Fields[column]
}

// CandidateRecord is the typed form of a structurally valid row.
// It is built only by the validator and never mutated afterwards.
type CandidateRecord struct {
	LicenceNumber             string     `json:"licence_number"`
	RegistrationNumber        string     `json:"registration_number"`
	RouteNumber               string     `json:"route_number"`
	RouteDescription          string     `json:"route_description"`
	VariationNumber           int        `json:"variation_number"`
	StartPoint                string     `json:"start_point"`
	FinishPoint               string     `json:"finish_point"`
	Via                       string     `json:"via"`
	Subsidised                string     `json:"subsidised"`
	SubsidyDetail             string     `json:"subsidy_detail"`
	IsShortNotice             bool       `json:"is_short_notice"`
	ReceivedDate              time.Time  `json:"received_date"`
	GrantedDate               time.Time  `json:"granted_date"`
	EffectiveDate             time.Time  `json:"effective_date"`
	EndDate                   *time.Time `json:"end_date,omitempty"`
	OperatorName              string     `json:"operator_name"`
	BusServiceTypeID          string     `json:"bus_service_type_id"`
	BusServiceTypeDescription string     `json:"bus_service_type_description"`
	TrafficAreaID             string     `json:"traffic_area_id"`
	ApplicationType           string     `json:"application_type"`
	PublicationText           string     `json:"publication_text,omitempty"`
	OtherDetails              string     `json:"other_details,omitempty"`
}

// NaturalKey identifies a registration within one submission.
type NaturalKey struct {
	LicenceNumber      string
	VariationNumber    int
	RegistrationNumber string
	RouteNumber        string
}

// Key returns the in-submission duplicate key of the record.
func (c CandidateRecord) Key() NaturalKey {
	return NaturalKey{
		LicenceNumber:      c.LicenceNumber,
		VariationNumber:    c.VariationNumber,
		RegistrationNumber: c.RegistrationNumber,
		RouteNumber:        c.RouteNumber,
	}
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.LicenceNumber, k.VariationNumber, k.RegistrationNumber, k.RouteNumber)
}

// AuthorityMetadata is what the licensing authority knows about a licence.
type AuthorityMetadata struct {
	LicenceNumber       string `json:"licence_number"`
	LicenceStatus       string `json:"licence_status"`
	AuthorityLicenceID  int64  `json:"authority_licence_id,omitempty"`
	OperatorName        string `json:"operator_name"`
	AuthorityOperatorID int64  `json:"authority_operator_id,omitempty"`
}

// OutcomeKind tags a RowOutcome.
type OutcomeKind int

const (
	OutcomeAccepted OutcomeKind = iota
	OutcomeRejectedStructural
	OutcomeRejectedDuplicate
	OutcomeRejectedAuthority
	OutcomeRejectedConflict
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejectedStructural:
		return "rejected_structural"
	case OutcomeRejectedDuplicate:
		return "rejected_duplicate"
	case OutcomeRejectedAuthority:
		return "rejected_authority"
	case OutcomeRejectedConflict:
		return "rejected_conflict"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// RowOutcome is the final verdict for one input row. Which payload fields
// are set depends on Kind:
//
//	Accepted            Record, Authority
//	RejectedStructural  Errors
//	RejectedDuplicate   Peers
//	RejectedAuthority   Reason
//	RejectedConflict    Reason
//	Failed              Reason
//
// RejectedConflict means the row collides with a stored registration and
// resubmitting it will not help. Failed means the row could not be stored
// for another reason (database error) and may succeed on retry.
type RowOutcome struct {
	Row       int
	Kind      OutcomeKind
	Record    *CandidateRecord
	Authority *AuthorityMetadata
	Errors    []FieldError
	Peers     []int
	Reason    string
}

func Accepted(row int, rec CandidateRecord, meta AuthorityMetadata) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeAccepted, Record: &rec, Authority: &meta}
}

func RejectedStructural(row int, errs []FieldError) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeRejectedStructural, Errors: errs}
}

func RejectedDuplicate(row int, peers []int) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeRejectedDuplicate, Peers: peers}
}

func RejectedAuthority(row int, reason string) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeRejectedAuthority, Reason: reason}
}

func RejectedConflict(row int, reason string) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeRejectedConflict, Reason: reason}
}

func Failed(row int, reason string) RowOutcome {
	return RowOutcome{Row: row, Kind: OutcomeFailed, Reason: reason}
}

// Identity is the authenticated caller as resolved by the identity layer.
type Identity struct {
	SubmitterID   string `json:"submitter_id"`
	SubmitterName string `json:"submitter_name"`
	TenantID      string `json:"tenant_id"`
	TenantName    string `json:"tenant_name"`
}

// BatchStatus is the lifecycle state of a staging batch.
type BatchStatus string

const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
)

// Decision is the submitter's resolution of a staging batch.
type Decision string

const (
	DecisionCommit  Decision = "commit"
	DecisionDiscard Decision = "discard"
)

// ParseDecision accepts "commit" or "discard" in any case.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionCommit:
		return DecisionCommit, nil
	case DecisionDiscard:
		return DecisionDiscard, nil
	}
	return "", fmt.Errorf("invalid decision %q: must be commit or discard", s)
}

// BatchSummary describes one staging batch of a submitter.
type BatchSummary struct {
	BatchID      string      `json:"stage_id"`
	SubmissionID string      `json:"submission_id"`
	SubmitterID  string      `json:"-"`
	Status       BatchStatus `json:"status"`
	Populated    bool        `json:"populated"`
	RowCount     int         `json:"row_count"`
	CreatedAt    time.Time   `json:"created_at"`
}

// StagedGroup lists the staged registrations of one licence.
type StagedGroup struct {
	LicenceNumber       string   `json:"licence_number"`
	OperatorName        string   `json:"operator_name"`
	RegistrationNumbers []string `json:"registration_numbers"`
}

// SearchQuery filters registrations of one tenant.
type SearchQuery struct {
	LicenceNumber      string
	RegistrationNumber string
	OperatorName       string
	RouteNumber        string
	LatestOnly         bool
	ActiveOnly         bool
	Strict             bool
	Limit              int
	Page               int
}

// Search paging bounds.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// Normalize clamps paging values into range.
func (q SearchQuery) Normalize() SearchQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Registration is a committed registration as returned by search.
type Registration struct {
	ID                 int64      `json:"id"`
	LicenceNumber      string     `json:"licence_number"`
	LicenceStatus      string     `json:"licence_status"`
	OperatorName       string     `json:"operator_name"`
	RegistrationNumber string     `json:"registration_number"`
	VariationNumber    int        `json:"variation_number"`
	RouteNumber        string     `json:"route_number"`
	RouteDescription   string     `json:"route_description"`
	StartPoint         string     `json:"start_point"`
	FinishPoint        string     `json:"finish_point"`
	Via                string     `json:"via"`
	ApplicationType    string     `json:"application_type"`
	TrafficAreaID      string     `json:"traffic_area_id"`
	EffectiveDate      time.Time  `json:"effective_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}

// SearchResult is one page of registrations plus the unpaged total.
type SearchResult struct {
	Rows  []Registration `json:"rows"`
	Total int            `json:"total"`
	Limit int            `json:"limit"`
	Page  int            `json:"page"`
}

// HasNext reports whether another page exists after this one.
func (r SearchResult) HasNext() bool {
	return r.Page*r.Limit < r.Total
}
