package core

// validation.go turns RawRows into CandidateRecords.
//
// Each field is checked on its own and every failure is collected, so a
// submitter sees all problems of a row at once. A row with at least one
// FieldError is rejected as a whole; other rows are unaffected.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Column names as they appear in the upload header.
const (
	ColLicenceNumber             = "licenceNumber"
	ColRegistrationNumber        = "registrationNumber"
	ColRouteNumber               = "routeNumber"
	ColRouteDescription          = "routeDescription"
	ColVariationNumber           = "variationNumber"
	ColStartPoint                = "startPoint"
	ColFinishPoint               = "finishPoint"
	ColVia                       = "via"
	ColSubsidised                = "subsidised"
	ColSubsidyDetail             = "subsidyDetail"
	ColIsShortNotice             = "isShortNotice"
	ColReceivedDate              = "receivedDate"
	ColGrantedDate               = "grantedDate"
	ColEffectiveDate             = "effectiveDate"
	ColEndDate                   = "endDate"
	ColOperatorName              = "operatorName"
	ColBusServiceTypeID          = "busServiceTypeId"
	ColBusServiceTypeDescription = "busServiceTypeDescription"
	ColTrafficAreaID             = "trafficAreaId"
	ColApplicationType           = "applicationType"
	ColPublicationText           = "publicationText"
	ColOtherDetails              = "otherDetails"
)

// Columns lists every recognised column in template order.
var Columns = []string{
	ColLicenceNumber, ColRegistrationNumber, ColRouteNumber, ColRouteDescription,
	ColVariationNumber, ColStartPoint, ColFinishPoint, ColVia, ColSubsidised,
	ColSubsidyDetail, ColIsShortNotice, ColReceivedDate, ColGrantedDate,
	ColEffectiveDate, ColEndDate, ColOperatorName, ColBusServiceTypeID,
	ColBusServiceTypeDescription, ColTrafficAreaID, ColApplicationType,
	ColPublicationText, ColOtherDetails,
}

// DateLayout is the only accepted date format (day/month/year).
const DateLayout = "02/01/2006"

// ApplicationTypes are the accepted values of applicationType.
var ApplicationTypes = []string{"New", "Change", "Variation", "Cancellation"}

var (
	registrationNumberRe = regexp.MustCompile(`^[a-zA-Z0-9]+/[a-zA-Z0-9]+$`)
	routeNumberForbidden = regexp.MustCompile(`[_\-/.,]`)
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult holds the output of ValidateRows. Every input row index
// appears in exactly one of the two maps.
type ValidationResult struct {
	Valid   map[int]CandidateRecord
	Invalid map[int][]FieldError
}

// RowValidator validates rows against the registration column rules.
type RowValidator struct {
	defaultTrafficArea string
}

// NewRowValidator creates a validator. defaultTrafficArea fills a blank
// trafficAreaId column.
func NewRowValidator(defaultTrafficArea string) *RowValidator {
	return &RowValidator{defaultTrafficArea: defaultTrafficArea}
}

// ValidateRows validates every row and splits them into valid and invalid.
func (v *RowValidator) ValidateRows(rows []RawRow) ValidationResult {
	res := ValidationResult{
		Valid:   make(map[int]CandidateRecord, len(rows)),
		Invalid: make(map[int][]FieldError),
	}
	for _, row := range rows {
		rec, errs := v.ValidateRow(row)
		if len(errs) > 0 {
			res.Invalid[row.Index] = errs
			continue
		}
		res.Valid[row.Index] = rec
	}
	return res
}

// ValidateRows is a convenience wrapper using the default traffic area.
func ValidateRows(rows []RawRow, defaultTrafficArea string) ValidationResult {
	return NewRowValidator(defaultTrafficArea).ValidateRows(rows)
}

// rowChecker accumulates field errors for one row.
type rowChecker struct {
	row  RawRow
	errs []FieldError
}

func (c *rowChecker) fail(field, value, msg string) {
	c.errs = append(c.errs, FieldError{Field: field, Value: value, Message: msg})
}

// text returns the trimmed value; required fields must be non-empty.
func (c *rowChecker) text(field string, required bool) string {
	raw, present := c.row.Fields[field]
	val := strings.TrimSpace(raw)
	if required && val == "" {
		if !present {
			c.fail(field, "", "missing required column")
		} else {
			c.fail(field, "", "required field is empty")
		}
	}
	return val
}

func (c *rowChecker) date(field string, required bool) *time.Time {
	val := c.text(field, required)
	if val == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, val)
	if err != nil {
		c.fail(field, val, "invalid date: expected DD/MM/YYYY")
		return nil
	}
	return &t
}

func (c *rowChecker) integer(field string) int {
	val := c.text(field, true)
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		c.fail(field, val, "invalid number: must be an integer")
		return 0
	}
	return n
}

func (c *rowChecker) boolean(field string) bool {
	val := c.text(field, true)
	if val == "" {
		return false
	}
	switch strings.ToLower(val) {
	case "true", "t", "yes", "y", "1":
		return true
	case "false", "f", "no", "n", "0":
		return false
	}
	c.fail(field, val, "invalid boolean: must be true/false, yes/no or 1/0")
	return false
}

// ValidateRow validates one row. It returns the record and a nil slice when
// the row is valid, otherwise every field error found.
func (v *RowValidator) ValidateRow(row RawRow) (CandidateRecord, []FieldError) {
	c := &rowChecker{row: row}

	rec := CandidateRecord{
		LicenceNumber:             c.text(ColLicenceNumber, true),
		RegistrationNumber:        c.text(ColRegistrationNumber, true),
		RouteNumber:               c.text(ColRouteNumber, true),
		RouteDescription:          c.text(ColRouteDescription, true),
		VariationNumber:           c.integer(ColVariationNumber),
		StartPoint:                c.text(ColStartPoint, true),
		FinishPoint:               c.text(ColFinishPoint, true),
		Via:                       c.text(ColVia, true),
		Subsidised:                c.text(ColSubsidised, true),
		SubsidyDetail:             c.text(ColSubsidyDetail, true),
		IsShortNotice:             c.boolean(ColIsShortNotice),
		OperatorName:              c.text(ColOperatorName, true),
		BusServiceTypeID:          c.text(ColBusServiceTypeID, true),
		BusServiceTypeDescription: c.text(ColBusServiceTypeDescription, true),
		TrafficAreaID:             c.text(ColTrafficAreaID, false),
		PublicationText:           c.text(ColPublicationText, false),
		OtherDetails:              c.text(ColOtherDetails, false),
	}

	if d := c.date(ColReceivedDate, true); d != nil {
		rec.ReceivedDate = *d
	}
	if d := c.date(ColGrantedDate, true); d != nil {
		rec.GrantedDate = *d
	}
	if d := c.date(ColEffectiveDate, true); d != nil {
		rec.EffectiveDate = *d
	}
	rec.EndDate = c.date(ColEndDate, false)

	if rec.TrafficAreaID == "" {
		rec.TrafficAreaID = v.defaultTrafficArea
	}

	if rec.RegistrationNumber != "" && !registrationNumberRe.MatchString(rec.RegistrationNumber) {
		c.fail(ColRegistrationNumber, rec.RegistrationNumber, "invalid registration number format: expected <alphanumeric>/<alphanumeric>")
	}
	if rec.RouteNumber != "" && routeNumberForbidden.MatchString(rec.RouteNumber) {
		c.fail(ColRouteNumber, rec.RouteNumber, "invalid characters found in route number, please avoid using any of (_ - / . ,)")
	}

	if raw := c.text(ColApplicationType, true); raw != "" {
		normalized, ok := NormalizeApplicationType(raw)
		if !ok {
			c.fail(ColApplicationType, raw, "invalid enum: must be one of "+strings.Join(ApplicationTypes, ", "))
		}
		rec.ApplicationType = normalized
	}

	if len(c.errs) > 0 {
		return CandidateRecord{}, c.errs
	}
	return rec, nil
}

// NormalizeApplicationType capitalises s ("cHANGE" -> "Change") and reports
// whether the result is an accepted application type.
func NormalizeApplicationType(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	normalized := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	for _, t := range ApplicationTypes {
		if normalized == t {
			return normalized, true
		}
	}
	return normalized, false
}
