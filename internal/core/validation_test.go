package core

import (
	"strings"
	"testing"
	"time"
)

func TestValidateRow_Valid(t *testing.T) {
	v := NewRowValidator("WECA")

	rec, errs := v.ValidateRow(RawRow{Index: 1, Fields: validFields(nil)})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if rec.LicenceNumber != "PB0000001" {
		t.Errorf("LicenceNumber = %q", rec.LicenceNumber)
	}
	if rec.VariationNumber != 0 {
		t.Errorf("VariationNumber = %d, want 0", rec.VariationNumber)
	}
	if rec.ApplicationType != "New" {
		t.Errorf("ApplicationType = %q, want New", rec.ApplicationType)
	}
	if rec.TrafficAreaID != "WECA" {
		t.Errorf("TrafficAreaID = %q, want default WECA", rec.TrafficAreaID)
	}
	if rec.IsShortNotice {
		t.Error("IsShortNotice = true, want false")
	}
	if rec.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", rec.EndDate)
	}
	want := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !rec.ReceivedDate.Equal(want) {
		t.Errorf("ReceivedDate = %v, want %v (day/month/year)", rec.ReceivedDate, want)
	}
}

func TestValidateRow_TrimsAndKeepsOptionalValues(t *testing.T) {
	v := NewRowValidator("WECA")

	rec, errs := v.ValidateRow(RawRow{Index: 1, Fields: validFields(map[string]string{
		ColOperatorName:    "  First West of England  ",
		ColTrafficAreaID:   "H",
		ColEndDate:         "31/12/2025",
		ColIsShortNotice:   "Yes",
		ColVariationNumber: " 3 ",
		ColOtherDetails:    "school days only",
	})})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if rec.OperatorName != "First West of England" {
		t.Errorf("OperatorName = %q, want trimmed", rec.OperatorName)
	}
	if rec.TrafficAreaID != "H" {
		t.Errorf("TrafficAreaID = %q, want H", rec.TrafficAreaID)
	}
	if rec.EndDate == nil || rec.EndDate.Year() != 2025 {
		t.Errorf("EndDate = %v, want 2025-12-31", rec.EndDate)
	}
	if !rec.IsShortNotice {
		t.Error("IsShortNotice = false, want true")
	}
	if rec.VariationNumber != 3 {
		t.Errorf("VariationNumber = %d, want 3", rec.VariationNumber)
	}
	if rec.OtherDetails != "school days only" {
		t.Errorf("OtherDetails = %q", rec.OtherDetails)
	}
}

func TestValidateRow_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantField string
		wantMsg   string
	}{
		{
			name:      "empty required field",
			overrides: map[string]string{ColStartPoint: "  "},
			wantField: ColStartPoint,
			wantMsg:   "required field is empty",
		},
		{
			name:      "missing column",
			overrides: map[string]string{ColVia: "-"},
			wantField: ColVia,
			wantMsg:   "missing required column",
		},
		{
			name:      "month first date",
			overrides: map[string]string{ColGrantedDate: "02/15/2024"},
			wantField: ColGrantedDate,
			wantMsg:   "invalid date",
		},
		{
			name:      "iso date",
			overrides: map[string]string{ColEffectiveDate: "2024-03-01"},
			wantField: ColEffectiveDate,
			wantMsg:   "invalid date",
		},
		{
			name:      "bad optional end date",
			overrides: map[string]string{ColEndDate: "soon"},
			wantField: ColEndDate,
			wantMsg:   "invalid date",
		},
		{
			name:      "non integer variation",
			overrides: map[string]string{ColVariationNumber: "1.5"},
			wantField: ColVariationNumber,
			wantMsg:   "must be an integer",
		},
		{
			name:      "bad boolean",
			overrides: map[string]string{ColIsShortNotice: "maybe"},
			wantField: ColIsShortNotice,
			wantMsg:   "invalid boolean",
		},
		{
			name:      "registration number without slash",
			overrides: map[string]string{ColRegistrationNumber: "PB000000100000012"},
			wantField: ColRegistrationNumber,
			wantMsg:   "invalid registration number",
		},
		{
			name:      "registration number with leading symbol",
			overrides: map[string]string{ColRegistrationNumber: "#PB1/2"},
			wantField: ColRegistrationNumber,
			wantMsg:   "invalid registration number",
		},
		{
			name:      "registration number with two slashes",
			overrides: map[string]string{ColRegistrationNumber: "PB1/2/3"},
			wantField: ColRegistrationNumber,
			wantMsg:   "invalid registration number",
		},
		{
			name:      "registration number with spaces and punctuation",
			overrides: map[string]string{ColRegistrationNumber: "x y/z!!"},
			wantField: ColRegistrationNumber,
			wantMsg:   "invalid registration number",
		},
		{
			name:      "route number with dash",
			overrides: map[string]string{ColRouteNumber: "12-A"},
			wantField: ColRouteNumber,
			wantMsg:   "invalid characters found in route number, please avoid using any of (_ - / . ,)",
		},
		{
			name:      "route number with underscore",
			overrides: map[string]string{ColRouteNumber: "X_1"},
			wantField: ColRouteNumber,
			wantMsg:   "invalid characters found in route number",
		},
		{
			name:      "unknown application type",
			overrides: map[string]string{ColApplicationType: "renewal"},
			wantField: ColApplicationType,
			wantMsg:   "invalid enum",
		},
	}

	v := NewRowValidator("WECA")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := v.ValidateRow(RawRow{Index: 4, Fields: validFields(tt.overrides)})
			if len(errs) != 1 {
				t.Fatalf("got %d errors (%v), want 1", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateRow_CollectsEveryError(t *testing.T) {
	v := NewRowValidator("WECA")

	_, errs := v.ValidateRow(RawRow{Index: 1, Fields: validFields(map[string]string{
		ColLicenceNumber:   "",
		ColReceivedDate:    "yesterday",
		ColRouteNumber:     "1.2",
		ColApplicationType: "",
	})})

	got := make(map[string]bool)
	for _, e := range errs {
		got[e.Field] = true
	}
	for _, f := range []string{ColLicenceNumber, ColReceivedDate, ColRouteNumber, ColApplicationType} {
		if !got[f] {
			t.Errorf("missing error for %s in %v", f, errs)
		}
	}
	if len(errs) != 4 {
		t.Errorf("got %d errors, want 4", len(errs))
	}
}

func TestValidateRows_Partitions(t *testing.T) {
	rows := []RawRow{
		{Index: 1, Fields: validFields(nil)},
		{Index: 2, Fields: validFields(map[string]string{ColGrantedDate: ""})},
		{Index: 3, Fields: validFields(map[string]string{ColRouteNumber: "7"})},
	}

	res := ValidateRows(rows, "WECA")

	if len(res.Valid) != 2 {
		t.Errorf("Valid = %d rows, want 2", len(res.Valid))
	}
	if _, ok := res.Invalid[2]; !ok {
		t.Errorf("row 2 should be invalid, got %v", res.Invalid)
	}
	for idx := range res.Valid {
		if _, dup := res.Invalid[idx]; dup {
			t.Errorf("row %d is both valid and invalid", idx)
		}
	}
}

func TestNormalizeApplicationType(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"new", "New", true},
		{"CHANGE", "Change", true},
		{" variation ", "Variation", true},
		{"cAnCeLlAtIoN", "Cancellation", true},
		{"renewal", "Renewal", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeApplicationType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeApplicationType(%q) = (%q, %v), want (%q, %v)",
					tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFieldError_Error(t *testing.T) {
	e := FieldError{Field: ColVia, Message: "required field is empty"}
	if got := e.Error(); got != "via: required field is empty" {
		t.Errorf("Error() = %q", got)
	}
}
