package weca

import (
	"strings"
	"time"

	"github.com/JonMunkholm/busreg/internal/core"
)

// feedDateLayout is the report's date format, e.g. "5 Mar 2024".
const feedDateLayout = "2 Jan 2006"

// SplitSerial breaks a full serial number "PB0000582/000123/2" into the
// licence ("PB0000582"), the registration ("PB0000582/000123") and the
// variation ("2"). A serial without a third part is variation "0".
func SplitSerial(serial string) (licence, registration, variation string) {
	serial = strings.TrimSpace(serial)
	parts := strings.Split(serial, "/")

	licence = parts[0]
	registration = serial
	if len(parts) >= 2 {
		registration = parts[0] + "/" + parts[1]
	}
	variation = "0"
	if len(parts) == 3 {
		variation = parts[2]
	}
	return licence, registration, variation
}

// ToRows maps report services onto upload rows. defaults supplies columns
// the report does not carry; a value from the report always wins. Rows keep
// their report order and are indexed from 1.
func ToRows(services []Service, defaults map[string]string) []core.RawRow {
	rows := make([]core.RawRow, 0, len(services))
	for i, svc := range services {
		fields := make(map[string]string, len(core.Columns))
		for col, v := range defaults {
			fields[col] = v
		}

		licence, registration, variation := SplitSerial(svc.SerialNumber)
		set(fields, core.ColLicenceNumber, licence)
		set(fields, core.ColRegistrationNumber, registration)
		set(fields, core.ColVariationNumber, variation)
		set(fields, core.ColRouteNumber, svc.ServiceNumber)
		set(fields, core.ColStartPoint, svc.StartPoint)
		set(fields, core.ColFinishPoint, svc.FinishPoint)
		set(fields, core.ColVia, svc.Via)
		set(fields, core.ColEffectiveDate, feedDate(svc.StartDate))

		if fields[core.ColRouteDescription] == "" && svc.StartPoint != "" && svc.FinishPoint != "" {
			fields[core.ColRouteDescription] = strings.TrimSpace(svc.StartPoint) + " - " + strings.TrimSpace(svc.FinishPoint)
		}

		rows = append(rows, core.RawRow{Index: i + 1, Fields: fields})
	}
	return rows
}

func set(fields map[string]string, col, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fields[col] = v
	}
}

// feedDate converts a report date to the upload layout. Unparseable values
// pass through so the validator reports them against the row.
func feedDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	t, err := time.Parse(feedDateLayout, v)
	if err != nil {
		return v
	}
	return t.Format(core.DateLayout)
}
