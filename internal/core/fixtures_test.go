package core

import (
	"bytes"
	"encoding/csv"
)

// validFields returns a structurally valid row; overrides replace values.
// An override of "-" removes the column.
func validFields(overrides map[string]string) map[string]string {
	f := map[string]string{
		ColLicenceNumber:             "PB0000001",
		ColRegistrationNumber:        "PB0000001/00000012",
		ColRouteNumber:               "12A",
		ColRouteDescription:          "Temple Meads to Airport",
		ColVariationNumber:           "0",
		ColStartPoint:                "Temple Meads",
		ColFinishPoint:               "Bristol Airport",
		ColVia:                       "Bedminster",
		ColSubsidised:                "No",
		ColSubsidyDetail:             "None",
		ColIsShortNotice:             "no",
		ColReceivedDate:              "01/02/2024",
		ColGrantedDate:               "15/02/2024",
		ColEffectiveDate:             "01/03/2024",
		ColEndDate:                   "",
		ColOperatorName:              "First West of England",
		ColBusServiceTypeID:          "Standard",
		ColBusServiceTypeDescription: "Normal Stopping",
		ColTrafficAreaID:             "",
		ColApplicationType:           "new",
		ColPublicationText:           "",
		ColOtherDetails:              "",
	}
	for k, v := range overrides {
		if v == "-" {
			delete(f, k)
			continue
		}
		f[k] = v
	}
	return f
}

// csvFile renders rows with the full column header.
func csvFile(rows ...map[string]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Columns)
	for _, r := range rows {
		rec := make([]string, len(Columns))
		for i, c := range Columns {
			rec[i] = r[c]
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes()
}
