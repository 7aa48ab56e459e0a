package core

// parse.go decodes uploaded bytes into RawRows.
//
// Uploads come from spreadsheet exports, so the same file may arrive as
// UTF-8 with or without a BOM, UTF-16 from Excel's "Unicode text", or a
// Windows code page. Candidates are tried in the configured order and the
// first one that decodes cleanly wins.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncodings is the candidate order used when none is configured.
var DefaultEncodings = []string{"utf-8", "utf-8-sig", "utf-16", "windows-1252", "latin-1"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoderFor maps a candidate name to a decoder. strict reports whether the
// decoded output must be checked for replacement characters, which the
// x/text unicode decoders emit instead of failing.
func decoderFor(name string) (dec *encoding.Decoder, strict bool, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return nil, true, nil
	case "utf-8-sig", "utf8-sig":
		return unicode.UTF8BOM.NewDecoder(), true, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), true, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), true, nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), true, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), false, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Decode returns data as UTF-8 using the first candidate that decodes it.
// The name of the winning candidate is returned alongside.
func Decode(data []byte, candidates []string) ([]byte, string, error) {
	if len(candidates) == 0 {
		candidates = DefaultEncodings
	}

	var tried []string
	for _, name := range candidates {
		dec, strict, err := decoderFor(name)
		if err != nil {
			tried = append(tried, name+" (unsupported)")
			continue
		}

		var out []byte
		if dec == nil {
			// Plain UTF-8 refuses a BOM so "utf-8-sig" gets the chance to strip it.
			if !utf8.Valid(data) || bytes.HasPrefix(data, utf8BOM) {
				tried = append(tried, name)
				continue
			}
			out = data
		} else {
			out, _, err = transform.Bytes(dec, data)
			if err != nil {
				tried = append(tried, name)
				continue
			}
		}

		if strict && (!utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError)) {
			tried = append(tried, name)
			continue
		}
		return out, name, nil
	}

	return nil, "", fmt.Errorf("%w (tried %s)", ErrUndecodable, strings.Join(tried, ", "))
}

// ParseTable decodes data and splits it into rows keyed by header column.
// Blank lines are skipped and do not consume an index: the first non-blank
// data row is row 1.
func ParseTable(data []byte, candidates []string) ([]RawRow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	text, _, err := Decode(data, candidates)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = CleanCell(h)
	}

	var rows []RawRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isEmptyRow(record) {
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				fields[col] = record[i]
			} else {
				fields[col] = ""
			}
		}
		rows = append(rows, RawRow{Index: len(rows) + 1, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows after header", ErrEmptyFile)
	}
	return rows, nil
}

// EncodeTable renders rows as UTF-8 CSV with a header of columns, in the
// layout ParseTable reads back. Columns missing from a row are left blank.
func EncodeTable(columns []string, rows []RawRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("encode table header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row.Get(col)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("encode table row %d: %w", row.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode table: %w", err)
	}
	return buf.Bytes(), nil
}

// CleanCell trims whitespace and strips surrounding quotes and the Excel
// formula prefix (="...") from a header or cell.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
