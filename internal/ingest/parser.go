package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrParse indicates an upload that cannot be decoded in its expected format.
var ErrParse = errors.New("ingest: unreadable upload")

// RawRow is one parsed record keyed by source column name.
type RawRow map[string]string

// headerMarker is the label that opens the data region of the legacy
// register-export dialect. Everything above it is report preamble.
const headerMarker = "Date"

// sectionTitles are summary rows interleaved in legacy exports.
var sectionTitles = map[string]struct{}{
	"Sales Summary":       {},
	"Payment Type Totals": {},
}

// legacyColumns is the fixed positional schema of the legacy dialect.
var legacyColumns = []string{
	"date",
	"transaction_type",
	"tender",
	"gross_amount",
	"discount_amount",
	"tax_amount",
	"net_amount",
	"tip_amount",
	"online_charges",
	"cashier_name",
	"transaction_id",
}

// ParseFile decodes an uploaded POS export into raw rows. The dialect is
// selected by file extension: delimited text is parsed fields-with-header,
// the legacy spreadsheet export is scanned for the header marker row.
func ParseFile(r io.Reader, filename string) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx":
		return parseLegacySheet(r)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrParse, filepath.Ext(filename))
	}
}

func parseCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return []RawRow{}, nil
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []RawRow{}
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(RawRow, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseLegacySheet converts the sheet to rows in memory, then scans for the
// header marker. The legacy export used to go through an intermediate CSV
// file on disk; that was an artifact, not a contract.
func parseLegacySheet(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rows := []RawRow{}
	inData := false
	for _, record := range records {
		first := ""
		if len(record) > 0 {
			first = strings.TrimSpace(record[0])
		}
		if !inData {
			if first == headerMarker {
				inData = true
			}
			continue
		}

		second := ""
		if len(record) > 1 {
			second = strings.TrimSpace(record[1])
		}
		if first == "" && second == "" {
			continue
		}
		// Defensive re-trigger: some exports repeat the header mid-file.
		if first == headerMarker {
			continue
		}
		if _, ok := sectionTitles[first]; ok {
			continue
		}

		row := make(RawRow, len(legacyColumns))
		for i, name := range legacyColumns {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	// Marker never found: lenient zero-row result, the upload response
	// surfaces the empty batch.
	return rows, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
