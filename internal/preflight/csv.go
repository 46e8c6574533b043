// Package preflight sanity-checks a catalog CSV before it is uploaded, so an
// obviously broken file is rejected without a round trip.
package preflight

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var (
	ErrMissingHeader = errors.New("csv file has no header row")
	ErrNoDataRows    = errors.New("csv file has no data rows")
)

// Report summarizes what the server would see in the file.
type Report struct {
	Rows    int
	Skipped int
}

// CheckCSV reads the whole file. Rows with a blank name column are counted
// as skipped, matching how the server-side importer treats them.
func CheckCSV(r io.Reader) (Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return Report{}, ErrMissingHeader
	}

	var report Report
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Skipped++
			continue
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			report.Skipped++
			continue
		}
		report.Rows++
	}

	if report.Rows == 0 {
		return report, ErrNoDataRows
	}
	return report, nil
}
