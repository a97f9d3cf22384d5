package normalize

import (
	"encoding/csv"
	"strings"
)

// CSVToJSON parses a header-first CSV blob into a slice of row objects.
// Empty lines are skipped.
func CSVToJSON(data string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1

	var header []string
	var rows []map[string]string

	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if header == nil {
			header = record
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// JSONToCSV is the inverse of CSVToJSON for a fixed, caller-supplied header
// order (spec §8 L2: CSV round-trips within a chosen header set).
func JSONToCSV(rows []map[string]string, header []string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, h := range header {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
