package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// CSVDataset is a labeled tabular dataset read from disk. Labels are kept
// as raw strings; encoding them to class integers is the caller's job.
type CSVDataset struct {
	X        [][]decimal.Decimal
	Labels   []string
	Features []string
}

// ReadCSV loads a CSV file with a header row, numeric feature columns and
// the label in the last column.
func ReadCSV(filename string) (*CSVDataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("csv must have a header row and at least one data row")
	}

	headers := records[0]
	rows := records[1:]
	labelCol := len(headers) - 1

	X := make([][]decimal.Decimal, len(rows))
	labels := make([]string, len(rows))

	for i, record := range rows {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, header has %d", i+1, len(record), len(headers))
		}

		X[i] = make([]decimal.Decimal, labelCol)
		for j := 0; j < labelCol; j++ {
			val, err := decimal.NewFromString(strings.TrimSpace(record[j]))
			if err != nil {
				return nil, fmt.Errorf("invalid numeric value %q at row %d, column %q", record[j], i+1, headers[j])
			}
			X[i][j] = val
		}
		labels[i] = strings.TrimSpace(record[labelCol])
	}

	return &CSVDataset{
		X:        X,
		Labels:   labels,
		Features: headers[:labelCol],
	}, nil
}
