package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

const utf8BOM = "\ufeff"

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithBOM prefixes output with a UTF-8 byte order mark so spreadsheet
// applications read accented names correctly.
func WithBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter renders Dataset records into CSV bytes. Text cells that a
// spreadsheet would evaluate as a formula are prefixed with a quote.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render produces CSV encoded bytes for the dataset. Missing cells are empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	if e.bom {
		buf.WriteString(utf8BOM)
	}
	w := csv.NewWriter(buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = neutralise(row[header])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// neutralise guards against formula injection. Plain numbers such as
// negative balances pass through untouched.
func neutralise(value string) string {
	if value == "" || !strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	return "'" + value
}
