package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is a CSV source held in memory with its header indexed by column name.
type Table struct {
	Name    string
	columns map[string]int
	Rows    [][]string
}

// ReadTable loads a CSV file whose first record is the header.
func ReadTable(path, name string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Fault{Table: name, Err: err}
	}
	defer f.Close()
	return ParseTable(f, name)
}

// ParseTable reads CSV records from r.
func ParseTable(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, &Fault{Table: name, Err: fmt.Errorf("read header: %w", err)}
	}

	t := &Table{Name: name, columns: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		t.columns[col] = i
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Fault{Table: name, Row: len(t.Rows) + 1, Err: err}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Require fails when any of cols is missing from the header.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &Fault{Table: t.Name, Err: fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))}
	}
	return nil
}

// Get returns the named cell of row, or "" when the column is absent.
func (t *Table) Get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// missingValues mirrors the tokens pandas reads as NaN by default.
var missingValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

func isMissing(s string) bool {
	return missingValues[strings.TrimSpace(s)]
}

// parseID accepts integral values written either as "12" or "12.0".
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int64(f), nil
}

// parseOptionalID returns nil for missing cells.
func parseOptionalID(s string) (*int64, error) {
	if isMissing(s) {
		return nil, nil
	}
	n, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

var (
	trueLiterals  = map[string]bool{"True": true, "TRUE": true, "true": true}
	falseLiterals = map[string]bool{"False": true, "FALSE": true, "false": true}
)

// boolColumn types a column the way the CSV loader does: the column is boolean
// only when every non-missing cell is a boolean literal. Cells of any other
// column are strings, and a string never equals true.
func boolColumn(t *Table, col string) []bool {
	out := make([]bool, len(t.Rows))
	for _, row := range t.Rows {
		v := strings.TrimSpace(t.Get(row, col))
		if isMissing(v) {
			continue
		}
		if !trueLiterals[v] && !falseLiterals[v] {
			return out
		}
	}
	for i, row := range t.Rows {
		out[i] = trueLiterals[strings.TrimSpace(t.Get(row, col))]
	}
	return out
}
