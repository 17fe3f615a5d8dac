package features

import (
	"fmt"
	"math"
)

// Windows are the rolling lengths used by the close-derived oscillators
var Windows = []int{5, 10, 20}

// Multipliers scale the base indicator periods (ADXR 14, MACD 12/26/9)
var Multipliers = []int{1, 2, 4}

const (
	baseADXRPeriod = 14
	baseMACDFast   = 12
	baseMACDSlow   = 26
	baseMACDSignal = 9
)

// Columns returns the feature column names in their fixed order
func Columns() []string {
	cols := make([]string, 0, 3*len(Windows)+4*len(Multipliers))
	for _, prefix := range []string{"bias", "acc", "rsv"} {
		for _, n := range Windows {
			cols = append(cols, fmt.Sprintf("%s%d", prefix, n))
		}
	}
	for _, m := range Multipliers {
		cols = append(cols,
			fmt.Sprintf("ADXR%d", m),
			fmt.Sprintf("MACD%d", m),
			fmt.Sprintf("MACDsignal%d", m),
			fmt.Sprintf("MACDhist%d", m),
		)
	}
	return cols
}

// Row holds one symbol's features at the table timestamp. A nil value is missing.
type Row struct {
	Symbol string     `json:"symbol"`
	Values []*float64 `json:"values"`
}

// Table is the per-symbol feature snapshot at the latest common bar
type Table struct {
	Timestamp int64    `json:"timestamp"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`

	index map[string]int
}

// NewTable creates an empty table with the given columns
func NewTable(timestamp int64, columns []string) *Table {
	t := &Table{Timestamp: timestamp, Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// ColumnIndex returns the position of column or -1
func (t *Table) ColumnIndex(column string) int {
	if t.index != nil {
		if i, ok := t.index[column]; ok {
			return i
		}
		return -1
	}
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Symbols returns the row symbols in table order
func (t *Table) Symbols() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Symbol
	}
	return out
}

// Value returns the feature for symbol/column. ok is false if either is unknown; a nil value is missing.
func (t *Table) Value(symbol, column string) (*float64, bool) {
	ci := t.ColumnIndex(column)
	if ci < 0 {
		return nil, false
	}
	for _, r := range t.Rows {
		if r.Symbol == symbol {
			return r.Values[ci], true
		}
	}
	return nil, false
}

func (t *Table) addRow(symbol string, values []float64) {
	row := Row{Symbol: symbol, Values: make([]*float64, len(values))}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		row.Values[i] = &v
	}
	t.Rows = append(t.Rows, row)
}
