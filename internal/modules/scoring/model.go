// Package scoring ranks the universe with a pre-trained model and selects the top symbols.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/vmihailenco/msgpack/v5"
)

// LinearModel is a pre-trained linear ranking model over the feature columns.
// A missing feature takes its Fill value when one is given and contributes nothing otherwise.
type LinearModel struct {
	Version   string             `json:"version" msgpack:"version"`
	Intercept float64            `json:"intercept" msgpack:"intercept"`
	Weights   map[string]float64 `json:"weights" msgpack:"weights"`
	Fill      map[string]float64 `json:"fill,omitempty" msgpack:"fill,omitempty"`
}

// DecodeModel parses a model artifact. name selects the codec: .msgpack/.mpk are
// MessagePack, anything else is JSON.
func DecodeModel(name string, data []byte) (*LinearModel, error) {
	var m LinearModel
	switch strings.ToLower(filepath.Ext(name)) {
	case ".msgpack", ".mpk":
		if err := msgpack.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decode msgpack artifact %s: %v", domain.ErrModelUnavailable, name, err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decode json artifact %s: %v", domain.ErrModelUnavailable, name, err)
		}
	}
	if err := m.Validate(features.Columns()); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeModel serializes the model in the codec selected by name
func EncodeModel(name string, m *LinearModel) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".msgpack", ".mpk":
		return msgpack.Marshal(m)
	default:
		return json.Marshal(m)
	}
}

// Validate rejects models that reference unknown columns or carry non-finite parameters
func (m *LinearModel) Validate(columns []string) error {
	if len(m.Weights) == 0 {
		return fmt.Errorf("%w: model has no weights", domain.ErrModelUnavailable)
	}
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for col, w := range m.Weights {
		if !known[col] {
			return fmt.Errorf("%w: model weight for unknown feature %q", domain.ErrModelUnavailable, col)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: non-finite weight for %q", domain.ErrModelUnavailable, col)
		}
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("%w: non-finite intercept", domain.ErrModelUnavailable)
	}
	return nil
}

// Predict scores every row of table. Terms are summed in table column order so identical
// rows always get bit-identical scores.
func (m *LinearModel) Predict(table *features.Table) (map[string]float64, error) {
	if err := m.Validate(table.Columns); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(table.Rows))
	for _, row := range table.Rows {
		score := m.Intercept
		for i, col := range table.Columns {
			w, ok := m.Weights[col]
			if !ok {
				continue
			}
			v := row.Values[i]
			if v != nil {
				score += w * *v
				continue
			}
			if fill, ok := m.Fill[col]; ok {
				score += w * fill
			}
		}
		scores[row.Symbol] = score
	}
	return scores, nil
}
