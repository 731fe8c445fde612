package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSet is returned when metrics and values cannot form a set.
var ErrInvalidSet = errors.New("invalid set")

// Set is one performed unit of work. The metric list and the values are
// positionally paired; a Set is never mutated after construction.
type Set struct {
	metrics []Metric
	values  []float64
}

// NewSet pairs metrics with values. Metrics must be known and unique and
// every value must be a finite number.
func NewSet(metrics []Metric, values []float64) (Set, error) {
	if len(metrics) == 0 {
		return Set{}, fmt.Errorf("%w: no metrics", ErrInvalidSet)
	}
	if len(metrics) != len(values) {
		return Set{}, fmt.Errorf("%w: %d metrics, %d values", ErrInvalidSet, len(metrics), len(values))
	}
	seen := make(map[Metric]struct{}, len(metrics))
	for i, m := range metrics {
		if !m.Valid() {
			return Set{}, fmt.Errorf("%w: %w: %q", ErrInvalidSet, ErrUnknownMetric, m)
		}
		if _, dup := seen[m]; dup {
			return Set{}, fmt.Errorf("%w: duplicate metric %q", ErrInvalidSet, m)
		}
		seen[m] = struct{}{}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return Set{}, fmt.Errorf("%w: %s is not a finite number", ErrInvalidSet, m)
		}
	}
	return Set{
		metrics: append([]Metric(nil), metrics...),
		values:  append([]float64(nil), values...),
	}, nil
}

// Len returns the number of metrics in the set.
func (s Set) Len() int { return len(s.metrics) }

// Metrics returns the metric list in recording order.
func (s Set) Metrics() []Metric { return append([]Metric(nil), s.metrics...) }

// Values returns the values in recording order.
func (s Set) Values() []float64 { return append([]float64(nil), s.values...) }

// Value returns the value recorded for m.
func (s Set) Value(m Metric) (float64, bool) {
	for i, have := range s.metrics {
		if have == m {
			return s.values[i], true
		}
	}
	return 0, false
}

// Clone returns an independent copy with the same metric values.
func (s Set) Clone() Set {
	return Set{
		metrics: append([]Metric(nil), s.metrics...),
		values:  append([]float64(nil), s.values...),
	}
}

// Matches reports whether the set records exactly the given metrics in order.
func (s Set) Matches(metrics []Metric) bool {
	if len(metrics) != len(s.metrics) {
		return false
	}
	for i := range metrics {
		if metrics[i] != s.metrics[i] {
			return false
		}
	}
	return true
}

// Equal compares metric lists and values.
func (s Set) Equal(o Set) bool {
	if !s.Matches(o.metrics) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// String renders "reps=8 weight=10".
func (s Set) String() string {
	parts := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		parts[i] = string(m) + "=" + FormatValue(s.values[i])
	}
	return strings.Join(parts, " ")
}

// MarshalJSON writes {"metrics": {...}} keeping the recording order.
func (s Set) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"metrics":{`)
	for i, m := range s.metrics {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(string(m)))
		b.WriteByte(':')
		b.WriteString(FormatValue(s.values[i]))
	}
	b.WriteString(`}}`)
	return b.Bytes(), nil
}

// UnmarshalJSON reads {"metrics": {...}} keeping the document order.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Metrics) == 0 {
		return fmt.Errorf("%w: missing metrics", ErrInvalidSet)
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Metrics))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode set metrics: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: metrics must be an object", ErrInvalidSet)
	}

	var (
		metrics []Metric
		values  []float64
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode set metrics: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected token %v", ErrInvalidSet, tok)
		}
		m, err := ParseMetric(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSet, err)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode value of %s: %w", m, err)
		}
		metrics = append(metrics, m)
		values = append(values, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode set metrics: %w", err)
	}

	set, err := NewSet(metrics, values)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
