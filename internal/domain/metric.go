package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit is the physical unit a metric is displayed with.
type Unit string

const (
	UnitNone        Unit = ""
	UnitSeconds     Unit = "s"
	UnitCentimeters Unit = "cm"
	UnitKilograms   Unit = "kg"
)

// Metric identifies a quantity recorded for every set of an exercise.
type Metric string

const (
	MetricReps        Metric = "reps"
	MetricWeight      Metric = "weight"
	MetricThigh2Floor Metric = "thigh2floor"
	MetricKnee2Floor  Metric = "knee2floor"
	MetricFeet2Floor  Metric = "feet2floor"
	MetricTime        Metric = "time"
)

// ErrUnknownMetric is returned when a metric name is outside the vocabulary.
var ErrUnknownMetric = errors.New("unknown metric")

var metricOrder = []Metric{
	MetricReps,
	MetricWeight,
	MetricThigh2Floor,
	MetricKnee2Floor,
	MetricFeet2Floor,
	MetricTime,
}

var metricUnits = map[Metric]Unit{
	MetricReps:        UnitNone,
	MetricWeight:      UnitKilograms,
	MetricThigh2Floor: UnitCentimeters,
	MetricKnee2Floor:  UnitCentimeters,
	MetricFeet2Floor:  UnitCentimeters,
	MetricTime:        UnitSeconds,
}

// Metrics lists the whole vocabulary in declaration order.
func Metrics() []Metric {
	return append([]Metric(nil), metricOrder...)
}

// ParseMetric resolves a metric by name, case-insensitively.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return m, nil
}

// Valid reports whether m belongs to the vocabulary.
func (m Metric) Valid() bool {
	_, ok := metricUnits[m]
	return ok
}

// Unit returns the display unit of the metric.
func (m Metric) Unit() Unit {
	return metricUnits[m]
}

// Label renders the metric with its unit, e.g. "weight(kg)".
func (m Metric) Label() string {
	if u := m.Unit(); u != UnitNone {
		return fmt.Sprintf("%s(%s)", m, u)
	}
	return string(m)
}

// FormatValue renders a metric value. Integral values have no fractional part.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
