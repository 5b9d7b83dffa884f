// Package frame holds the tabular input of a decomposition: a mandatory time
// column plus named numeric feature columns and categorical pool columns.
package frame

import (
	"errors"
	"fmt"
	"sort"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// TimeColumn is the name of the mandatory time column
const TimeColumn = "t"

var (
	// ErrColumnLength is returned when a column does not match the frame length
	ErrColumnLength = errors.New("column length does not match frame length")
	// ErrDuplicateColumn is returned when a column name is already taken
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrUnknownColumn is returned when a requested column does not exist
	ErrUnknownColumn = errors.New("unknown column")
)

// Frame is an ordered, time-indexed table backed by a dataframe whose first
// series is the time column. Numeric columns are float series and
// categorical columns are string series.
type Frame struct {
	df    *dataframe.DataFrame
	times []time.Time
}

// New creates a frame indexed by the given times
func New(times []time.Time) *Frame {
	t := append([]time.Time(nil), times...)
	ts := dataframe.NewSeriesTime(TimeColumn, &dataframe.SeriesInit{Capacity: len(t)}, t)
	return &Frame{
		df:    dataframe.NewDataFrame(ts),
		times: t,
	}
}

// DataFrame returns the underlying table. Callers must not change its shape.
func (f *Frame) DataFrame() *dataframe.DataFrame {
	return f.df
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.times)
}

// Times returns the time column
func (f *Frame) Times() []time.Time {
	return f.times
}

// Seconds returns the time column as fractional unix seconds
func (f *Frame) Seconds() []float64 {
	out := make([]float64, len(f.times))
	for i, t := range f.times {
		out[i] = float64(t.UnixNano()) / float64(time.Second)
	}
	return out
}

// AddColumn adds a numeric feature column
func (f *Frame) AddColumn(name string, values []float64) error {
	if err := f.checkNew(name, len(values)); err != nil {
		return err
	}
	return f.df.AddSeries(dataframe.NewSeriesFloat64(name, nil, values), nil)
}

// AddLabels adds a categorical column, typically used for pooling
func (f *Frame) AddLabels(name string, values []string) error {
	if err := f.checkNew(name, len(values)); err != nil {
		return err
	}
	return f.df.AddSeries(dataframe.NewSeriesString(name, nil, values), nil)
}

func (f *Frame) checkNew(name string, n int) error {
	if f.series(name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
	}
	if n != len(f.times) {
		return fmt.Errorf("%w: %s has %d rows, frame has %d", ErrColumnLength, name, n, len(f.times))
	}
	return nil
}

func (f *Frame) series(name string) dataframe.Series {
	idx, err := f.df.NameToColumn(name)
	if err != nil {
		return nil
	}
	return f.df.Series[idx]
}

// Column returns a numeric column
func (f *Frame) Column(name string) ([]float64, error) {
	s, ok := f.series(name).(*dataframe.SeriesFloat64)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return s.Values, nil
}

// Labels returns a categorical column
func (f *Frame) Labels(name string) ([]string, error) {
	s, ok := f.series(name).(*dataframe.SeriesString)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := make([]string, s.NRows())
	for i := range out {
		if v, ok := s.Value(i).(string); ok {
			out[i] = v
		}
	}
	return out, nil
}

// Columns returns the numeric column names in insertion order
func (f *Frame) Columns() []string {
	var out []string
	for _, s := range f.df.Series {
		if _, ok := s.(*dataframe.SeriesFloat64); ok {
			out = append(out, s.Name())
		}
	}
	return out
}

// LabelColumns returns the categorical column names in insertion order
func (f *Frame) LabelColumns() []string {
	var out []string
	for _, s := range f.df.Series {
		if _, ok := s.(*dataframe.SeriesString); ok {
			out = append(out, s.Name())
		}
	}
	return out
}

// IsMonotonic reports whether the time column is non-decreasing
func (f *Frame) IsMonotonic() bool {
	return sort.SliceIsSorted(f.times, func(i, j int) bool {
		return f.times[i].Before(f.times[j])
	})
}

// Select returns a frame restricted to the given numeric and label columns.
// The time column is always kept.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New(f.times)
	for _, name := range names {
		switch s := f.series(name).(type) {
		case *dataframe.SeriesFloat64:
			if err := out.AddColumn(name, s.Values); err != nil {
				return nil, err
			}
		case *dataframe.SeriesString:
			labels, _ := f.Labels(name)
			if err := out.AddLabels(name, labels); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}
	return out, nil
}
