package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	TimeColumn   string   // Column holding timestamps (default: "t")
	TargetColumn string   // Column holding the observed target (default: "value"); may be absent
	LabelColumns []string // Columns read as categorical labels instead of numbers
	TimeFormat   string   // Preferred timestamp layout (default: RFC3339)
	Delimiter    rune     // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		TimeColumn:   TimeColumn,
		TargetColumn: "value",
		TimeFormat:   time.RFC3339,
		Delimiter:    ',',
	}
}

// LoadCSV loads a frame and its target column from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Frame, []float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader loads a frame from an io.Reader. Every field is read as
// text and then converted: the time column to timestamps, label columns kept
// as text, everything else to numbers. The target slice is nil when the
// target column is not present, which is the usual shape of prediction
// inputs.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Frame, []float64, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	timeCol := opts.TimeColumn
	if timeCol == "" {
		timeCol = TimeColumn
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	df, err := readTable(raw, opts.Delimiter)
	if err != nil {
		if errors.Is(err, dataframe.ErrNoRows) {
			return nil, nil, errors.New("no rows found in CSV")
		}
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if df.NRows() == 0 {
		return nil, nil, errors.New("no rows found in CSV")
	}

	isLabel := make(map[string]bool, len(opts.LabelColumns))
	for _, name := range opts.LabelColumns {
		isLabel[name] = true
	}

	var timeSeries dataframe.Series
	for _, s := range df.Series {
		if strings.TrimSpace(s.Name()) == timeCol {
			timeSeries = s
		}
	}
	if timeSeries == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, timeCol)
	}

	times, err := ParseTimes(text(timeSeries), opts.TimeFormat)
	if err != nil {
		return nil, nil, err
	}

	var target []float64
	f := New(times)
	for _, s := range df.Series {
		name := strings.TrimSpace(s.Name())
		if s == timeSeries {
			continue
		}
		values := text(s)
		if isLabel[name] {
			if err := f.AddLabels(name, values); err != nil {
				return nil, nil, err
			}
			continue
		}
		nums := make([]float64, len(values))
		for i, v := range values {
			if nums[i], err = parseFloat(v); err != nil {
				return nil, nil, fmt.Errorf("line %d, column %s: %w", i+2, name, err)
			}
		}
		if name == opts.TargetColumn {
			target = nums
			continue
		}
		if err := f.AddColumn(name, nums); err != nil {
			return nil, nil, err
		}
	}
	return f, target, nil
}

// readTable parses raw CSV into string series. The dataframe constructor
// panics on repeated header names, which is reported as a duplicate column.
func readTable(raw []byte, comma rune) (df *dataframe.DataFrame, err error) {
	defer func() {
		if r := recover(); r != nil {
			df, err = nil, fmt.Errorf("%w in header: %v", ErrDuplicateColumn, r)
		}
	}()
	return imports.LoadFromCSV(context.Background(), bytes.NewReader(raw), imports.CSVLoadOptions{
		Comma:            comma,
		TrimLeadingSpace: true,
	})
}

// text returns a series as trimmed strings
func text(s dataframe.Series) []string {
	out := make([]string, s.NRows())
	for i := range out {
		if v := s.Value(i); v != nil {
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

// WriteCSV writes the time column followed by every other column. Times use
// layout, RFC3339 when empty.
func (f *Frame) WriteCSV(w io.Writer, layout string) error {
	if layout == "" {
		layout = time.RFC3339
	}
	ts := f.df.Series[0].Copy().(*dataframe.SeriesTime)
	ts.SetValueToStringFormatter(func(v interface{}) string {
		t, ok := v.(time.Time)
		if !ok {
			return ""
		}
		return t.Format(layout)
	})

	out := dataframe.NewDataFrame(append([]dataframe.Series{ts}, f.df.Series[1:]...)...)
	return exports.ExportToCSV(context.Background(), w, out)
}

func parseFloat(s string) (float64, error) {
	switch s {
	case "", "NA", "NaN", "null":
		return 0, fmt.Errorf("missing value %q", s)
	}
	return strconv.ParseFloat(s, 64)
}

func parseTime(s, preferred string) (time.Time, error) {
	formats := []string{
		preferred,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
	}
	for _, layout := range formats {
		if layout == "" {
			continue
		}
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// ParseTimes parses timestamps with the same layouts LoadCSV accepts
func ParseTimes(values []string, layout string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, s := range values {
		ts, err := parseTime(strings.TrimSpace(s), layout)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = ts
	}
	return out, nil
}
