// Package profiles loads demand, availability and price profiles from CSV
// files and turns district descriptions into compiler input.
package profiles

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/kilianp07/districtopt/core/model"
)

// ErrMissingColumn is returned when a requested column is not in the file.
var ErrMissingColumn = errors.New("missing column")

// Table is a CSV file of numeric time series, one column per profile and one
// row per step.
type Table struct {
	name string
	df   dataframe.DataFrame
}

// LoadCSV reads the CSV file at path. delim defaults to ','.
func LoadCSV(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.name = path
	return t, nil
}

// ReadCSV reads a CSV table with a header row. Every column is parsed as
// float; non-numeric cells become NaN and are rejected when the column is
// requested.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	if delim == 0 {
		delim = ','
	}
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(delim),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, df.Err
	}
	return &Table{name: "csv", df: df}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.df.Nrow() }

// Columns returns the header names.
func (t *Table) Columns() []string { return t.df.Names() }

// Column returns a copy of the named column.
func (t *Table) Column(name string) (model.Series, error) {
	col := t.df.Col(name)
	if col.Err != nil {
		return nil, fmt.Errorf("%s: %w %q", t.name, ErrMissingColumn, name)
	}
	vals := col.Float()
	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%s: column %q row %d is not a number", t.name, name, i+1)
		}
	}
	return model.Series(vals), nil
}
