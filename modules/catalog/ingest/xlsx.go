package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// NewXLSXReader reads the first sheet of a workbook. Cells are read raw, so
// numbers always use the invariant '.' decimal; cfg.Locale must still be a
// valid tag.
func NewXLSXReader(r io.Reader, cfg ParserConfig) (*RecordReader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrSource, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSource)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: read sheet %q: %w", ErrSource, sheets[0], err)
	}

	rr, err := newRecordReader(&xlsxRows{file: f, rows: rows}, invariantNumbers, cfg.Columns)
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, err
	}
	return rr, nil
}

type xlsxRows struct {
	file *excelize.File
	rows *excelize.Rows
	line int
}

func (x *xlsxRows) Read() ([]string, int, error) {
	for x.rows.Next() {
		x.line++
		cols, err := x.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, x.line, err
		}
		if isBlankRow(cols) {
			continue
		}
		return cols, x.line, nil
	}
	if err := x.rows.Error(); err != nil {
		return nil, x.line, err
	}
	return nil, x.line, io.EOF
}

func (x *xlsxRows) Close() error {
	rErr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rErr
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
