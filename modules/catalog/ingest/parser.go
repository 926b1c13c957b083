package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// SourceRecord is one data row of the source. Nil fields were absent or unparsable.
type SourceRecord struct {
	Line int

	ID                *int64
	Name              *string
	Rank              *int64
	ComplexityAverage *decimal.Decimal
	MaxPlayers        *int64
	MinAge            *int64
	MinPlayers        *int64
	OwnedUsers        *int64
	PlayTime          *int64
	RatingAverage     *decimal.Decimal
	UsersRated        *int64
	YearPublished     *int64

	// Comma-separated tag lists; empty means no tags.
	Domains   string
	Mechanics string
}

// ColumnMap names the header column that supplies each role.
type ColumnMap struct {
	ID                string
	Name              string
	Rank              string
	ComplexityAverage string
	MaxPlayers        string
	MinAge            string
	MinPlayers        string
	OwnedUsers        string
	PlayTime          string
	RatingAverage     string
	UsersRated        string
	YearPublished     string
	Domains           string
	Mechanics         string
}

// DefaultColumns matches the header of the BoardGameGeek dataset export.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		ID:                "ID",
		Name:              "Name",
		Rank:              "BGG Rank",
		ComplexityAverage: "Complexity Average",
		MaxPlayers:        "Max Players",
		MinAge:            "Min Age",
		MinPlayers:        "Min Players",
		OwnedUsers:        "Owned Users",
		PlayTime:          "Play Time",
		RatingAverage:     "Rating Average",
		UsersRated:        "Users Rated",
		YearPublished:     "Year Published",
		Domains:           "Domains",
		Mechanics:         "Mechanics",
	}
}

type ParserConfig struct {
	Delimiter rune
	// Locale is a BCP 47 tag selecting the decimal and grouping separators.
	Locale  string
	Columns ColumnMap
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Delimiter: ';',
		Locale:    "pt-BR",
		Columns:   DefaultColumns(),
	}
}

// validate rejects unusable delimiters and locales, whatever the source format.
func (c ParserConfig) validate() error {
	switch c.Delimiter {
	case 0, '\r', '\n', '"', utf8.RuneError:
		return fmt.Errorf("%w: delimiter %q", ErrInvalidConfig, c.Delimiter)
	}
	if _, err := numberFormatFor(c.Locale); err != nil {
		return err
	}
	return nil
}

// rowSource yields raw rows; line is the 1-based source position of the row.
type rowSource interface {
	Read() (row []string, line int, err error)
	Close() error
}

// RecordReader pulls SourceRecords one at a time. It is single-pass: rewinding
// requires opening the source again.
type RecordReader struct {
	src  rowSource
	cols columnIndex
	nf   numberFormat
}

// Open opens path and returns a reader for it. Files ending in .xlsx are read
// from their first sheet; everything else is read as delimited text.
func Open(path string, cfg ParserConfig) (*RecordReader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSource, path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		// the workbook is read into memory, the file handle is not kept
		defer f.Close()
		return NewXLSXReader(f, cfg)
	}

	r, err := newCSVRecordReader(f, f, cfg)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// NewCSVReader reads delimited text from r. The header row is consumed here.
func NewCSVReader(r io.Reader, cfg ParserConfig) (*RecordReader, error) {
	return newCSVRecordReader(r, nil, cfg)
}

func newCSVRecordReader(r io.Reader, closer io.Closer, cfg ParserConfig) (*RecordReader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	nf, err := numberFormatFor(cfg.Locale)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.Comma = cfg.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return newRecordReader(&csvRows{r: cr, closer: closer}, nf, cfg.Columns)
}

func newRecordReader(src rowSource, nf numberFormat, cols ColumnMap) (*RecordReader, error) {
	header, _, err := src.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrSource)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrSource, err)
	}
	idx, err := indexColumns(header, cols)
	if err != nil {
		return nil, err
	}
	return &RecordReader{src: src, cols: idx, nf: nf}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *RecordReader) Next() (SourceRecord, error) {
	row, line, err := r.src.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return SourceRecord{}, io.EOF
		}
		return SourceRecord{}, fmt.Errorf("%w: line %d: %w", ErrSource, line, err)
	}
	return r.toRecord(row, line), nil
}

func (r *RecordReader) Close() error {
	return r.src.Close()
}

func (r *RecordReader) toRecord(row []string, line int) SourceRecord {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := SourceRecord{
		Line:              line,
		ID:                r.nf.parseInt(get(r.cols.id)),
		Rank:              r.nf.parseInt(get(r.cols.rank)),
		ComplexityAverage: r.nf.parseDecimal(get(r.cols.complexityAverage)),
		MaxPlayers:        r.nf.parseInt(get(r.cols.maxPlayers)),
		MinAge:            r.nf.parseInt(get(r.cols.minAge)),
		MinPlayers:        r.nf.parseInt(get(r.cols.minPlayers)),
		OwnedUsers:        r.nf.parseInt(get(r.cols.ownedUsers)),
		PlayTime:          r.nf.parseInt(get(r.cols.playTime)),
		RatingAverage:     r.nf.parseDecimal(get(r.cols.ratingAverage)),
		UsersRated:        r.nf.parseInt(get(r.cols.usersRated)),
		YearPublished:     r.nf.parseInt(get(r.cols.yearPublished)),
		Domains:           strings.TrimSpace(get(r.cols.domains)),
		Mechanics:         strings.TrimSpace(get(r.cols.mechanics)),
	}
	if name := strings.TrimSpace(get(r.cols.name)); name != "" {
		rec.Name = &name
	}
	return rec
}

// columnIndex holds header positions; -1 means the column is not present.
type columnIndex struct {
	id, name, rank, complexityAverage, maxPlayers, minAge, minPlayers int
	ownedUsers, playTime, ratingAverage, usersRated, yearPublished    int
	domains, mechanics                                                 int
}

func indexColumns(header []string, cols ColumnMap) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := positions[key]; !ok {
			positions[key] = i
		}
	}
	find := func(name string) int {
		if i, ok := positions[strings.ToLower(strings.TrimSpace(name))]; ok && name != "" {
			return i
		}
		return -1
	}

	idx := columnIndex{
		id:                find(cols.ID),
		name:              find(cols.Name),
		rank:              find(cols.Rank),
		complexityAverage: find(cols.ComplexityAverage),
		maxPlayers:        find(cols.MaxPlayers),
		minAge:            find(cols.MinAge),
		minPlayers:        find(cols.MinPlayers),
		ownedUsers:        find(cols.OwnedUsers),
		playTime:          find(cols.PlayTime),
		ratingAverage:     find(cols.RatingAverage),
		usersRated:        find(cols.UsersRated),
		yearPublished:     find(cols.YearPublished),
		domains:           find(cols.Domains),
		mechanics:         find(cols.Mechanics),
	}
	if idx.id < 0 {
		return columnIndex{}, fmt.Errorf("%w: %q", ErrMissingColumn, cols.ID)
	}
	if idx.name < 0 {
		return columnIndex{}, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Name)
	}
	return idx, nil
}

type csvRows struct {
	r      *csv.Reader
	closer io.Closer
}

func (c *csvRows) Read() ([]string, int, error) {
	row, err := c.r.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, pe.StartLine, err
		}
		return nil, 0, err
	}
	line, _ := c.r.FieldPos(0)
	return row, line, nil
}

func (c *csvRows) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
