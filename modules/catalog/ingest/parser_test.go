package ingest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const bggHeader = "ID;Name;Year Published;Min Players;Max Players;Play Time;Min Age;Users Rated;Rating Average;BGG Rank;Complexity Average;Owned Users;Mechanics;Domains"

func readAll(t *testing.T, r *RecordReader) []SourceRecord {
	t.Helper()
	var out []SourceRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestCSVReader_ParsesLocaleNumbers(t *testing.T) {
	src := bggHeader + "\n" +
		"174430;Gloomhaven;2017;1;4;120;14;42055;8,79;1;3,86;68323;Action Queue, Hand Management;Strategy Games, Thematic Games\n"

	r, err := NewCSVReader(strings.NewReader(src), DefaultParserConfig())
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, 2, rec.Line)
	require.NotNil(t, rec.ID)
	assert.Equal(t, int64(174430), *rec.ID)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "Gloomhaven", *rec.Name)
	require.NotNil(t, rec.RatingAverage)
	assert.True(t, decimal.RequireFromString("8.79").Equal(*rec.RatingAverage))
	require.NotNil(t, rec.ComplexityAverage)
	assert.True(t, decimal.RequireFromString("3.86").Equal(*rec.ComplexityAverage))
	require.NotNil(t, rec.YearPublished)
	assert.Equal(t, int64(2017), *rec.YearPublished)
	require.NotNil(t, rec.OwnedUsers)
	assert.Equal(t, int64(68323), *rec.OwnedUsers)
	assert.Equal(t, "Action Queue, Hand Management", rec.Mechanics)
	assert.Equal(t, "Strategy Games, Thematic Games", rec.Domains)
}

func TestCSVReader_InvariantLocale(t *testing.T) {
	src := "ID,Name,Rating Average\n1,Catan,7.5\n"
	r, err := NewCSVReader(strings.NewReader(src), ParserConfig{Delimiter: ',', Locale: "en-US", Columns: DefaultColumns()})
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].RatingAverage)
	assert.True(t, decimal.RequireFromString("7.5").Equal(*recs[0].RatingAverage))
}

func TestCSVReader_AbsentAndMalformedFields(t *testing.T) {
	src := bggHeader + "\n" +
		";;;;;;;;abc;;;;;\n" +
		"7;  ;1999;2,5;;;;;;;;;;\n"

	r, err := NewCSVReader(strings.NewReader(src), DefaultParserConfig())
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 2)

	assert.Nil(t, recs[0].ID)
	assert.Nil(t, recs[0].Name)
	assert.Nil(t, recs[0].RatingAverage)
	assert.Empty(t, recs[0].Domains)

	require.NotNil(t, recs[1].ID)
	assert.Equal(t, int64(7), *recs[1].ID)
	assert.Nil(t, recs[1].Name, "blank name is absent")
	assert.Nil(t, recs[1].MinPlayers, "fractional value in an integer column is absent")
	assert.Equal(t, 3, recs[1].Line)
}

func TestCSVReader_HeaderMatching(t *testing.T) {
	src := "\xEF\xBB\xBF  id ;NAME;Extra\n5;Azul;ignored\n"
	r, err := NewCSVReader(strings.NewReader(src), DefaultParserConfig())
	require.NoError(t, err)
	recs := readAll(t, r)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].ID)
	assert.Equal(t, int64(5), *recs[0].ID)
	assert.Nil(t, recs[0].Rank, "missing optional column makes the field absent")
}

func TestCSVReader_MissingRequiredColumn(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("Name;Rank\nx;1\n"), DefaultParserConfig())
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = NewCSVReader(strings.NewReader("ID;Rank\n1;1\n"), DefaultParserConfig())
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestCSVReader_EmptySource(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader(""), DefaultParserConfig())
	require.ErrorIs(t, err, ErrSource)
}

func TestCSVReader_InvalidConfig(t *testing.T) {
	cfg := DefaultParserConfig()
	cfg.Delimiter = '"'
	_, err := NewCSVReader(strings.NewReader(bggHeader), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultParserConfig()
	cfg.Locale = "not a locale!"
	_, err = NewCSVReader(strings.NewReader(bggHeader), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), DefaultParserConfig())
	require.ErrorIs(t, err, ErrSource)
}

func TestOpen_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.csv")
	require.NoError(t, os.WriteFile(path, []byte(bggHeader+"\n1;Go;;;;;;;;;;;;\n"), 0o644))

	r, err := Open(path, DefaultParserConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	recs := readAll(t, r)
	require.Len(t, recs, 1)
	assert.Equal(t, "Go", *recs[0].Name)
}

func TestOpen_XLSXFile(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"ID", "Name", "Rating Average", "Domains"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{12, "Brass", 8.5, "Strategy Games"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{13, "Ark Nova"}))
	path := filepath.Join(t.TempDir(), "games.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r, err := Open(path, DefaultParserConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(12), *recs[0].ID)
	assert.Equal(t, "Brass", *recs[0].Name)
	require.NotNil(t, recs[0].RatingAverage)
	assert.True(t, decimal.RequireFromString("8.5").Equal(*recs[0].RatingAverage))
	assert.Equal(t, "Strategy Games", recs[0].Domains)
	assert.Equal(t, int64(13), *recs[1].ID)
	assert.Nil(t, recs[1].RatingAverage)
}

func TestOpen_XLSXRejectsInvalidLocale(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"ID", "Name"}))
	path := filepath.Join(t.TempDir(), "games.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultParserConfig()
	cfg.Locale = "not a locale!"
	_, err := Open(path, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	_, err = NewXLSXReader(bytes.NewReader(raw), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNumberFormatFor(t *testing.T) {
	nf, err := numberFormatFor("pt-BR")
	require.NoError(t, err)
	assert.Equal(t, ',', nf.decimal)
	assert.Equal(t, '.', nf.group)

	nf, err = numberFormatFor("en-US")
	require.NoError(t, err)
	assert.Equal(t, '.', nf.decimal)
	assert.Equal(t, ',', nf.group)
}

func TestNumberFormat_ParseInt(t *testing.T) {
	nf := numberFormat{decimal: ',', group: '.'}
	cases := []struct {
		in   string
		want *int64
	}{
		{in: "1.234", want: ptr(int64(1234))},
		{in: " 42 ", want: ptr(int64(42))},
		{in: "-3", want: ptr(int64(-3))},
		{in: "4,0", want: ptr(int64(4))},
		{in: "4,5"},
		{in: ""},
		{in: "x"},
		{in: "99999999999999999999"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, nf.parseInt(tc.in))
		})
	}
}

func ptr[T any](v T) *T { return &v }
