package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"category-import-backend/internal/services/importer"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingHeader     = errors.New("missing header row")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrMalformedFile     = errors.New("malformed file")
)

// Source is a parsed upload: the normalized header and one Row per data
// record. Records whose cells are all empty are kept so row numbers match
// the file.
type Source struct {
	Filename string
	Header   []string
	Rows     []importer.Row
}

// ReadSource parses r according to the extension of filename.
func ReadSource(filename string, r io.Reader) (*Source, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		records, err = readCSV(r)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	src, err := buildSource(records)
	if err != nil {
		return nil, err
	}
	src.Filename = filename
	return src, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	sample, _ := br.Peek(1024)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(sample)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", ErrMalformedFile, err)
	}
	return records, nil
}

// sniffDelimiter picks the separator that occurs most often in the first
// line of sample, defaulting to a comma.
func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{'\t', ';'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %w", ErrMalformedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func buildSource(records [][]string) (*Source, error) {
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	named := 0
	for i, col := range records[0] {
		col = strings.ToLower(strings.TrimSpace(col))
		if col == "" {
			continue
		}
		if seen[col] {
			return nil, fmt.Errorf("%w %q in header", ErrDuplicateColumn, col)
		}
		seen[col] = true
		header[i] = col
		named++
	}
	if named == 0 {
		return nil, ErrMissingHeader
	}

	rows := make([]importer.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(importer.Row, named)
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	cols := make([]string, 0, named)
	for _, col := range header {
		if col != "" {
			cols = append(cols, col)
		}
	}
	return &Source{Header: cols, Rows: rows}, nil
}
