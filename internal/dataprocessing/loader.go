package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "twcpi/internal/errors"
)

// Supported input encodings.
const (
	EncodingUTF8 = "utf-8"
	EncodingBig5 = "big5"
)

// LoadOptions configures how the raw CSV export is read.
type LoadOptions struct {
	// HeaderRow is the 1-based row holding the column names. Rows above it
	// are title decoration.
	HeaderRow int
	// Encoding is EncodingUTF8 or EncodingBig5.
	Encoding string
}

// DefaultLoadOptions returns the layout of the DGBAS CPI export.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		HeaderRow: 3,
		Encoding:  EncodingUTF8,
	}
}

// RawTable is the CSV export as read from disk, before any cleaning.
// Every row has exactly len(Header) cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// LoadFile opens path and reads it with ReadTable.
func LoadFile(path string, opts LoadOptions) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	table, err := ReadTable(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

// ReadTable decodes r and splits it into a header and data rows.
func ReadTable(r io.Reader, opts LoadOptions) (*RawTable, error) {
	if opts.HeaderRow < 1 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("header row must be >= 1, got %d", opts.HeaderRow), nil)
	}

	decoder, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, decoder))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeSchema, "malformed csv", err)
	}
	if len(records) < opts.HeaderRow {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("header row %d not found: file has %d rows", opts.HeaderRow, len(records)))
	}

	header := make([]string, len(records[opts.HeaderRow-1]))
	for i, name := range records[opts.HeaderRow-1] {
		header[i] = strings.TrimSpace(name)
	}

	table := &RawTable{Header: header}
	for _, rec := range records[opts.HeaderRow:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func decoderFor(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case EncodingBig5:
		return traditionalchinese.Big5.NewDecoder(), nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported encoding %q", encoding), nil)
	}
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
