package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the raw, untyped content of an uploaded file: one header row plus data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadOptions controls how tabular files are read.
type ReadOptions struct {
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t' from the first line.
	Delimiter rune
	// SheetName selects an XLSX sheet by name; empty means use SheetIndex.
	SheetName string
	// SheetIndex is 1-based; <= 0 means the first sheet.
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// ParseDelimiter accepts a single character or the names comma, semicolon,
// tab; "" and "auto" mean sniff.
func ParseDelimiter(v string) (rune, error) {
	switch strings.ToLower(v) {
	case "", "auto":
		return 0, nil
	case "comma", ",":
		return ',', nil
	case "semicolon", ";":
		return ';', nil
	case "tab", "\\t", "\t":
		return '\t', nil
	}
	if r := []rune(v); len(r) == 1 {
		return r[0], nil
	}
	return 0, fmt.Errorf("invalid delimiter %q (use comma, semicolon, tab or a single character)", v)
}

// Reader decodes one tabular file format.
type Reader interface {
	CanRead(filename string) bool
	Read(name string, data []byte, opt ReadOptions) (*Table, error)
}

var readers []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	readers = append(readers, r)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// ErrUnsupported indicates a file extension no reader accepts.
var ErrUnsupported = errors.New("unsupported file format (use .csv, .tsv or .xlsx)")

// FileError reports a file that could not be read or parsed as a whole.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ReadFile reads a tabular file from disk, choosing a reader by extension.
func ReadFile(path string, opt ReadOptions) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return ReadBytes(path, data, opt)
}

// ReadBytes decodes an in-memory upload; name is used for format detection only.
func ReadBytes(name string, data []byte, opt ReadOptions) (*Table, error) {
	for _, r := range readers {
		if !r.CanRead(name) {
			continue
		}
		t, err := r.Read(filepath.Base(name), data, opt)
		if err != nil {
			return nil, &FileError{Path: name, Err: err}
		}
		t.Header = NormalizeHeaders(t.Header)
		return t, nil
	}
	return nil, &FileError{Path: name, Err: ErrUnsupported}
}

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvReader) Read(name string, data []byte, opt ReadOptions) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = delim

	t := &Table{Name: name}
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t.Header = header
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			break
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// sniffDelimiter picks the most frequent candidate delimiter in the first line.
func sniffDelimiter(name string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxReader) Read(name string, data []byte, opt ReadOptions) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in workbook")
	}
	sheet := ""
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found; available sheets: %s", opt.SheetName, strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}

	// Raw values keep numbers unformatted; dates arrive as serials for ParseDate.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	t := &Table{Name: name}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	for _, row := range rows[1:] {
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			break
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// excelColumnName converts a 0-based index to an Excel-style column name (0 -> A, 26 -> AA).
func excelColumnName(index int) string {
	result := ""
	index++
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// NormalizeHeaders trims header names and replaces blank ones with Unnamed_A, Unnamed_B, ...
func NormalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	blank := 0
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			out[i] = "Unnamed_" + excelColumnName(blank)
			blank++
			continue
		}
		out[i] = h
	}
	return out
}
