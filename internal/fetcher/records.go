package fetcher

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-dedup/internal/model"
)

// Format is a supported record file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadRecords reads the records in the file at path.
func ReadRecords(ctx context.Context, path string) ([]model.Record, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSXRecords(ctx, path, XLSXOptions{})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	if format == FormatJSON {
		return ReadJSONRecords(ctx, f)
	}
	return ReadCSVRecords(ctx, f)
}

// ReadCSVRecords reads CSV rows into records keyed by the header row.
// Empty cells become null.
func ReadCSVRecords(ctx context.Context, r io.Reader) ([]model.Record, error) {
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{LazyQuotes: true})
	return collectRows(rowCh, errCh)
}

// ReadXLSXRecords reads an XLSX sheet into records keyed by its first row.
func ReadXLSXRecords(ctx context.Context, path string, opts XLSXOptions) ([]model.Record, error) {
	rowCh, errCh := StreamXLSX(ctx, path, opts)
	return collectRows(rowCh, errCh)
}

// ReadJSONRecords reads a JSON array of flat objects. Field order follows
// each object's key order.
func ReadJSONRecords(ctx context.Context, r io.Reader) ([]model.Record, error) {
	recCh, errCh := DecodeJSONArray[model.Record](ctx, r)
	records := []model.Record{}
	for rec := range recCh {
		records = append(records, rec)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return records, nil
}

func collectRows(rowCh <-chan []string, errCh <-chan error) ([]model.Record, error) {
	var header []string
	records := []model.Record{}
	for row := range rowCh {
		if header == nil {
			header = make([]string, len(row))
			for i, h := range row {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}
		if blankRow(row) {
			continue
		}
		records = append(records, rowToRecord(header, row))
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return records, nil
}

// rowToRecord maps cells onto header names. Cells past the header are
// dropped and missing cells are null.
func rowToRecord(header, row []string) model.Record {
	fields := make([]model.Field, 0, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		v := model.Null()
		if i < len(row) && row[i] != "" {
			v = model.String(row[i])
		}
		fields = append(fields, model.Field{Name: name, Value: v})
	}
	return model.NewRecord(fields...)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Header returns the union of field names across records in first-seen
// order.
func Header(records []model.Record) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, rec := range records {
		for _, name := range rec.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			header = append(header, name)
		}
	}
	return header
}

func tabulate(records []model.Record) ([]string, [][]string) {
	header := Header(records)
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(header))
		for j, name := range header {
			row[j] = rec.Text(name)
		}
		rows[i] = row
	}
	return header, rows
}

// WriteRecords writes records to path in the format its extension names.
func WriteRecords(path string, records []model.Record) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return WriteXLSX(path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", path)
	}
	if format == FormatJSON {
		err = WriteJSON(f, records)
	} else {
		err = WriteCSV(f, records)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "fetcher: close %s", path)
	}
	return err
}

// WriteCSV writes a header row and one row per record. Null values are
// written as empty cells.
func WriteCSV(w io.Writer, records []model.Record) error {
	header, rows := tabulate(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "csv: write rows")
	}
	return nil
}

// WriteXLSX writes records to a single-sheet workbook.
func WriteXLSX(path string, records []model.Record) error {
	header, rows := tabulate(records)
	return writeXLSXSheet(path, "leads", header, rows)
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "json: encode records")
}
