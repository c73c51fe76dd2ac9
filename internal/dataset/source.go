package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// frame is one raw header+records block read from a single source.
type frame struct {
	source  string
	header  []string
	records [][]string
}

// readCSV reads a CSV file with a header row.
func readCSV(path string) (frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return frame{}, &LoadError{Source: path, Err: err}
	}
	defer f.Close()
	return parseCSV(path, f)
}

func parseCSV(source string, r io.Reader) (frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return frame{}, &LoadError{Source: source, Err: fmt.Errorf("reading header: %w", err)}
	}
	// Excel exports prefix the first header cell with a BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	fr := frame{source: source, header: header}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return frame{}, &LoadError{Source: source, Err: err}
		}
		fr.records = append(fr.records, rec)
	}
	return fr, nil
}

// readSQLite reads every row of the named tables from the SQLite database
// at path, one frame per table. The database is opened read-only and must
// already exist.
func readSQLite(ctx context.Context, path string, tables []string) ([]frame, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("%s is a directory", path)}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	frames := make([]frame, 0, len(tables))
	for _, table := range tables {
		fr, err := readSQLiteTable(ctx, db, path+"#"+table, table)
		if err != nil {
			return nil, err
		}
		frames = append(frames, fr)
	}
	return frames, nil
}

func readSQLiteTable(ctx context.Context, db *sql.DB, source, table string) (frame, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return frame{}, &LoadError{Source: source, Err: fmt.Errorf("%w: %v", ErrMissingData, err)}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return frame{}, &LoadError{Source: source, Err: err}
	}
	fr := frame{source: source, header: cols}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return frame{}, &LoadError{Source: source, Err: err}
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = sqlCell(v)
		}
		fr.records = append(fr.records, rec)
	}
	if err := rows.Err(); err != nil {
		return frame{}, &LoadError{Source: source, Err: err}
	}
	return fr, nil
}

func sqlCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// mergeFrames concatenates frames into one header and record set. The
// header is the union of normalized column names in first-seen order;
// cells a frame does not have are left empty.
func mergeFrames(frames []frame) (header []string, records [][]string) {
	pos := make(map[string]int)
	for _, fr := range frames {
		for _, h := range fr.header {
			n := NormalizeColumn(h)
			if n == "" {
				continue
			}
			if _, ok := pos[n]; !ok {
				pos[n] = len(header)
				header = append(header, n)
			}
		}
	}
	for _, fr := range frames {
		idx := make([]int, len(fr.header))
		for i, h := range fr.header {
			n := NormalizeColumn(h)
			if n == "" {
				idx[i] = -1
				continue
			}
			idx[i] = pos[n]
		}
		for _, rec := range fr.records {
			out := make([]string, len(header))
			for i, val := range rec {
				if i < len(idx) && idx[i] >= 0 {
					out[idx[i]] = val
				}
			}
			records = append(records, out)
		}
	}
	return header, records
}
