// Package csvfile reads the adhesion sheet from a delimited text export.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	ports "a3p/internal/sheets"
)

// Encoding of the exported file.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin1"
)

// ParseEncoding accepts the usual spellings of UTF-8 and ISO-8859-1.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	default:
		return "", fmt.Errorf("unsupported csv encoding %q", s)
	}
}

// Source is a CSV file on disk.
type Source struct {
	path     string
	delim    rune
	encoding Encoding
}

var _ ports.TableSource = (*Source)(nil)

func New(path string, delim rune, enc Encoding) *Source {
	if delim == 0 {
		delim = ';'
	}
	if enc == "" {
		enc = UTF8
	}
	return &Source{path: path, delim: delim, encoding: enc}
}

func (s *Source) Name() string {
	return "csv:" + s.path
}

func (s *Source) Fingerprint(_ context.Context) (string, error) {
	return ports.FileFingerprint(s.path)
}

func (s *Source) ReadTable(ctx context.Context) (ports.Table, error) {
	if err := ctx.Err(); err != nil {
		return ports.Table{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ports.Table{}, fmt.Errorf("%s: %w", s.path, ports.ErrSourceNotFound)
		}
		return ports.Table{}, err
	}
	defer f.Close()
	return Read(f, s.delim, s.encoding)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses delimited text into a table. Every column is kept as text;
// short rows are padded to the header width.
func Read(r io.Reader, delim rune, enc Encoding) (ports.Table, error) {
	if enc == Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return ports.Table{}, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return ports.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return ports.Table{}, nil
	}
	header := records[0]
	if len(records) == 1 {
		return ports.NewTable(records), nil
	}
	for i := 1; i < len(records); i++ {
		for len(records[i]) < len(header) {
			records[i] = append(records[i], "")
		}
		records[i] = records[i][:len(header)]
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return ports.Table{}, fmt.Errorf("load csv: %w", df.Err)
	}

	// Keep the original header: the frame renames duplicates and blanks.
	out := df.Records()
	out[0] = header
	for _, row := range out[1:] {
		for j, v := range row {
			if v == "NaN" {
				row[j] = ""
			}
		}
	}
	return ports.NewTable(out), nil
}
