package tap

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
)

// csvTap stores records as a header row plus data rows. All fields are read
// back as strings; pipelines needing typed fields should use JSON Lines or
// convert explicitly in a compute op.
type csvTap struct {
	path string
}

// CSV returns a tap backed by a CSV file at path. The first row is the
// header naming the record fields.
func CSV(path string) Tap {
	return &csvTap{path: path}
}

func (t *csvTap) Location() string { return t.path }

func (t *csvTap) ReadAll(ctx context.Context) ([]Record, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("opening csv tap %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv tap %s: %w", t.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	recs := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s: row %d has %d fields, header has %d", t.path, i+2, len(row), len(header))
		}
		attrs := make(map[string]cty.Value, len(header))
		for j, name := range header {
			attrs[name] = cty.StringVal(row[j])
		}
		recs = append(recs, cty.ObjectVal(attrs))
	}
	return recs, nil
}

func (t *csvTap) WriteAll(ctx context.Context, recs []Record) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating tap directory: %w", err)
	}
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("creating csv tap %s: %w", t.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	var header []string
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validate(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if header == nil {
			header = Fields(rec)
			if err := w.Write(header); err != nil {
				return fmt.Errorf("writing csv header: %w", err)
			}
		}
		row := make([]string, len(header))
		for j, name := range header {
			if !rec.Type().HasAttribute(name) {
				return fmt.Errorf("record %d is missing field %q", i, name)
			}
			row[j], err = stringifyField(rec.GetAttr(name))
			if err != nil {
				return fmt.Errorf("record %d field %q: %w", i, name, err)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv tap %s: %w", t.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv tap %s: %w", t.path, err)
	}
	return f.Close()
}

// stringifyField renders a primitive field value for a CSV cell.
func stringifyField(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		return v.AsBigFloat().Text('f', -1), nil
	case cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported csv field type %s", v.Type().FriendlyName())
	}
}
