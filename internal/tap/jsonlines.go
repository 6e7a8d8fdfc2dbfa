package tap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// jsonLinesTap stores records as one JSON object per line. This is the
// default snapshot format: writing records and reading the same location
// back yields the same logical rows.
type jsonLinesTap struct {
	path string
}

// JSONLines returns a tap backed by a JSON Lines file at path.
func JSONLines(path string) Tap {
	return &jsonLinesTap{path: path}
}

func (t *jsonLinesTap) Location() string { return t.path }

func (t *jsonLinesTap) ReadAll(ctx context.Context) ([]Record, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("opening jsonl tap %s: %w", t.path, err)
	}
	defer f.Close()

	var recs []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ty, err := ctyjson.ImpliedType(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: inferring record type: %w", t.path, lineNo, err)
		}
		val, err := ctyjson.Unmarshal(line, ty)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: decoding record: %w", t.path, lineNo, err)
		}
		if !val.Type().IsObjectType() {
			return nil, fmt.Errorf("%s:%d: record is not a JSON object", t.path, lineNo)
		}
		recs = append(recs, val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading jsonl tap %s: %w", t.path, err)
	}
	return recs, nil
}

func (t *jsonLinesTap) WriteAll(ctx context.Context, recs []Record) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating tap directory: %w", err)
	}
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("creating jsonl tap %s: %w", t.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validate(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		line, err := Marshal(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing jsonl tap %s: %w", t.path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing jsonl tap %s: %w", t.path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing jsonl tap %s: %w", t.path, err)
	}
	return f.Close()
}

// Marshal renders one record as a JSON object, the same encoding the JSON
// Lines tap writes.
func Marshal(rec cty.Value) ([]byte, error) {
	return ctyjson.Marshal(rec, rec.Type())
}
