// Package output writes and reads the CSV export.
package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/amishk599/jobharvest/internal/model"
)

// TimestampToken in an output path is replaced by the run's start time.
const TimestampToken = "{timestamp}"

// TimestampLayout formats TimestampToken.
const TimestampLayout = "20060102_150405"

var bom = []byte{0xEF, 0xBB, 0xBF}

// lockRetry is how often a held lock is polled.
const lockRetry = 100 * time.Millisecond

// ResolvePath substitutes TimestampToken in template.
func ResolvePath(template string, now time.Time) string {
	return strings.ReplaceAll(template, TimestampToken, now.Format(TimestampLayout))
}

// Write emits a UTF-8 BOM, the header in schema order and one row per record.
// Records built against another schema are widened, so every row has the
// header's column count.
func Write(w io.Writer, schema *model.Schema, records []model.Record) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Fields()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if r.Schema() != schema {
			r = r.Widen(schema)
		}
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the export to path atomically: rows go to a temporary
// file in the same directory, which replaces path once complete. A lock file
// next to path keeps concurrent writers out.
func WriteFile(ctx context.Context, path string, schema *model.Schema, records []model.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("locking %s: lock held", path)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, schema, records); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Read parses an export. The BOM is optional; the header defines the schema
// of the returned records.
func Read(r io.Reader) (*model.Schema, []model.Record, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(bom)); bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("reading header: empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	schema, err := model.NewSchema("csv", 1, header...)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid header: %w", err)
	}

	var records []model.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", len(records)+1, err)
		}
		b := model.NewRecordBuilder(schema)
		for i, v := range row {
			b.Set(header[i], v)
		}
		records = append(records, b.Build())
	}
	return schema, records, nil
}

// ReadFile is Read over a file on disk.
func ReadFile(path string) (*model.Schema, []model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
