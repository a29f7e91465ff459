package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/storage"
)

type saleRecord struct {
	Region string  `parquet:"region"`
	Amount float64 `parquet:"amount"`
	Units  int64   `parquet:"units"`
}

func encodeSales(t *testing.T, records []saleRecord) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[saleRecord](buf)
	if _, err := writer.Write(records); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}
	return buf.Bytes()
}

func newTestRegistry(t *testing.T) *datasource.Registry {
	t.Helper()
	spec, err := datasource.ParseSpec("sqlite:" + filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("ParseSpec() error = %v", err)
	}
	registry := datasource.NewRegistry()
	registry.Register("default", spec)
	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

func TestLoadParquetReplacesTable(t *testing.T) {
	registry := newTestRegistry(t)
	loader := NewLoader(registry, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	data := encodeSales(t, []saleRecord{
		{Region: "north", Amount: 120.5, Units: 3},
		{Region: "south", Amount: 80, Units: 1},
	})
	result, err := loader.Load(context.Background(), "default", "sales", "parquet", data)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", result.RowCount)
	}
	if len(result.Columns) != 3 || result.Columns[0] != "region" {
		t.Fatalf("Columns = %v", result.Columns)
	}

	got, err := registry.Query(context.Background(), "default", `SELECT region, amount FROM sales ORDER BY region`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.Rows[0][0] != "north" {
		t.Fatalf("first region = %v", got.Rows[0][0])
	}

	// A second load with different rows replaces, not appends.
	data = encodeSales(t, []saleRecord{{Region: "west", Amount: 42, Units: 2}})
	if _, err := loader.Load(context.Background(), "default", "sales", "parquet", data); err != nil {
		t.Fatalf("Load() replace error = %v", err)
	}
	got, err = registry.Query(context.Background(), "default", `SELECT region FROM sales`)
	if err != nil {
		t.Fatalf("Query() after replace error = %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "west" {
		t.Fatalf("rows after replace = %v", got.Rows)
	}
}

func TestLoadCSVInfersNumericColumns(t *testing.T) {
	registry := newTestRegistry(t)
	loader := NewLoader(registry, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	csvBody := []byte("product,amount\nwidget,19.99\ngadget,5\n")
	result, err := loader.Load(context.Background(), "default", "orders", "csv", csvBody)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", result.RowCount)
	}

	got, err := registry.Query(context.Background(), "default", `SELECT product, amount FROM orders ORDER BY amount`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.Rows[0][0] != "gadget" {
		t.Fatalf("first product = %v", got.Rows[0][0])
	}
	if _, ok := got.Rows[0][1].(float64); !ok {
		t.Fatalf("amount type = %T, want float64", got.Rows[0][1])
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	registry := newTestRegistry(t)
	loader := NewLoader(registry, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := loader.Load(context.Background(), "default", "", "csv", []byte("a\n1\n")); err == nil {
		t.Fatal("expected error for missing table name")
	}
	if _, err := loader.Load(context.Background(), "default", "t", "csv", nil); err == nil {
		t.Fatal("expected error for empty body")
	}
	if _, err := loader.Load(context.Background(), "default", "t", "xlsx", []byte("x")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := loader.Load(context.Background(), "default", "t", "parquet", []byte("not parquet")); err == nil {
		t.Fatal("expected error for malformed parquet")
	}
}

func TestLoadArchivesUpload(t *testing.T) {
	registry := newTestRegistry(t)
	archive := &fakeObjectStore{}
	loader := NewLoader(registry, archive, slog.New(slog.NewTextHandler(io.Discard, nil)))

	csvBody := []byte("region\nnorth\n")
	result, err := loader.Load(context.Background(), "default", "sales", "csv", csvBody)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.ObjectKey == "" {
		t.Fatal("expected object key for archived upload")
	}
	if !strings.HasPrefix(result.ObjectKey, "default/sales/") {
		t.Fatalf("object key = %q", result.ObjectKey)
	}
	if archive.lastKey != result.ObjectKey {
		t.Fatalf("archived key = %q, want %q", archive.lastKey, result.ObjectKey)
	}
}

func TestLoadContinuesWhenArchiveFails(t *testing.T) {
	registry := newTestRegistry(t)
	archive := &fakeObjectStore{putErr: errors.New("bucket unavailable")}
	loader := NewLoader(registry, archive, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := loader.Load(context.Background(), "default", "sales", "csv", []byte("region\nnorth\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.ObjectKey != "" {
		t.Fatalf("object key = %q, want empty on archive failure", result.ObjectKey)
	}
	if result.RowCount != 1 {
		t.Fatalf("RowCount = %d, want 1", result.RowCount)
	}
}

func TestLoadFromObjectReadsArchive(t *testing.T) {
	registry := newTestRegistry(t)
	archive := &fakeObjectStore{objects: map[string][]byte{
		"default/sales/date=2026-01-01/upload-u1.csv": []byte("region,amount\nnorth,12.5\n"),
	}}
	loader := NewLoader(registry, archive, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := loader.LoadFromObject(context.Background(), "default", "sales", "default/sales/date=2026-01-01/upload-u1.csv")
	if err != nil {
		t.Fatalf("LoadFromObject() error = %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("RowCount = %d, want 1", result.RowCount)
	}

	got, err := registry.Query(context.Background(), "default", `SELECT region FROM sales`)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "north" {
		t.Fatalf("rows = %v", got.Rows)
	}
}

func TestLoadFromObjectMissingObject(t *testing.T) {
	registry := newTestRegistry(t)
	loader := NewLoader(registry, &fakeObjectStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := loader.LoadFromObject(context.Background(), "default", "sales", "ghost/upload.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
	if _, err := loader.LoadFromObject(context.Background(), "default", "sales", "upload.xlsx"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

type fakeObjectStore struct {
	objects map[string][]byte
	lastKey string
	putErr  error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	f.lastKey = key
	_, _ = io.Copy(io.Discard, body)
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, _ string) error {
	return nil
}
