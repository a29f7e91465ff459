package storage

import (
	"testing"
	"time"
)

func TestBuildUploadPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 4, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildUploadPath("default", "sales", ts, "u-00042", "parquet")
	if err != nil {
		t.Fatalf("BuildUploadPath() error = %v", err)
	}
	want := "default/sales/date=2026-02-19/upload-u-00042.parquet"
	if key != want {
		t.Fatalf("BuildUploadPath() = %q, want %q", key, want)
	}
}

func TestBuildUploadPathCSV(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	key, err := BuildUploadPath("warehouse", "orders", ts, "u-7", "csv")
	if err != nil {
		t.Fatalf("BuildUploadPath() error = %v", err)
	}
	want := "warehouse/orders/date=2026-03-01/upload-u-7.csv"
	if key != want {
		t.Fatalf("BuildUploadPath() = %q, want %q", key, want)
	}
}

func TestBuildUploadPathRejectsInvalidComponent(t *testing.T) {
	if _, err := BuildUploadPath("../oops", "sales", time.Now(), "u-1", "parquet"); err == nil {
		t.Fatal("expected invalid component error")
	}
	if _, err := BuildUploadPath("default", "sales", time.Now(), "u-1", "xlsx"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
