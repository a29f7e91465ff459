package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildUploadPath returns the object key for an ingested dataset file.
// Uploads are partitioned by source key and table so that a bucket
// listing groups files the way operators look for them.
func BuildUploadPath(dbKey, tableName string, uploadedAt time.Time, uploadID, format string) (string, error) {
	if err := validatePathComponent(dbKey, "source key"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if err := validatePathComponent(uploadID, "upload id"); err != nil {
		return "", err
	}
	switch format {
	case "parquet", "csv":
	default:
		return "", fmt.Errorf("unsupported upload format: %q", format)
	}

	ts := uploadedAt.UTC()
	return path.Join(
		dbKey,
		tableName,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("upload-%s.%s", uploadID, format),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
