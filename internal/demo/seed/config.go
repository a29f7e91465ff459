package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Source     string
	DBKey      string
	TableName  string
	Days       int
	RowsPerDay int
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		Source:     "sqlite:queryviz.db",
		DBKey:      "default",
		TableName:  "sales",
		Days:       30,
		RowsPerDay: 40,
		Seed:       time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "QUERYVIZ_SEED_SOURCE", &cfg.Source); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYVIZ_SEED_DB_KEY", &cfg.DBKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYVIZ_SEED_TABLE", &cfg.TableName); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYVIZ_SEED_DAYS", &cfg.Days); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYVIZ_SEED_ROWS_PER_DAY", &cfg.RowsPerDay); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "QUERYVIZ_SEED_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Source) == "" {
		return Config{}, fmt.Errorf("QUERYVIZ_SEED_SOURCE is required")
	}
	if strings.TrimSpace(cfg.DBKey) == "" {
		return Config{}, fmt.Errorf("QUERYVIZ_SEED_DB_KEY is required")
	}
	if strings.TrimSpace(cfg.TableName) == "" {
		return Config{}, fmt.Errorf("QUERYVIZ_SEED_TABLE is required")
	}
	if cfg.Days <= 0 {
		return Config{}, fmt.Errorf("QUERYVIZ_SEED_DAYS must be > 0")
	}
	if cfg.RowsPerDay <= 0 {
		return Config{}, fmt.Errorf("QUERYVIZ_SEED_ROWS_PER_DAY must be > 0")
	}

	cfg.Source = strings.TrimSpace(cfg.Source)
	cfg.DBKey = strings.TrimSpace(cfg.DBKey)
	cfg.TableName = strings.TrimSpace(cfg.TableName)
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
