package seed

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/queryviz/queryviz/internal/ingest"
)

// Seeder writes a generated demo dataset through the regular ingest path,
// so seeded tables look exactly like uploaded ones.
type Seeder struct {
	Loader *ingest.Loader
	Logger *slog.Logger
}

func (s *Seeder) Run(ctx context.Context, cfg Config) (ingest.Result, error) {
	generator := NewGenerator(cfg.Seed)
	sales := generator.Generate(cfg.Days, cfg.RowsPerDay)

	body, err := encodeCSV(sales)
	if err != nil {
		return ingest.Result{}, err
	}

	result, err := s.Loader.Load(ctx, cfg.DBKey, cfg.TableName, "csv", body)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("seed table %q: %w", cfg.TableName, err)
	}
	if s.Logger != nil {
		s.Logger.Info("demo dataset seeded",
			slog.String("db", cfg.DBKey),
			slog.String("table", result.Table),
			slog.Int("rows", result.RowCount),
		)
	}
	return result, nil
}

func encodeCSV(sales []Sale) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"region", "product", "channel", "amount", "units", "sold_at"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, sale := range sales {
		record := []string{
			sale.Region,
			sale.Product,
			sale.Channel,
			strconv.FormatFloat(sale.Amount, 'f', 2, 64),
			strconv.Itoa(sale.Units),
			sale.SoldAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
