package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
	"go.uber.org/zap"
)

// EncodeCSV renders a snapshot in build order. Row order here is for human
// readers; change detection uses the canonical (sorted) form instead.
func EncodeCSV(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(snap.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range snap.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSVFiles writes each snapshot to <dir>/<name>.csv, creating the
// directory when missing.
func WriteCSVFiles(dir string, snaps []*Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for _, snap := range snaps {
		data, err := EncodeCSV(snap)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", snap.Name, err)
		}
		path := filepath.Join(dir, snap.Name+".csv")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Info("wrote extract file",
			zap.String("path", path),
			zap.Int("rows", len(snap.Rows)))
	}
	return nil
}
