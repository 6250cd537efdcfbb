// Package refstore loads core banking reference extracts into in-memory
// datasets. Extracts arrive as CSV or parquet files; either way every value
// is read back as a string and normalized only at scoring time.
package refstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

// FileLoader loads reference datasets from local extract files, choosing
// the format by extension.
type FileLoader struct {
	log *zap.Logger
}

// NewFileLoader builds a FileLoader.
func NewFileLoader(log *zap.Logger) *FileLoader {
	return &FileLoader{log: log}
}

// Load reads one extract file into a dataset.
func (l *FileLoader) Load(path string) (*refdata.Dataset, error) {
	var (
		ds  *refdata.Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		ds, err = readCSV(path)
	case ".parquet":
		ds, err = readParquet(path)
	default:
		return nil, fmt.Errorf("load reference extract %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load reference extract %s: %w", path, err)
	}
	l.log.Info("reference extract loaded",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns())))
	return ds, nil
}
