package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
)

// ExportPath returns <dir>/<NN>_<name>.parquet for the index-th step
func ExportPath(dir string, index int, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%02d_%s.parquet", index, name))
}

// WriteParquetFile writes df to path, creating parent directories
func WriteParquetFile(path string, df *dftour.DataFrame, options ParquetOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		// the parquet writer may already have closed the file
		if closeErr := f.Close(); closeErr != nil && err == nil && !errors.Is(closeErr, os.ErrClosed) {
			err = closeErr
		}
	}()

	if err := NewParquetWriter(f, options).Write(df); err != nil {
		return fmt.Errorf("exporting %s: %w", path, err)
	}
	return nil
}

// ReadParquetFile reads a DataFrame from a Parquet file
func ReadParquetFile(path string, mem memory.Allocator) (*dftour.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	df, err := NewParquetReader(f, DefaultParquetOptions(), mem).Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return df, nil
}
