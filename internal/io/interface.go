// Package io moves DataFrames in and out of Parquet.
//
// A frame is written through its Arrow record, so every column type the
// engine produces (strings, integers, floats, booleans, dates and lists)
// survives a round trip. Reading flattens all row groups into one frame,
// which the caller must release.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
)

// DefaultBatchSize bounds the rows per Arrow batch on read and the rows per
// column write batch
const DefaultBatchSize = 1000

// DataReader produces a DataFrame from some source
type DataReader interface {
	Read() (*dftour.DataFrame, error)
}

// DataWriter sends a DataFrame to some sink
type DataWriter interface {
	Write(df *dftour.DataFrame) error
}

// ParquetOptions tunes Parquet reads and writes
type ParquetOptions struct {
	Compression string // snappy, zstd, gzip, lz4 or uncompressed
	BatchSize   int    // <= 0 falls back to DefaultBatchSize
}

// DefaultParquetOptions writes snappy-compressed files
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{Compression: "snappy", BatchSize: DefaultBatchSize}
}

// ParquetReader decodes a whole Parquet file held by an io.Reader
type ParquetReader struct {
	src     io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader reads from src, allocating result columns from mem
func NewParquetReader(src io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	return &ParquetReader{src: src, options: options, mem: mem}
}

// ParquetWriter encodes frames as Parquet files
type ParquetWriter struct {
	dst     io.Writer
	options ParquetOptions
}

// NewParquetWriter writes to dst
func NewParquetWriter(dst io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{dst: dst, options: options}
}

var (
	_ DataReader = (*ParquetReader)(nil)
	_ DataWriter = (*ParquetWriter)(nil)
)
