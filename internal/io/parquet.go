package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/dftour"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dftour.DataFrame, error) {
	// Parquet needs random access to the footer
	data, err := io.ReadAll(r.src)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	props := pqarrow.ArrowReadProperties{BatchSize: batchSize(r.options)}
	arrowReader, err := pqarrow.NewFileReader(pqReader, props, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.tableToDataFrame(table)
}

// tableToDataFrame flattens each chunked column into one array.
func (r *ParquetReader) tableToDataFrame(table arrow.Table) (*dftour.DataFrame, error) {
	arrays := make([]arrow.Array, 0, table.NumCols())
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	for i := 0; i < int(table.NumCols()); i++ {
		column := table.Column(i)
		arr, err := r.flatten(column)
		if err != nil {
			return nil, fmt.Errorf("converting column %s: %w", column.Name(), err)
		}
		arrays = append(arrays, arr)
	}

	rec := array.NewRecord(table.Schema(), arrays, table.NumRows())
	defer rec.Release()
	return dftour.NewDataFrameFromRecord(rec)
}

func (r *ParquetReader) flatten(column *arrow.Column) (arrow.Array, error) {
	chunks := column.Data().Chunks()
	switch len(chunks) {
	case 0:
		return array.MakeArrayOfNull(r.mem, column.DataType(), 0), nil
	case 1:
		chunks[0].Retain()
		return chunks[0], nil
	default:
		return array.Concatenate(chunks, r.mem)
	}
}

// Write writes the DataFrame to Parquet format.
func (w *ParquetWriter) Write(df *dftour.DataFrame) error {
	if df.Width() == 0 {
		return fmt.Errorf("cannot write a DataFrame without columns")
	}

	compression, err := Compression(w.options.Compression)
	if err != nil {
		return err
	}

	rec := df.ToRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithBatchSize(batchSize(w.options)),
	)

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w.dst, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing file writer: %w", err)
	}
	return nil
}

func batchSize(options ParquetOptions) int64 {
	if options.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return int64(options.BatchSize)
}

// Compression maps a codec name to its Parquet compression
func Compression(name string) (compress.Compression, error) {
	switch name {
	case "snappy", "":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression %q", name)
	}
}
