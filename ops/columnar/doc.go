// Package columnar writes records to parquet files and reads them back.
//
// Writer is a step from records to the paths of the files it has finished.
// Records are written in row groups of a fixed length and, when a maximum
// file length is set, rotated across numbered files:
//
//	w, err := columnar.Writer("out/part_{i:04d}.parquet",
//		columnar.WithRowGroupLength(10_000),
//		columnar.WithMaxFileLength(1_000_000),
//	)
//	paths := pipeline.Then(records, w)
//
// Reader and BatchReader are the inverse, steps from file paths to records or
// to arrow record batches.
package columnar
