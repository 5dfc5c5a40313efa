// Package storage is the object store behind archive sources and columnar
// sinks.
//
// Backends register themselves on import:
//
//   - storage/local: files under a base directory
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO)
//   - storage/memory: an in-process map, for tests and dry runs
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "raw-exports"
//	  region: "eu-west-1"
//
// archive/zip needs random access, so OpenReaderAt spools remote objects to
// a temporary file and uses local files in place.
package storage
