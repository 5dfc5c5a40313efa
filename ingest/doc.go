// Package ingest runs configured ingestion jobs: archives are read from
// storage, their members decoded into records and the records written to
// parquet files.
//
// A Job builds the chain
//
//	locators -> zipped -> csv|json -> parquet_writer
//
// over a locator source (a static list, a storage prefix or a redis queue),
// drains it and reports the step counts through logs, metrics, traces and,
// when redis is configured, a ReportStore. A Scheduler runs a Job on a cron
// schedule.
package ingest
