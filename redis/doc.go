// Package redis wraps go-redis with pipedata logging and errors, and adds the
// two redis-backed pieces an ingest job uses: a work queue of archive
// locators and a store for the report of each job's latest run.
//
// # Work queue
//
// ListSource pops locators from a list until it is empty, so producers can
// RPUSH archives and a scheduled job drains whatever has arrived:
//
//	src := redis.ListSource(client, "pipedata:archives")
//	stream := pipeline.Bind[string](src, chain)
//
// # Reports
//
// ReportStore keeps the last RunRecord per job under a key prefix with a TTL:
//
//	reports := redis.NewReportStore(client, "pipedata:reports", 7*24*time.Hour)
//	reports.Save(ctx, &redis.RunRecord{Job: "daily", Steps: stream.Counts()})
//
// TypedStore is the generic JSON store both are built on.
package redis
