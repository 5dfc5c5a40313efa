// Package logger provides structured logging for pipedata using zerolog.
//
// It supports JSON and console output, level configuration through the
// logging section of the config, and scoped loggers tagged with a
// component or a job run.
//
// Stages built without an explicit logger log through Get(component).
// The command registers one logger per component after Init:
//
//	logger.Init(cfg.Logging, cfg.Name)
//	logger.RegisterDefaults(nil)
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get(logger.ComponentFiles).WithRun(runID)
//	log.Info("Opening archive", logger.Fields(logger.FieldArchive, key))
package logger
