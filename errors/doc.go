// Package errors provides the structured error type shared by pipedata packages.
//
// Every failure that is not a plain user-function error is reported as an
// *AppError carrying a machine-readable code, a retryable flag and optional
// details. Exhaustion of a sequence is never an error.
package errors
