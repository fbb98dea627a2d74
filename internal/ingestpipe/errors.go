// Package ingestpipe holds the request/blob types and sentinel errors
// shared across the ingestion pipeline's entry points (HTTP handlers,
// orchestrator, parser).
package ingestpipe

import "errors"

// ErrValidation is wrapped into errors caused by a malformed upload
// request (missing tenant, empty file, filename too long, ...).
var ErrValidation = errors.New("validation error")

// ErrUnsupportedType is wrapped into errors caused by a file whose suffix
// the parser does not recognize.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrNotFound is wrapped into errors caused by a lookup for a job or file
// that does not exist.
var ErrNotFound = errors.New("not found")
