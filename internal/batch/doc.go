// Package batch splits row collections into fixed-size batches and hands each
// batch to a callback, sequentially or with bounded concurrency.
//
// The submitter uses it to keep every GraphQL mutation under the backend's
// per-request row limit. Key features:
//   - Configurable batch size (default 100 rows per batch)
//   - Progress callbacks after each completed batch
//   - Context-aware cancellation; the first failing batch cancels the rest
package batch
