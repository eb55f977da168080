// Package submit sends grid change sets to the MES GraphQL backend.
//
// A Submitter splits save and delete payloads into batches, posts each batch
// as one mutation. Deletes go through a retrying HTTP client; saves are only
// retried when the connection could not be made. A Guard backed by per-grid
// lockfiles refuses overlapping submissions of the same grid.
package submit
