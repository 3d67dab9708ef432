// Package docstore reads and writes whole config documents.
//
// Store is the storage abstraction the materializer works against, so it can
// be exercised without touching the real container filesystem:
//   - FileStore: a local file; Save writes a temp file and renames it into
//     place so readers never observe a partial document. Watch(ctx, onChange)
//     uses fsnotify on the parent directory to report edits, so atomic-save
//     renames from editors are seen too.
//   - S3Store: a single object in an S3-compatible bucket, for persisted
//     configs kept outside the container (path-style addressing for MinIO).
//   - MemStore: in-memory, for tests and dry runs.
//
// Load returns an error matching ErrNotExist when the document is absent.
package docstore
