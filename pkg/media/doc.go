// Package media keeps a relational metadata store and a remote blob store in
// agreement as files are uploaded, replaced, deleted, and reconciled.
//
// It exposes a single Service interface whose operations are the only places
// in the application that must reason about partial failure across two
// independently-failing systems. There is no cross-store transaction
// available, so the coordinators compensate instead: an upload whose metadata
// write fails deletes the blob it just wrote, and a delete removes the blob
// before the metadata row so that a failure always leaves a reconcilable
// record rather than an invisible orphan blob. Implementations of the
// metadata repository (memory, Postgres) and blob store (memory, filesystem,
// S3) are provided under subpackages.
//
// Media records are immutable after creation. Replacing an owning entity's
// media slot always means upload-new then best-effort delete-old; the old
// record is never mutated in place.
package media
