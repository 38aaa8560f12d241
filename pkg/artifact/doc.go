// Package artifact defines the store that holds the byproducts of a run:
// rendered figures (PNG) and persisted datasets (CSV).
//
// Artifacts are addressed by a random version 4 UUID and their kind. The
// retrieval endpoints serve them back under /images/temp/<id>.png and
// /files/temp/<id>.csv. Writers never coordinate: ids are unique, so
// concurrent runs persist without locking the store.
//
// Implementations live in subpackages (filestore, bucket, memstore).
package artifact
