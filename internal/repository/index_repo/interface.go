package index_repo

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnsupportedURL = errors.New("unsupported index storage url")
)

// Identity is the natural key of an indexed object.
type Identity struct {
	Bucket string
	Key    string
}

// Object is one row of the index. LastModified is stored verbatim.
type Object struct {
	Bucket       string
	Key          string
	LastModified string
}

func (o Object) Identity() Identity {
	return Identity{Bucket: o.Bucket, Key: o.Key}
}

// RowError is a failed single-row insert. It does not fail the batch.
type RowError struct {
	Object Object
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("save key %s/%s: %v", e.Object.Bucket, e.Object.Key, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Conflict reports whether the row lost a race on the (bucket, key) constraint.
func (e RowError) Conflict() bool {
	return isUniqueViolation(e.Err)
}

type SaveResult struct {
	Inserted int
	Skipped  int
	Failures []RowError
}

// Index stores each (bucket, key) at most once.
//
// Existence check and insert are separate steps and are not atomic across
// processes: two writers may both see an identity as new. The storage-level
// UNIQUE(bucket, key) constraint rejects the second insert, which then shows
// up as a RowError instead of a duplicate row.
type Index interface {
	// EnsureSchema creates the s3_keys table if needed and returns the storage location.
	EnsureSchema(ctx context.Context) (string, error)
	// Existing returns the subset of ids already stored.
	Existing(ctx context.Context, ids []Identity) (map[Identity]struct{}, error)
	// Save inserts objects whose identity is not stored yet. Existing rows are never updated.
	Save(ctx context.Context, objs []Object) (SaveResult, error)
	// Search returns rows whose key contains query.
	Search(ctx context.Context, query string) ([]Object, error)
	Get(ctx context.Context, id Identity) (*Object, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
