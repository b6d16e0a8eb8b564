package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists under a key.
// Callers that treat absence as an empty collection check for it with
// errors.Is.
var ErrNotFound = errors.New("document not found")

// DocStore is a whole-document JSON store. There are no partial
// updates and no conditional writes: every mutation is a read of the
// full document, an in-memory change, and a full rewrite. Writers for
// the same key must therefore be serialized externally (see KeyLock).
type DocStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// FileStore holds uploaded receipt files next to the JSON documents.
type FileStore interface {
	PutFile(ctx context.Context, name string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, name string) error
}
