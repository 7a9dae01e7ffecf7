// Package storage implements the external media asset store.
package storage

import "context"

// Asset describes a durably stored object.
type Asset struct {
	// URL is the public location of the stored object.
	URL string
	// DeleteHandle identifies the object for later deletion.
	DeleteHandle string
}

// AssetStore accepts a staged local file, stores it durably and returns the
// asset's URL plus a handle for deleting it again. The store is treated as
// possibly-failing, never as guaranteed-available; Delete is best-effort.
type AssetStore interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
	Delete(ctx context.Context, deleteHandle string) error
}
