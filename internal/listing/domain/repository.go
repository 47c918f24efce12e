package domain

import "context"

// Object-store layout: one JSON document plus one blob per remote image key.
const (
	DocumentPath   = "data/listings.json"
	DocumentPrefix = "data/"
	ImagesPrefix   = "images/"
)

// ImagePath returns the object path for a remote image key.
func ImagePath(key string) string { return ImagesPrefix + key }

type ObjectInfo struct {
	Key    string
	Size   int64
	IsFile bool
}

// ObjectStorage is a remote object store addressed by path. Upload always
// overwrites; Delete accepts a batch of paths.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, string, error)
	Delete(ctx context.Context, paths ...string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	PublicURL(path string) string
}

// BlobStore is the device-local database behind RefDeviceBlob references.
type BlobStore interface {
	Get(ctx context.Context, id string) ([]byte, string, error)
	Put(ctx context.Context, id string, data []byte, mimeType string) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}
