package bridge

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/atomicfile"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Backend is where the bridge keeps the document and image bytes.
type Backend interface {
	Mode() string
	LoadDocument(ctx context.Context) ([]byte, error)
	SaveDocument(ctx context.Context, data []byte) error
	StoreImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error)
	GetImage(ctx context.Context, ref domain.ImageRef) ([]byte, string, error)
	DeleteImage(ctx context.Context, ref domain.ImageRef) error
}

// RemoteBackend keeps everything in the object store.
type RemoteBackend struct {
	store domain.ObjectStorage
}

func NewRemoteBackend(store domain.ObjectStorage) *RemoteBackend {
	return &RemoteBackend{store: store}
}

func (b *RemoteBackend) Mode() string { return ModeRemote }

func (b *RemoteBackend) LoadDocument(ctx context.Context) ([]byte, error) {
	data, _, err := b.store.Get(ctx, domain.DocumentPath)
	if errors.Is(err, domain.ErrObjectNotFound) {
		return nil, domain.ErrDocumentNotFound
	}
	return data, err
}

func (b *RemoteBackend) SaveDocument(ctx context.Context, data []byte) error {
	return b.store.Upload(ctx, domain.DocumentPath, data, "application/json")
}

func (b *RemoteBackend) StoreImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error) {
	key := domain.NewImageKey("", mimeType)
	if err := b.store.Upload(ctx, domain.ImagePath(key), data, mimeType); err != nil {
		return domain.ImageRef{}, err
	}
	return domain.RemoteRef(key), nil
}

func (b *RemoteBackend) GetImage(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	if ref.Kind != domain.RefRemote {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref.String())
	}
	data, contentType, err := b.store.Get(ctx, domain.ImagePath(ref.Key))
	if errors.Is(err, domain.ErrObjectNotFound) {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref.Key)
	}
	return data, contentType, err
}

func (b *RemoteBackend) DeleteImage(ctx context.Context, ref domain.ImageRef) error {
	if ref.Kind != domain.RefRemote {
		return nil
	}
	return b.store.Delete(ctx, domain.ImagePath(ref.Key))
}

// LocalBackend keeps the document and images in a directory tree and mints
// local-file keys. Missing images are pulled through from the object store
// when one is configured.
type LocalBackend struct {
	dir    string
	remote domain.ObjectStorage
	logger *logger.Logger
}

func NewLocalBackend(dir string, remote domain.ObjectStorage, log *logger.Logger) *LocalBackend {
	return &LocalBackend{dir: dir, remote: remote, logger: log.Named("local_backend")}
}

func (b *LocalBackend) Mode() string { return ModeLocal }

func (b *LocalBackend) documentPath() string { return filepath.Join(b.dir, "listings.json") }

func (b *LocalBackend) imagePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", domain.ErrMalformedImageRef, name)
	}
	return filepath.Join(b.dir, "images", name), nil
}

func (b *LocalBackend) LoadDocument(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.documentPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrDocumentNotFound
	}
	return data, err
}

func (b *LocalBackend) SaveDocument(ctx context.Context, data []byte) error {
	return atomicfile.WriteFile(b.documentPath(), data)
}

func (b *LocalBackend) StoreImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error) {
	name := domain.NewImageKey("", mimeType)
	path, err := b.imagePath(name)
	if err != nil {
		return domain.ImageRef{}, err
	}
	if err := atomicfile.WriteFile(path, data); err != nil {
		return domain.ImageRef{}, err
	}
	return domain.LocalFileRef(name), nil
}

func (b *LocalBackend) GetImage(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	switch ref.Kind {
	case domain.RefLocalFile:
		return b.getFile(ctx, ref.Key)
	case domain.RefRemote:
		if b.remote == nil {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref.Key)
		}
		data, contentType, err := b.remote.Get(ctx, domain.ImagePath(ref.Key))
		if errors.Is(err, domain.ErrObjectNotFound) {
			return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref.Key)
		}
		return data, contentType, err
	default:
		return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, ref.String())
	}
}

func (b *LocalBackend) getFile(ctx context.Context, name string) ([]byte, string, error) {
	path, err := b.imagePath(name)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err == nil {
		return data, contentTypeFor(name, data), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, "", err
	}
	if b.remote == nil {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, name)
	}

	data, contentType, err := b.remote.Get(ctx, domain.ImagePath(name))
	if errors.Is(err, domain.ErrObjectNotFound) {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrImageNotFound, name)
	}
	if err != nil {
		return nil, "", err
	}
	if werr := atomicfile.WriteFile(path, data); werr != nil {
		b.logger.Warn("Failed to cache pulled image", zap.String("name", name), zap.Error(werr))
	} else {
		b.logger.Info("Pulled image from object store", zap.String("name", name), zap.Int("bytes", len(data)))
	}
	if contentType == "" {
		contentType = contentTypeFor(name, data)
	}
	return data, contentType, nil
}

func (b *LocalBackend) DeleteImage(ctx context.Context, ref domain.ImageRef) error {
	switch ref.Kind {
	case domain.RefLocalFile:
		path, err := b.imagePath(ref.Key)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	case domain.RefRemote:
		if b.remote == nil {
			return nil
		}
		return b.remote.Delete(ctx, domain.ImagePath(ref.Key))
	default:
		return nil
	}
}

func contentTypeFor(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
