// Package resolver turns image references into something displayable and
// decides where new images are uploaded.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dov85/Apartment/internal/fallback"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

type Availability interface {
	Available(ctx context.Context) bool
}

// Proxy is the image half of the bridge HTTP client.
type Proxy interface {
	PersistImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error)
	DeleteImage(ctx context.Context, ref domain.ImageRef) error
	ImageURL(key string) string
	FileURL(name string) string
}

type Payload struct {
	Data     []byte
	MIMEType string
	Name     string
}

type Deps struct {
	Detector Availability
	// Proxy is nil when no bridge origin is configured.
	Proxy Proxy
	// Direct is nil when no storage credential is configured.
	Direct domain.ObjectStorage
	// Blobs backs legacy device-blob references; may be nil.
	Blobs domain.BlobStore
	// PublicBaseURL overrides Direct.PublicURL for standalone reads.
	PublicBaseURL string
	HTTPClient    *http.Client
}

type Resolver struct {
	deps   Deps
	logger *logger.Logger
	newKey func(name, mimeType string) string
}

func New(deps Deps, log *logger.Logger) *Resolver {
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	deps.PublicBaseURL = strings.TrimRight(deps.PublicBaseURL, "/")
	return &Resolver{deps: deps, logger: log.Named("resolver"), newKey: domain.NewImageKey}
}

func (r *Resolver) proxyUp(ctx context.Context) bool {
	return r.deps.Proxy != nil && r.deps.Detector != nil && r.deps.Detector.Available(ctx)
}

// Persist uploads one image to exactly one backend and returns its new
// reference. The bridge is preferred; a bridge failure falls through to a
// direct upload.
func (r *Resolver) Persist(ctx context.Context, p Payload) (domain.ImageRef, error) {
	if len(p.Data) == 0 {
		return domain.ImageRef{}, fmt.Errorf("%w: empty image payload", domain.ErrInvalidListingData)
	}
	ref, via, err := fallback.Run(ctx, []fallback.Strategy[domain.ImageRef]{
		{Name: "proxy", Try: func(ctx context.Context) fallback.Outcome[domain.ImageRef] {
			if !r.proxyUp(ctx) {
				return fallback.Skipped[domain.ImageRef]()
			}
			return fallback.From[domain.ImageRef](r.deps.Proxy.PersistImage(ctx, p.MIMEType, p.Data))
		}},
		{Name: "direct", Try: func(ctx context.Context) fallback.Outcome[domain.ImageRef] {
			if r.deps.Direct == nil {
				return fallback.Skipped[domain.ImageRef]()
			}
			key := r.newKey(p.Name, p.MIMEType)
			if err := r.deps.Direct.Upload(ctx, domain.ImagePath(key), p.Data, p.MIMEType); err != nil {
				return fallback.Failed[domain.ImageRef](err)
			}
			return fallback.Succeeded(domain.RemoteRef(key))
		}},
	})
	if errors.Is(err, fallback.ErrNoStrategy) {
		return domain.ImageRef{}, domain.ErrNoUploadBackend
	}
	if err != nil {
		r.logger.Warn("Image upload failed", zap.Int("bytes", len(p.Data)), zap.Error(err))
		return domain.ImageRef{}, err
	}
	r.logger.Debug("Image persisted", zap.String("via", via), zap.String("ref", ref.String()))
	return ref, nil
}

// Resolve returns a displayable URL for ref, or false for a broken reference.
// Only device-blob references touch storage; everything else is computed.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageRef) (string, bool) {
	switch ref.Kind {
	case domain.RefInline:
		return ref.String(), true
	case domain.RefRemote:
		if r.proxyUp(ctx) {
			return r.deps.Proxy.ImageURL(ref.Key), true
		}
		u := r.publicURL(domain.ImagePath(ref.Key))
		return u, u != ""
	case domain.RefLocalFile:
		if r.deps.Proxy == nil {
			return "", false
		}
		return r.deps.Proxy.FileURL(ref.Key), true
	case domain.RefDeviceBlob:
		if r.deps.Blobs == nil {
			return "", false
		}
		data, mimeType, err := r.deps.Blobs.Get(ctx, ref.Key)
		if err != nil {
			return "", false
		}
		return domain.EncodeDataURL(mimeType, data), true
	default:
		return "", false
	}
}

// Exists only looks anything up for device blobs.
func (r *Resolver) Exists(ctx context.Context, ref domain.ImageRef) bool {
	switch ref.Kind {
	case domain.RefDeviceBlob:
		if r.deps.Blobs == nil {
			return false
		}
		ok, err := r.deps.Blobs.Exists(ctx, ref.Key)
		if err != nil {
			r.logger.Debug("Device blob lookup failed", zap.String("id", ref.Key), zap.Error(err))
			return false
		}
		return ok
	default:
		return true
	}
}

// Fetch returns the raw bytes and MIME type behind ref.
func (r *Resolver) Fetch(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	switch ref.Kind {
	case domain.RefInline:
		return ref.Data, ref.MIMEType, nil
	case domain.RefDeviceBlob:
		if r.deps.Blobs == nil {
			return nil, "", domain.ErrImageNotFound
		}
		return r.deps.Blobs.Get(ctx, ref.Key)
	case domain.RefLocalFile:
		if r.deps.Proxy == nil {
			return nil, "", domain.ErrImageNotFound
		}
		return r.httpGet(ctx, r.deps.Proxy.FileURL(ref.Key))
	case domain.RefRemote:
		b, _, err := fallback.Run(ctx, []fallback.Strategy[blob]{
			{Name: "proxy", Try: func(ctx context.Context) fallback.Outcome[blob] {
				if !r.proxyUp(ctx) {
					return fallback.Skipped[blob]()
				}
				return fromBlob(r.httpGet(ctx, r.deps.Proxy.ImageURL(ref.Key)))
			}},
			{Name: "direct", Try: func(ctx context.Context) fallback.Outcome[blob] {
				if r.deps.Direct == nil {
					return fallback.Skipped[blob]()
				}
				return fromBlob(r.deps.Direct.Get(ctx, domain.ImagePath(ref.Key)))
			}},
			{Name: "public", Try: func(ctx context.Context) fallback.Outcome[blob] {
				u := r.publicURL(domain.ImagePath(ref.Key))
				if u == "" {
					return fallback.Skipped[blob]()
				}
				return fromBlob(r.httpGet(ctx, u))
			}},
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %w", domain.ErrImageNotFound, ref.Key, err)
		}
		return b.data, b.mimeType, nil
	default:
		return nil, "", domain.ErrMalformedImageRef
	}
}

// Delete is best effort: failures are logged and swallowed.
func (r *Resolver) Delete(ctx context.Context, ref domain.ImageRef) {
	var err error
	switch ref.Kind {
	case domain.RefRemote:
		_, _, err = fallback.Run(ctx, []fallback.Strategy[struct{}]{
			{Name: "proxy", Try: func(ctx context.Context) fallback.Outcome[struct{}] {
				if !r.proxyUp(ctx) {
					return fallback.Skipped[struct{}]()
				}
				return fallback.From(struct{}{}, r.deps.Proxy.DeleteImage(ctx, ref))
			}},
			{Name: "direct", Try: func(ctx context.Context) fallback.Outcome[struct{}] {
				if r.deps.Direct == nil {
					return fallback.Skipped[struct{}]()
				}
				return fallback.From(struct{}{}, r.deps.Direct.Delete(ctx, domain.ImagePath(ref.Key)))
			}},
		})
	case domain.RefLocalFile:
		if r.proxyUp(ctx) {
			err = r.deps.Proxy.DeleteImage(ctx, ref)
		}
	case domain.RefDeviceBlob:
		if r.deps.Blobs != nil {
			err = r.deps.Blobs.Delete(ctx, ref.Key)
		}
	}
	if err != nil {
		r.logger.Warn("Image delete failed", zap.String("ref", ref.String()), zap.Stringer("kind", ref.Kind), zap.Error(err))
	}
}

func (r *Resolver) publicURL(path string) string {
	if r.deps.PublicBaseURL != "" {
		return r.deps.PublicBaseURL + "/" + path
	}
	if r.deps.Direct != nil {
		return r.deps.Direct.PublicURL(path)
	}
	return ""
}

type blob struct {
	data     []byte
	mimeType string
}

func fromBlob(data []byte, mimeType string, err error) fallback.Outcome[blob] {
	if err != nil {
		return fallback.Failed[blob](err)
	}
	return fallback.Succeeded(blob{data: data, mimeType: mimeType})
}

func (r *Resolver) httpGet(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := r.deps.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", domain.ErrImageNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
