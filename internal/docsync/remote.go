package docsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dov85/Apartment/internal/fallback"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

// Remote is the durable copy of the collection.
type Remote interface {
	Fetch(ctx context.Context) (domain.Collection, error)
	Store(ctx context.Context, c domain.Collection) error
}

type Availability interface {
	Available(ctx context.Context) bool
}

// Bridge is the document half of the bridge HTTP client.
type Bridge interface {
	FetchDocument(ctx context.Context) (domain.Collection, error)
	StoreDocument(ctx context.Context, c domain.Collection) error
}

type RemoteOptions struct {
	// PublicURL is the world-readable URL of the document object. Empty
	// disables the public read.
	PublicURL  string
	HTTPClient *http.Client
	Detector   Availability
	Bridge     Bridge
	// Direct is set only when a storage credential is configured.
	Direct domain.ObjectStorage
}

// RemoteChain reads and writes the document through whichever tiers are
// configured, in a fixed order.
type RemoteChain struct {
	opts   RemoteOptions
	logger *logger.Logger
	now    func() time.Time
}

var _ Remote = (*RemoteChain)(nil)

func NewRemoteChain(opts RemoteOptions, log *logger.Logger) *RemoteChain {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &RemoteChain{opts: opts, logger: log.Named("remote_document"), now: time.Now}
}

func (r *RemoteChain) bridgeUp(ctx context.Context) bool {
	return r.opts.Bridge != nil && r.opts.Detector != nil && r.opts.Detector.Available(ctx)
}

// Fetch tries the public object URL, then the bridge, then a direct read.
func (r *RemoteChain) Fetch(ctx context.Context) (domain.Collection, error) {
	c, via, err := fallback.Run(ctx, []fallback.Strategy[domain.Collection]{
		{Name: "public", Try: func(ctx context.Context) fallback.Outcome[domain.Collection] {
			if r.opts.PublicURL == "" {
				return fallback.Skipped[domain.Collection]()
			}
			return fallback.From[domain.Collection](r.fetchPublic(ctx))
		}},
		{Name: "proxy", Try: func(ctx context.Context) fallback.Outcome[domain.Collection] {
			if !r.bridgeUp(ctx) {
				return fallback.Skipped[domain.Collection]()
			}
			return fallback.From[domain.Collection](r.opts.Bridge.FetchDocument(ctx))
		}},
		{Name: "direct", Try: func(ctx context.Context) fallback.Outcome[domain.Collection] {
			if r.opts.Direct == nil {
				return fallback.Skipped[domain.Collection]()
			}
			return fallback.From[domain.Collection](r.fetchDirect(ctx))
		}},
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Remote document fetched", zap.String("via", via), zap.Int("listings", len(c)))
	return c, nil
}

// Store writes through the bridge when it is up and falls back to a direct
// upload when a credential is configured.
func (r *RemoteChain) Store(ctx context.Context, c domain.Collection) error {
	_, via, err := fallback.Run(ctx, []fallback.Strategy[struct{}]{
		{Name: "proxy", Try: func(ctx context.Context) fallback.Outcome[struct{}] {
			if !r.bridgeUp(ctx) {
				return fallback.Skipped[struct{}]()
			}
			return fallback.From(struct{}{}, r.opts.Bridge.StoreDocument(ctx, c))
		}},
		{Name: "direct", Try: func(ctx context.Context) fallback.Outcome[struct{}] {
			if r.opts.Direct == nil {
				return fallback.Skipped[struct{}]()
			}
			return fallback.From(struct{}{}, r.storeDirect(ctx, c))
		}},
	})
	if err != nil {
		return err
	}
	r.logger.Debug("Remote document stored", zap.String("via", via), zap.Int("listings", len(c)))
	return nil
}

func (r *RemoteChain) fetchPublic(ctx context.Context) (domain.Collection, error) {
	u := r.opts.PublicURL + "?t=" + strconv.FormatInt(r.now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := r.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrDocumentNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("public document read: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeCollection(body)
}

func (r *RemoteChain) fetchDirect(ctx context.Context) (domain.Collection, error) {
	data, _, err := r.opts.Direct.Get(ctx, domain.DocumentPath)
	if err != nil {
		return nil, err
	}
	return decodeCollection(data)
}

func (r *RemoteChain) storeDirect(ctx context.Context, c domain.Collection) error {
	if c == nil {
		c = domain.Collection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.opts.Direct.Upload(ctx, domain.DocumentPath, data, "application/json")
}

func decodeCollection(data []byte) (domain.Collection, error) {
	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return c, nil
}
