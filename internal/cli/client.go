package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dov85/Apartment/internal/adapter/cache/localcache"
	"github.com/dov85/Apartment/internal/adapter/storage/blobdb"
	"github.com/dov85/Apartment/internal/adapter/storage/proxy"
	"github.com/dov85/Apartment/internal/adapter/storage/s3"
	"github.com/dov85/Apartment/internal/availability"
	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/docsync"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/listing/usecase"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/dov85/Apartment/internal/resolver"
	"go.uber.org/zap"
)

const blobDBName = "blobs.db"

// Client is everything a device needs to read and edit its collection.
// Optional tiers stay nil when the configuration does not enable them.
type Client struct {
	cfg      *config.Config
	log      *logger.Logger
	detector *availability.Detector
	proxy    *proxy.Client
	direct   *s3.S3Storage
	blobs    *blobdb.Store
	cache    *localcache.Cache
	engine   *docsync.Engine
	resolver *resolver.Resolver
	listings *usecase.ListingUsecase
}

// newClient wires the device side. notices receives user-facing messages
// such as the quota warning.
func newClient(cfg *config.Config, log *logger.Logger, notices io.Writer) (*Client, error) {
	c := &Client{cfg: cfg, log: log}
	httpClient := &http.Client{}

	c.detector = availability.NewDetector(cfg.Client.Origin, log,
		availability.WithTimeout(cfg.Client.ProbeTimeout),
		availability.WithHTTPClient(httpClient))
	if cfg.Client.Origin != "" {
		c.proxy = proxy.NewClient(cfg.Client.Origin, httpClient, log)
	}

	if cfg.Storage.HasCredential() && cfg.Client.DirectUploads {
		store, err := s3.NewS3Storage(storageConfig(cfg.Storage), log)
		if err != nil {
			return nil, err
		}
		c.direct = store
	}

	blobs, err := blobdb.Open(filepath.Join(cfg.Client.CacheDir, blobDBName))
	if err != nil {
		return nil, err
	}
	c.blobs = blobs
	c.cache = localcache.New(cfg.Client.CacheDir, cfg.Client.CacheQuotaBytes)

	// Interfaces are only filled from non-nil pointers so that an absent
	// tier reads as nil downstream.
	remoteOpts := docsync.RemoteOptions{
		PublicURL:  c.publicDocumentURL(),
		HTTPClient: httpClient,
		Detector:   c.detector,
	}
	deps := resolver.Deps{
		Detector:      c.detector,
		Blobs:         blobs,
		PublicBaseURL: strings.TrimRight(cfg.Storage.PublicBaseURL, "/"),
		HTTPClient:    httpClient,
	}
	if c.proxy != nil {
		remoteOpts.Bridge = c.proxy
		deps.Proxy = c.proxy
	}
	if c.direct != nil {
		remoteOpts.Direct = c.direct
		deps.Direct = c.direct
	}

	c.resolver = resolver.New(deps, log)
	c.engine = docsync.NewEngine(
		docsync.NewRemoteChain(remoteOpts, log),
		c.cache,
		log,
		docsync.WithRefChecker(c.resolver),
		docsync.WithNotifier(docsync.NotifierFunc(func(msg string) {
			fmt.Fprintln(notices, warningLine(msg))
		})),
	)
	c.listings = usecase.NewListingUsecase(c.engine, c.resolver, log)
	return c, nil
}

func (c *Client) publicDocumentURL() string {
	if base := strings.TrimRight(c.cfg.Storage.PublicBaseURL, "/"); base != "" {
		return base + "/" + domain.DocumentPath
	}
	if c.direct != nil {
		return c.direct.PublicURL(domain.DocumentPath)
	}
	return ""
}

// Close waits for background re-saves and releases the blob database.
func (c *Client) Close() {
	c.engine.WaitBackground()
	if err := c.blobs.Close(); err != nil {
		c.log.Warn("Failed to close blob db", zap.Error(err))
	}
}

// load makes sure the engine holds a collection before a command reads it.
func (c *Client) load(ctx context.Context) (domain.Collection, error) {
	if cur := c.engine.Current(); cur != nil {
		return cur, nil
	}
	return c.engine.Load(ctx)
}

func storageConfig(s config.StorageConfig) s3.Config {
	return s3.Config{
		Endpoint:      s.Endpoint,
		AccessKey:     s.AccessKey,
		SecretKey:     s.SecretKey,
		Bucket:        s.Bucket,
		UseSSL:        s.UseSSL,
		Region:        s.Region,
		PublicBaseURL: s.PublicBaseURL,
	}
}
