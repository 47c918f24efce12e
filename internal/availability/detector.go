package availability

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

const (
	StatusPath          = "/api/status"
	DefaultProbeTimeout = 1500 * time.Millisecond
)

// Hosts that only serve static files and therefore can never run the bridge.
var staticHostSuffixes = []string{
	".github.io",
	".netlify.app",
	".pages.dev",
	".vercel.app",
	".surge.sh",
	".gitlab.io",
	".web.app",
	".firebaseapp.com",
}

// Detector answers whether the bridge is reachable. The probe runs at most
// once per Detector; construct one per process and share it.
type Detector struct {
	origin  string
	timeout time.Duration
	client  *http.Client
	logger  *logger.Logger

	once      sync.Once
	available bool
}

type Option func(*Detector)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Detector) { d.client = c }
}

func WithTimeout(t time.Duration) Option {
	return func(d *Detector) { d.timeout = t }
}

func NewDetector(origin string, log *logger.Logger, opts ...Option) *Detector {
	d := &Detector{
		origin:  strings.TrimRight(origin, "/"),
		timeout: DefaultProbeTimeout,
		client:  http.DefaultClient,
		logger:  log.Named("availability"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Available reports whether the bridge answered the status probe with a
// JSON success response. The result is computed once and cached, so the
// probe ignores the caller's cancellation and is bounded by its own timeout.
func (d *Detector) Available(ctx context.Context) bool {
	d.once.Do(func() {
		d.available = d.probe(context.WithoutCancel(ctx))
		d.logger.Info("Backend availability determined",
			zap.String("origin", d.origin),
			zap.Bool("available", d.available))
	})
	return d.available
}

func (d *Detector) probe(ctx context.Context) bool {
	if d.origin == "" {
		return false
	}
	u, err := url.Parse(d.origin)
	if err != nil || u.Host == "" {
		d.logger.Debug("Origin is not a valid URL", zap.String("origin", d.origin), zap.Error(err))
		return false
	}
	if IsStaticHost(u.Hostname()) {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, d.origin+StatusPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Debug("Status probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	// Static hosts answer unknown paths with an HTML shell and a 200.
	return isJSONContentType(resp.Header.Get("Content-Type"))
}

func IsStaticHost(host string) bool {
	host = strings.ToLower(host)
	for _, suffix := range staticHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func isJSONContentType(v string) bool {
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
