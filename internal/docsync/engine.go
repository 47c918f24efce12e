// Package docsync keeps the listing collection in step between the device
// cache and the remote document.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

// QuotaNotice is shown once per process when images had to be dropped from
// the local cache.
const QuotaNotice = "Local storage is full: images were left out of the device cache. They remain available online."

type Source int

const (
	SourceNone Source = iota
	SourceEmpty
	SourceLocal
	SourceRemote
	SourceShare
)

func (s Source) String() string {
	switch s {
	case SourceEmpty:
		return "empty"
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	case SourceShare:
		return "share"
	default:
		return "none"
	}
}

type LocalCache interface {
	Load() (domain.Collection, bool, error)
	Save(c domain.Collection) error
}

// RefChecker reports whether an image reference still points at something.
type RefChecker interface {
	Exists(ctx context.Context, ref domain.ImageRef) bool
}

type Notifier interface {
	Notify(msg string)
}

type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

type Engine struct {
	remote   Remote
	local    LocalCache
	refs     RefChecker
	notifier Notifier
	logger   *logger.Logger

	mu      sync.Mutex
	current domain.Collection
	source  Source

	quotaOnce  sync.Once
	background sync.WaitGroup
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRefChecker enables dropping of broken device-blob references on load.
func WithRefChecker(rc RefChecker) Option {
	return func(e *Engine) { e.refs = rc }
}

func NewEngine(remote Remote, local LocalCache, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:   remote,
		local:    local,
		notifier: NotifierFunc(func(string) {}),
		logger:   log.Named("docsync"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load returns the best available collection: a non-empty remote document,
// else the local cache, else an empty collection. Transport failures are
// never returned; only a canceled context is.
func (e *Engine) Load(ctx context.Context) (domain.Collection, error) {
	var (
		c   domain.Collection
		src Source
	)

	remote, err := e.remote.Fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		e.logger.Debug("Remote document unavailable", zap.Error(err))
	}

	if err == nil && len(remote) > 0 {
		c, src = remote, SourceRemote
		e.saveLocal(c)
	} else {
		cached, ok, lerr := e.local.Load()
		switch {
		case lerr != nil:
			e.logger.Warn("Local cache unreadable", zap.Error(lerr))
			c, src = domain.Collection{}, SourceEmpty
		case ok:
			c, src = cached, SourceLocal
		default:
			c, src = domain.Collection{}, SourceEmpty
		}
	}

	cleaned, dropped := e.reconcile(ctx, c)
	e.set(cleaned, src)
	e.logger.Info("Collection loaded", zap.Stringer("source", src), zap.Int("listings", len(cleaned)))

	if dropped > 0 {
		e.logger.Info("Dropped broken image references", zap.Int("count", dropped))
		e.saveLocal(cleaned)
		e.resaveInBackground(ctx, cleaned.Clone())
	}
	return cleaned.Clone(), nil
}

// Save writes the local cache first, then the remote document. Only the
// remote outcome is returned.
func (e *Engine) Save(ctx context.Context, c domain.Collection) error {
	c = c.WithoutInline()
	e.saveLocal(c)

	if err := e.remote.Store(ctx, c); err != nil {
		e.set(c, SourceLocal)
		e.logger.Warn("Remote document write failed", zap.Int("listings", len(c)), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrRemoteWriteFailed, err)
	}
	e.set(c, SourceRemote)
	return nil
}

// Adopt replaces the in-memory collection and the local cache without a
// remote write.
func (e *Engine) Adopt(c domain.Collection) {
	c = c.WithoutInline()
	e.saveLocal(c)
	e.set(c, SourceShare)
}

func (e *Engine) Current() domain.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

func (e *Engine) Source() Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// WaitBackground blocks until background re-saves started by Load finish.
func (e *Engine) WaitBackground() {
	e.background.Wait()
}

func (e *Engine) set(c domain.Collection, src Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = c.Clone()
	e.source = src
}

// saveLocal is best effort. Over quota it retries without images and shows
// the quota notice once.
func (e *Engine) saveLocal(c domain.Collection) {
	err := e.local.Save(c)
	if err == nil {
		return
	}
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		e.logger.Warn("Local cache write failed", zap.Error(err))
		return
	}
	e.quotaOnce.Do(func() { e.notifier.Notify(QuotaNotice) })
	if err := e.local.Save(c.StripImages()); err != nil {
		e.logger.Warn("Local cache write failed without images", zap.Error(err))
	}
}

func (e *Engine) reconcile(ctx context.Context, c domain.Collection) (domain.Collection, int) {
	if e.refs == nil {
		return c, 0
	}
	out := c.Clone()
	dropped := 0
	for i := range out {
		kept := make([]domain.ImageRef, 0, len(out[i].Images))
		for _, ref := range out[i].Images {
			if ref.Kind == domain.RefDeviceBlob && !e.refs.Exists(ctx, ref) {
				dropped++
				continue
			}
			kept = append(kept, ref)
		}
		out[i].Images = kept
	}
	return out, dropped
}

func (e *Engine) resaveInBackground(ctx context.Context, c domain.Collection) {
	ctx = context.WithoutCancel(ctx)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		if err := e.remote.Store(ctx, c); err != nil {
			e.logger.Warn("Background re-save failed", zap.Error(err))
			return
		}
		e.logger.Debug("Cleaned collection re-saved", zap.Int("listings", len(c)))
	}()
}
