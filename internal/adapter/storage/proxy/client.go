// Package proxy talks to the bridge's HTTP surface. The bridge holds the
// storage credential, so nothing here needs one.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

const (
	ListingsPath = "/api/listings"
	ImagesPath   = "/api/images"
	FilesPath    = "/files"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.Named("proxy"),
	}
}

type persistImageRequest struct {
	DataURL string `json:"dataUrl"`
}

type persistImageResponse struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ImageURL is the same-origin URL the bridge serves a remote key from.
func (c *Client) ImageURL(key string) string {
	return c.baseURL + ImagesPath + "/" + url.PathEscape(key)
}

// FileURL is where the bridge serves a legacy local-file image.
func (c *Client) FileURL(name string) string {
	return c.baseURL + FilesPath + "/" + url.PathEscape(name)
}

func (c *Client) FetchDocument(ctx context.Context) (domain.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ListingsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	var out domain.Collection
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StoreDocument(ctx context.Context, collection domain.Collection) error {
	if collection == nil {
		collection = domain.Collection{}
	}
	body, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ListingsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// PersistImage uploads an inline payload; the bridge mints and returns the key.
func (c *Client) PersistImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error) {
	body, err := json.Marshal(persistImageRequest{DataURL: domain.EncodeDataURL(mimeType, data)})
	if err != nil {
		return domain.ImageRef{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ImagesPath, bytes.NewReader(body))
	if err != nil {
		return domain.ImageRef{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp persistImageResponse
	if err := c.do(req, &resp); err != nil {
		return domain.ImageRef{}, err
	}
	ref, err := domain.ParseImageRef(resp.Key)
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("bridge returned unusable key: %w", err)
	}
	return ref, nil
}

func (c *Client) DeleteImage(ctx context.Context, ref domain.ImageRef) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+ImagesPath+"/"+url.PathEscape(ref.String()), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Bridge request failed", zap.String("method", req.Method), zap.String("url", req.URL.String()), zap.Error(err))
		return fmt.Errorf("bridge %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("bridge %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bridge %s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
