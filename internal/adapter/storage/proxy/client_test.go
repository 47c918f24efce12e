package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PersistImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ImagesPath, r.URL.Path)

		var req persistImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "data:image/png;base64,cG5n", req.DataURL)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key":"lq3k2x1a-9fz0ke.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), logger.NewNop())
	ref, err := c.PersistImage(context.Background(), "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, domain.RemoteRef("lq3k2x1a-9fz0ke.png"), ref)
}

func TestClient_PersistImage_LocalModeKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key":"local:lq3k2x1a-9fz0ke.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), logger.NewNop())
	ref, err := c.PersistImage(context.Background(), "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, domain.RefLocalFile, ref.Kind)
}

func TestClient_StoreAndFetchDocument(t *testing.T) {
	var stored []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ListingsPath, r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			stored, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(stored)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), logger.NewNop())
	in := domain.Collection{{ID: "1", Status: domain.StatusNew, Images: []domain.ImageRef{domain.RemoteRef("abc123.png")}}}
	require.NoError(t, c.StoreDocument(context.Background(), in))

	out, err := c.FetchDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"storage unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), logger.NewNop())
	err := c.DeleteImage(context.Background(), domain.RemoteRef("a.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
	assert.Contains(t, err.Error(), "502")
}

func TestClient_URLs(t *testing.T) {
	c := NewClient("https://flats.example.com/", nil, logger.NewNop())
	assert.Equal(t, "https://flats.example.com/api/images/abc123.png", c.ImageURL("abc123.png"))
	assert.Equal(t, "https://flats.example.com/files/old.jpg", c.FileURL("old.jpg"))
}
