package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestDetector_Available(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		contentType string
		expected    bool
	}{
		{name: "JSON success", status: http.StatusOK, contentType: "application/json", expected: true},
		{name: "JSON with charset", status: http.StatusOK, contentType: "application/json; charset=utf-8", expected: true},
		{name: "HTML shell from static host fallback", status: http.StatusOK, contentType: "text/html", expected: false},
		{name: "Missing content type", status: http.StatusOK, contentType: "", expected: false},
		{name: "Server error with JSON", status: http.StatusInternalServerError, contentType: "application/json", expected: false},
		{name: "Not found", status: http.StatusNotFound, contentType: "application/json", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, StatusPath, r.URL.Path)
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			d := NewDetector(srv.URL, logger.NewNop())
			assert.Equal(t, tc.expected, d.Available(context.Background()))
		})
	}
}

func TestDetector_ProbesOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewDetector(srv.URL, logger.NewNop())
	for i := 0; i < 3; i++ {
		assert.True(t, d.Available(context.Background()))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDetector_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	d := NewDetector(srv.URL, logger.NewNop(), WithTimeout(50*time.Millisecond))
	assert.False(t, d.Available(context.Background()))
}

func TestDetector_CanceledFirstCallerDoesNotStickUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"mode":"remote"}`))
	}))
	defer srv.Close()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(srv.URL, logger.NewNop())
	assert.True(t, d.Available(canceled))
	assert.True(t, d.Available(context.Background()))
}

func TestDetector_StaticHostSkipsNetwork(t *testing.T) {
	var calls int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, assert.AnError
	})}

	d := NewDetector("https://someone.github.io/apartments", logger.NewNop(), WithHTTPClient(client))
	assert.False(t, d.Available(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDetector_EmptyOrigin(t *testing.T) {
	d := NewDetector("", logger.NewNop())
	assert.False(t, d.Available(context.Background()))
}

func TestDetector_UnreachableOrigin(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewDetector(url, logger.NewNop())
	assert.False(t, d.Available(context.Background()))
}

func TestIsStaticHost(t *testing.T) {
	assert.True(t, IsStaticHost("me.github.io"))
	assert.True(t, IsStaticHost("Flats.Netlify.App"))
	assert.True(t, IsStaticHost("x.pages.dev"))
	assert.False(t, IsStaticHost("localhost"))
	assert.False(t, IsStaticHost("flats.example.com"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
