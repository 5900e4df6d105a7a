package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetImageBytesRetriesOn500ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "https://ref.example/1", r.Header.Get("Referer"))
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	f := New("", 2, time.Millisecond, time.Second)
	body, err := f.GetImageBytes(context.Background(), srv.URL, "https://ref.example/1")
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(body))
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetImageBytesGivesUpAfterRetryCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New("", 1, time.Millisecond, time.Second)
	_, err := f.GetImageBytes(context.Background(), srv.URL, "https://ref.example/1")
	require.Error(t, err)
}

func TestDoWithRetryRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New("", 3, 10*time.Millisecond, time.Second)
	_, err := f.GetImageBytes(ctx, srv.URL, "https://ref.example/1")
	require.Error(t, err)
}

func TestGetBodyTreatsRedirectAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			_, _ = w.Write([]byte("please log in"))
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	f := New("", 0, time.Millisecond, time.Second)
	_, err := f.getBody(context.Background(), srv.URL+"/comic/1/")
	require.Error(t, err)
}
