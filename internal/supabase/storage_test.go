package supabase_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ai-artist-backend/internal/config"
	"ai-artist-backend/internal/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedUpload struct {
	method      string
	path        string
	contentType string
	body        string
}

func fakeStorage(t *testing.T) (*httptest.Server, func() []recordedUpload) {
	t.Helper()
	var (
		mu      sync.Mutex
		uploads []recordedUpload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploads = append(uploads, recordedUpload{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Key":"creations/object"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedUpload {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedUpload(nil), uploads...)
	}
}

func TestPublisherUpload(t *testing.T) {
	srv, uploads := fakeStorage(t)
	p := supabase.NewStoragePublisher(srv.URL+"/", "publishable-key", "creations")

	path, url, err := p.Upload("ai-artist-image-20250101-120000.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "creations/"))
	assert.True(t, strings.HasSuffix(path, "/ai-artist-image-20250101-120000.png"))
	assert.Equal(t, srv.URL+"/storage/v1/object/public/creations/"+path, url)

	got := uploads()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/storage/v1/object/creations/"+path, got[0].path)
	assert.Equal(t, "image/png", got[0].contentType)
	assert.Equal(t, "png-bytes", got[0].body)
}

func TestPublisherUploadsAreUnique(t *testing.T) {
	srv, _ := fakeStorage(t)
	p := supabase.NewStoragePublisher(srv.URL, "publishable-key", "creations")

	a, _, err := p.Upload("same.png", "image/png", []byte("a"))
	require.NoError(t, err)
	b, _, err := p.Upload("same.png", "image/png", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPublicURL(t *testing.T) {
	p := supabase.NewStoragePublisher("https://project.supabase.co/", "key", "gallery")
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/gallery/a/b.png", p.PublicURL("a/b.png"))
	assert.Equal(t, "gallery", p.Bucket())
}

func TestNewClientDisabled(t *testing.T) {
	_, err := supabase.NewClient(&config.Config{})
	assert.ErrorIs(t, err, supabase.ErrPublishingDisabled)
}

func TestNewClientPublisher(t *testing.T) {
	client, err := supabase.NewClient(&config.Config{
		SupabaseURL:            "https://project.supabase.co",
		SupabasePublishableKey: "key",
		SupabaseStorageBucket:  "creations",
	})
	require.NoError(t, err)
	p := client.Publisher()
	assert.Equal(t, "creations", p.Bucket())
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/creations/x.png", p.PublicURL("x.png"))
}
