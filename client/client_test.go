package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpratt/folio-api/models"
)

// passthroughLimits keeps the image pipeline out of unit tests.
func passthroughLimits() IntakeLimits {
	return IntakeLimits{MaxBytes: 20 << 20, Extended: true, Process: false}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPrepareFileRejectsOversizeBeforeReading(t *testing.T) {
	c := New("http://unused.invalid", WithIntakeLimits(IntakeLimits{MaxBytes: 16, Process: false}))

	path := writeTempFile(t, "big.jpg", make([]byte, 64))
	_, err := c.PrepareFile(path)

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestPrepareFileRejectsUnsupportedType(t *testing.T) {
	c := New("http://unused.invalid", WithIntakeLimits(passthroughLimits()))

	path := writeTempFile(t, "notes.txt", []byte("hello"))
	_, err := c.PrepareFile(path)

	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPrepareFilePassthrough(t *testing.T) {
	c := New("http://unused.invalid", WithIntakeLimits(passthroughLimits()))

	data := []byte("fake jpeg bytes")
	path := writeTempFile(t, "shot.jpg", data)
	up, err := c.PrepareFile(path)

	require.NoError(t, err)
	assert.Equal(t, "shot.jpg", up.FileName)
	assert.Equal(t, "image/jpeg", up.Mime)
	assert.Equal(t, data, up.Data)
	assert.Empty(t, up.Warnings)
}

func TestPrepareGenericMimeUsesExtension(t *testing.T) {
	c := New("http://unused.invalid", WithIntakeLimits(passthroughLimits()))

	up, err := c.Prepare("cat.webp", "application/octet-stream", []byte("webp"))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", up.Mime)
}

func TestUploadPhoto(t *testing.T) {
	var gotCaption, gotFileName string
	var gotBytes []byte
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/api/photos/upload-v2", r.URL.Path)

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		gotFileName = header.Filename
		gotBytes, _ = io.ReadAll(file)
		gotCaption = r.FormValue("caption")

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]models.Photo{"photo": {
			ID:       "p1",
			FileName: header.Filename,
			FileSize: int64(len(gotBytes)),
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, WithIntakeLimits(passthroughLimits()))
	up, err := c.Prepare("shot.jpg", "image/jpeg", []byte("jpeg data here"))
	require.NoError(t, err)

	var progress []int
	photo, err := c.UploadPhoto(context.Background(), up, "  a caption  ", func(pct int) {
		progress = append(progress, pct)
	})

	require.NoError(t, err)
	assert.Equal(t, "p1", photo.ID)
	assert.Equal(t, 1, requests)
	assert.Equal(t, "shot.jpg", gotFileName)
	assert.Equal(t, []byte("jpeg data here"), gotBytes)
	assert.Equal(t, "a caption", gotCaption, "caption arrives trimmed")

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestUploadPhotoCaptionTooLongIsLocal(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := New(srv.URL, WithIntakeLimits(passthroughLimits()))
	up, err := c.Prepare("shot.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	_, err = c.UploadPhoto(context.Background(), up, strings.Repeat("a", 501), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caption too long")
	assert.Equal(t, 0, requests, "rejected before any network call")
}

func TestUploadPhotoSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "file too large (max 20MB)"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithIntakeLimits(passthroughLimits()))
	up, err := c.Prepare("shot.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)

	_, err = c.UploadPhoto(context.Background(), up, "", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.Status)
	assert.Equal(t, "file too large (max 20MB)", apiErr.Message)
}

// feedServer serves a fixed set of photos with offset pagination and
// supports DELETE.
func feedServer(t *testing.T, total int) (*httptest.Server, *[]string) {
	t.Helper()
	deleted := &[]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/photos/feed", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		start := (page - 1) * limit
		count := total - start
		if count < 0 {
			count = 0
		}
		if count > limit {
			count = limit
		}
		photos := make([]models.Photo, count)
		for i := range photos {
			photos[i].ID = fmt.Sprintf("p%d", start+i)
		}
		_ = json.NewEncoder(w).Encode(models.PhotoFeed{
			Photos:     photos,
			Page:       page,
			Limit:      limit,
			TotalCount: int64(total),
			HasMore:    page*limit < total,
		})
	})
	mux.HandleFunc("DELETE /api/photos/", func(w http.ResponseWriter, r *http.Request) {
		*deleted = append(*deleted, r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, deleted
}

func TestFeedReaderRefreshAndLoadMore(t *testing.T) {
	srv, _ := feedServer(t, 25)
	c := New(srv.URL)

	feed := c.NewFeedReader(10)
	require.NoError(t, feed.Refresh(context.Background()))
	assert.Len(t, feed.Photos(), 10)
	assert.Equal(t, int64(25), feed.Total())
	assert.True(t, feed.HasMore())

	require.NoError(t, feed.LoadMore(context.Background()))
	assert.Len(t, feed.Photos(), 20, "pages append, not replace")
	assert.True(t, feed.HasMore())

	require.NoError(t, feed.LoadMore(context.Background()))
	assert.Len(t, feed.Photos(), 25)
	assert.False(t, feed.HasMore())

	// Nothing left; a further call is a no-op.
	require.NoError(t, feed.LoadMore(context.Background()))
	assert.Len(t, feed.Photos(), 25)

	// A refresh replaces the accumulated list with page one.
	require.NoError(t, feed.Refresh(context.Background()))
	assert.Len(t, feed.Photos(), 10)
	assert.Equal(t, "p0", feed.Photos()[0].ID)
}

func TestFeedReaderOptimisticDelete(t *testing.T) {
	srv, deleted := feedServer(t, 5)
	c := New(srv.URL)

	feed := c.NewFeedReader(10)
	require.NoError(t, feed.Refresh(context.Background()))
	require.Len(t, feed.Photos(), 5)

	require.NoError(t, feed.Delete(context.Background(), "p2"))

	assert.Equal(t, []string{"p2"}, *deleted)
	assert.Len(t, feed.Photos(), 4, "removed locally without a refetch")
	assert.Equal(t, int64(4), feed.Total())
	for _, p := range feed.Photos() {
		assert.NotEqual(t, "p2", p.ID)
	}
}

func TestNewFeedReaderClampsPageSize(t *testing.T) {
	var gotLimits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimits = append(gotLimits, r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(models.PhotoFeed{Photos: []models.Photo{}, Page: 1, Limit: 50})
	}))
	defer srv.Close()

	c := New(srv.URL)

	// Above the server's ceiling the reader must request the clamped size,
	// otherwise the server would silently paginate by a different step.
	require.NoError(t, c.NewFeedReader(500).Refresh(context.Background()))
	// Zero falls back to the server default.
	require.NoError(t, c.NewFeedReader(0).Refresh(context.Background()))

	assert.Equal(t, []string{"50", "20"}, gotLimits)
}

func TestLoginCarriesSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		http.SetCookie(w, &http.Cookie{Name: "folio_at", Value: "access-1", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("folio_at"); err == nil && c.Value == "access-1" {
			_ = json.NewEncoder(w).Encode(map[string]models.User{"user": {ID: "u1", Email: "a@b.com"}})
			return
		}
		_, _ = w.Write([]byte(`{"user":null}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user, "no session yet")

	require.NoError(t, c.Login(context.Background(), "a@b.com", "longenough"))

	user, err = c.Me(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
}
