package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/forecourt-hq/sentinel/internal/review"
	"github.com/forecourt-hq/sentinel/internal/shared"
)

type memoryRepo struct {
	clips  map[int64]review.Clip
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clips: make(map[int64]review.Clip)}
}

func (r *memoryRepo) InsertClip(ctx context.Context, clip review.Clip) (review.Clip, error) {
	r.nextID++
	clip.ID = r.nextID
	r.clips[clip.ID] = clip
	return clip, nil
}

func (r *memoryRepo) GetClip(ctx context.Context, id int64) (review.Clip, error) {
	clip, ok := r.clips[id]
	if !ok {
		return review.Clip{}, shared.ErrNotFound
	}
	return clip, nil
}

func TestStoreAndOpen(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, t.TempDir())
	ctx := context.Background()

	content := "fake mp4 bytes"
	clip, err := svc.Store(ctx, "register1.mp4", strings.NewReader(content), "TXN-1", nil, "manager")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), clip.Size)
	require.Equal(t, "TXN-1", clip.TransactionID)
	require.True(t, strings.HasSuffix(clip.StoredName, ".mp4"))
	require.NotEqual(t, "register1.mp4", clip.StoredName, "stored name is randomised")

	stored, f, err := svc.Open(ctx, clip.ID)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, clip.StoredName, stored.StoredName)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestStoreRejectsUnknownFormat(t *testing.T) {
	svc := NewService(newMemoryRepo(), t.TempDir())
	_, err := svc.Store(context.Background(), "notes.txt", strings.NewReader("x"), "", nil, "manager")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestStreamHonoursRangeRequests(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, t.TempDir())
	handler := NewHandler(nil, svc, 0)

	clip, err := svc.Store(context.Background(), "clip.mp4", strings.NewReader("0123456789"), "", nil, "manager")
	require.NoError(t, err)

	router := chi.NewRouter()
	handler.MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/video/%d", clip.ID), nil)
	req.Header.Set("Range", "bytes=2-5")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusPartialContent, res.Code)
	require.Equal(t, "2345", res.Body.String())
	require.Equal(t, "video/mp4", res.Header().Get("Content-Type"))

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/video/%d", clip.ID), nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "0123456789", res.Body.String())
}

func TestStreamUnknownClip(t *testing.T) {
	svc := NewService(newMemoryRepo(), t.TempDir())
	handler := NewHandler(nil, svc, 0)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/video/99", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusNotFound, res.Code)
}
